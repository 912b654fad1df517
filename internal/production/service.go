// Package production manages production orders, a worker turning materials
// into one product booked into inventory by the ERP, and the bills of
// materials that say which materials go into it.
package production

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
)

type Order struct {
	ID                       string   `json:"id"`
	Name                     string   `json:"name"`
	Description              *string  `json:"description,omitempty"`
	CreatedAt                string   `json:"createdAt,omitempty"`
	Status                   string   `json:"status,omitempty"`
	Date                     *string  `json:"date,omitempty"`
	ProductionBookedFlag     bool     `json:"productionBookedFlag"`
	Quantity                 *float64 `json:"quantity,omitempty"`
	ErrorMessage             *string  `json:"errorMessage,omitempty"`
	ProductionWorkerID       *string  `json:"productionWorkerId,omitempty"`
	ProductionWorkerName     *string  `json:"productionWorkerName,omitempty"`
	InventoryTransactionID   *string  `json:"inventoryTransactionId,omitempty"`
	InventoryTransactionName *string  `json:"inventoryTransactionName,omitempty"`
	ProductID                *string  `json:"productId,omitempty"`
	ProductName              *string  `json:"productName,omitempty"`
}

type CreateRequest struct {
	Name               string   `json:"name,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Status             string   `json:"status,omitempty"`
	Date               *string  `json:"date,omitempty"`
	Quantity           *float64 `json:"quantity,omitempty"`
	ProductID          string   `json:"productId"`
	ProductionWorkerID *string  `json:"productionWorkerId,omitempty"`
}

type UpdateRequest struct {
	Name               *string  `json:"name,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Status             *string  `json:"status,omitempty"`
	Date               *string  `json:"date,omitempty"`
	Quantity           *float64 `json:"quantity,omitempty"`
	ProductID          *string  `json:"productId,omitempty"`
	ProductionWorkerID *string  `json:"productionWorkerId,omitempty"`
}

type Filters struct {
	Search    string
	Status    string
	ProductID string
	WorkerID  string
	// Booked filters on productionBookedFlag when set.
	Booked  *bool
	MaxSize int
	Offset  int
	OrderBy string
	Order   string
}

type Service struct {
	api    espo.API
	orders espo.Collection[Order]
	boms   espo.Collection[BOMItem]
	log    *zap.Logger
}

func NewService(api espo.API, log *zap.Logger) *Service {
	return &Service{
		api:  api,
		boms: newBOMs(api),
		log:  logx.OrNop(log).Named("production"),

		orders: espo.NewCollection[Order](api, "ProductionOrder", query.ListParams{
			MaxSize: 20, OrderBy: "createdAt", Order: "desc",
			Select: []string{"date", "name", "status", "productionBookedFlag", "errorMessage", "createdAt", "productName"},
		}),
	}
}

func (s *Service) List(ctx context.Context, f Filters) (espo.List[Order], error) {
	q := espo.ListQuery{Search: f.Search, MaxSize: f.MaxSize, Offset: f.Offset, OrderBy: f.OrderBy, Order: f.Order}
	if f.Status != "" {
		q.Where = append(q.Where, query.Equals("status", f.Status))
	}
	if f.ProductID != "" {
		q.Where = append(q.Where, query.Equals("productId", f.ProductID))
	}
	if f.WorkerID != "" {
		q.Where = append(q.Where, query.Equals("productionWorkerId", f.WorkerID))
	}
	if f.Booked != nil {
		if *f.Booked {
			q.Where = append(q.Where, query.IsTrue("productionBookedFlag"))
		} else {
			q.Where = append(q.Where, query.IsFalse("productionBookedFlag"))
		}
	}
	return s.orders.List(ctx, q)
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		return nil, apperr.Invalid("productId", "required")
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, apperr.Invalid("quantity", "must be greater than zero")
	}
	if err := validDate(req.Date); err != nil {
		return nil, err
	}
	out, err := s.orders.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	logx.From(ctx, s.log).Info("production order created", zap.String("id", out.ID), zap.String("product_id", req.ProductID))
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Order, error) {
	if req.ProductID != nil && strings.TrimSpace(*req.ProductID) == "" {
		return nil, apperr.Invalid("productId", "cannot be blank")
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, apperr.Invalid("quantity", "must be greater than zero")
	}
	if err := validDate(req.Date); err != nil {
		return nil, err
	}
	return s.orders.Update(ctx, id, req)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	logx.From(ctx, s.log).Info("production order deleted", zap.String("id", id))
	return nil
}

func validDate(d *string) error {
	if d == nil || *d == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, *d); err != nil {
		return apperr.Invalid("date", "expected YYYY-MM-DD")
	}
	return nil
}
