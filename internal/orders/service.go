// Package orders reads and edits sales orders. The order status is
// informational: any known status may be written.
package orders

import (
	"context"
	"net/url"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
)

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Order struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	CreatedAt          string   `json:"createdAt,omitempty"`
	Status             Status   `json:"status,omitempty"`
	Channel            string   `json:"channel,omitempty"`
	PriceWithVat       float64  `json:"priceWithVat"`
	PriceWithoutVat    *float64 `json:"priceWithoutVat,omitempty"`
	Currency           string   `json:"currency,omitempty"`
	CarrierID          string   `json:"carrierId,omitempty"`
	CarrierName        string   `json:"carrierName,omitempty"`
	AccountID          string   `json:"accountId,omitempty"`
	AccountName        string   `json:"accountName,omitempty"`
	IsStarred          bool     `json:"isStarred,omitempty"`
	FlagPackageCreated bool     `json:"flagPackageCreated,omitempty"`

	ShippingAddressStreet     string `json:"shippingAddressStreet,omitempty"`
	ShippingAddressCity       string `json:"shippingAddressCity,omitempty"`
	ShippingAddressPostalCode string `json:"shippingAddressPostalCode,omitempty"`
	ShippingAddressCountry    string `json:"shippingAddressCountry,omitempty"`
	BillingAddressStreet      string `json:"billingAddressStreet,omitempty"`
	BillingAddressCity        string `json:"billingAddressCity,omitempty"`
	BillingAddressPostalCode  string `json:"billingAddressPostalCode,omitempty"`
	BillingAddressCountry     string `json:"billingAddressCountry,omitempty"`
}

func (o Order) ShippingAddress() Address {
	return Address{o.ShippingAddressStreet, o.ShippingAddressCity, o.ShippingAddressPostalCode, o.ShippingAddressCountry}
}

func (o Order) BillingAddress() Address {
	return Address{o.BillingAddressStreet, o.BillingAddressCity, o.BillingAddressPostalCode, o.BillingAddressCountry}
}

type ItemType string

const (
	ItemProduct    ItemType = "PRODUCT"
	ItemBundle     ItemType = "BUNDLE"
	ItemNonProduct ItemType = "NON_PRODUCT"
)

type Item struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	ProductID       string   `json:"productId,omitempty"`
	ProductName     string   `json:"productName,omitempty"`
	Quantity        float64  `json:"quantity"`
	UnitPrice       float64  `json:"unitPrice,omitempty"`
	PriceWithVat    float64  `json:"priceWithVat,omitempty"`
	PriceWithoutVat float64  `json:"priceWithoutVat,omitempty"`
	BundleID        string   `json:"bundleId,omitempty"`
	Type            ItemType `json:"type,omitempty"`
}

type Filters struct {
	Search  string
	Status  Status
	Channel string
	Starred bool
	MaxSize int
	Offset  int
}

// Update is a partial field update. Status goes through UpdateStatus.
type Update struct {
	Name                      *string `json:"name,omitempty"`
	CarrierID                 *string `json:"carrierId,omitempty"`
	ShippingAddressStreet     *string `json:"shippingAddressStreet,omitempty"`
	ShippingAddressCity       *string `json:"shippingAddressCity,omitempty"`
	ShippingAddressPostalCode *string `json:"shippingAddressPostalCode,omitempty"`
	ShippingAddressCountry    *string `json:"shippingAddressCountry,omitempty"`
	Description               *string `json:"description,omitempty"`
}

var listFields = []string{
	"name", "createdAt", "status", "channel", "priceWithVat", "priceWithoutVat", "currency",
	"carrierId", "carrierName", "accountId", "accountName", "isStarred", "flagPackageCreated",
}

type Service struct {
	orders espo.Collection[Order]
	log    *zap.Logger
}

func NewService(api espo.API, log *zap.Logger) *Service {
	return &Service{
		orders: espo.NewCollection[Order](api, "SalesOrder", query.ListParams{
			MaxSize: 20, OrderBy: "createdAt", Order: "desc", Select: listFields,
		}),
		log: logx.OrNop(log).Named("orders"),
	}
}

func (s *Service) List(ctx context.Context, f Filters) (espo.List[Order], error) {
	q := espo.ListQuery{Search: f.Search, MaxSize: f.MaxSize, Offset: f.Offset}
	if f.Status != "" {
		if !f.Status.Known() {
			return espo.List[Order]{}, apperr.Invalid("status", "unknown order status "+string(f.Status))
		}
		q.Where = append(q.Where, query.Equals("status", string(f.Status)))
	}
	if f.Channel != "" {
		q.Where = append(q.Where, query.Equals("channel", f.Channel))
	}
	if f.Starred {
		q.Where = append(q.Where, query.IsTrue("isStarred"))
	}
	return s.orders.List(ctx, q)
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *Service) Items(ctx context.Context, id string) ([]Item, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	params := query.ListParams{MaxSize: 200}.Values()
	var out espo.List[Item]
	if err := s.orders.API.Get(ctx, "/SalesOrder/"+url.PathEscape(id)+"/salesOrderItems", params, &out); err != nil {
		return nil, err
	}
	if out.List == nil {
		return []Item{}, nil
	}
	return out.List, nil
}

// UpdateStatus writes any known status. A move outside the usual lifecycle is
// logged, not refused.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	if !to.Known() {
		return nil, apperr.Invalid("status", "unknown order status "+string(to))
	}
	cur, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logx.From(ctx, s.log).With(zap.String("order_id", id), zap.String("from", string(cur.Status)), zap.String("to", string(to)))
	if cur.Status != to && !CanTransition(cur.Status, to) {
		log.Warn("order status moved outside the usual lifecycle")
	}
	out, err := s.orders.Update(ctx, id, struct {
		Status Status `json:"status"`
	}{to})
	if err != nil {
		return nil, err
	}
	log.Info("order status updated")
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, u Update) (*Order, error) {
	return s.orders.Update(ctx, id, u)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	logx.From(ctx, s.log).Info("order deleted", zap.String("order_id", id))
	return nil
}

// SetStarred follows or unfollows the order's star subscription.
func (s *Service) SetStarred(ctx context.Context, id string, starred bool) error {
	if id == "" {
		return apperr.Invalid("id", "required")
	}
	p := "/SalesOrder/" + url.PathEscape(id) + "/starSubscription"
	if starred {
		return s.orders.API.Put(ctx, p, struct{}{}, nil)
	}
	return s.orders.API.Delete(ctx, p, nil)
}
