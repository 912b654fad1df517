// Package catalog exposes the CRM master data the warehouse screens pick from:
// products with their groups and units, warehouses, carriers, transaction
// types, workers and accounts, plus the smart settings and the Abra reload
// triggers.
package catalog

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
)

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code,omitempty"`
	AbraID      int     `json:"abraId,omitempty"`
	CostPrice   float64 `json:"costPrice,omitempty"`
	MinStock    float64 `json:"minStock,omitempty"`
	UomName     string  `json:"uomName,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	Description string  `json:"description,omitempty"`
}

type Warehouse struct {
	ID         string `json:"id"`
	AbraID     int    `json:"abraId,omitempty"`
	Name       string `json:"name"`
	Code       string `json:"code,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	IsActive   bool   `json:"isActive"`
	CreatedAt  string `json:"createdAt,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

type Carrier struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Queue       string `json:"queue,omitempty"`
	CarrierType string `json:"carrierType,omitempty"`
	Country     string `json:"country,omitempty"`
	EshopName   string `json:"eshopName,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type TransactionType struct {
	ID     string `json:"id"`
	AbraID int    `json:"abraId,omitempty"`
	Name   string `json:"name"`
}

type Worker struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type ProductGroup struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	CreatedByID    string  `json:"createdById,omitempty"`
	AssignedUserID *string `json:"assignedUserId,omitempty"`
}

// UOM is a unit of measure products are stocked in.
type UOM struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	AbraID int    `json:"abraId,omitempty"`
}

// AccountTypeSupplier marks accounts that supply raw materials.
const AccountTypeSupplier = "SUPPLIER"

type Account struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Website               string `json:"website,omitempty"`
	Type                  string `json:"type,omitempty"`
	BillingAddressCountry string `json:"billingAddressCountry,omitempty"`
	IsStarred             bool   `json:"isStarred,omitempty"`
}

type Service struct {
	api espo.API
	log *zap.Logger

	Products         espo.Collection[Product]
	Warehouses       espo.Collection[Warehouse]
	Carriers         espo.Collection[Carrier]
	TransactionTypes espo.Collection[TransactionType]
	Workers          espo.Collection[Worker]
	Accounts         espo.Collection[Account]
	ProductGroups    espo.Collection[ProductGroup]
	UOMs             espo.Collection[UOM]
}

func NewService(api espo.API, log *zap.Logger) *Service {
	return &Service{
		api: api,
		log: logx.OrNop(log).Named("catalog"),

		Products: espo.NewCollection[Product](api, "Product", query.ListParams{
			MaxSize: 20, OrderBy: "name", Order: "asc",
		}),
		Warehouses: espo.NewCollection[Warehouse](api, "Warehouse", query.ListParams{
			MaxSize: 100, Order: "desc",
		}),
		Carriers: espo.NewCollection[Carrier](api, "Carrier", query.ListParams{
			MaxSize: 20, OrderBy: "createdAt", Order: "desc",
			Select: []string{"country", "name", "queue", "eshopName", "carrierType"},
		}),
		TransactionTypes: espo.NewCollection[TransactionType](api, "InventoryTransactionType", query.ListParams{
			MaxSize: 100, OrderBy: "name", Order: "asc",
			Select: []string{"id", "abraId", "name"},
		}),
		Workers: espo.NewCollection[Worker](api, "ProductionWorker", query.ListParams{
			MaxSize: 10, OrderBy: "createdAt", Order: "desc",
			Select: []string{"name"},
		}),
		Accounts: espo.NewCollection[Account](api, "Account", query.ListParams{
			MaxSize: 20, OrderBy: "createdAt", Order: "desc",
			Select: []string{"name", "website", "type", "billingAddressCountry"},
		}),
		ProductGroups: espo.NewCollection[ProductGroup](api, "ProductGroup", query.ListParams{
			MaxSize: 100, Order: "asc",
		}),
		UOMs: espo.NewCollection[UOM](api, "UOM", query.ListParams{
			MaxSize: 100, OrderBy: "name", Order: "asc",
		}),
	}
}

// AccountsOfType lists accounts of one type; a blank type lists all of them.
func (s *Service) AccountsOfType(ctx context.Context, typ string, q espo.ListQuery) (espo.List[Account], error) {
	if typ != "" {
		q.Where = append([]query.Predicate{query.Equals("type", typ)}, q.Where...)
	}
	return s.Accounts.List(ctx, q)
}

func (s *Service) Suppliers(ctx context.Context, q espo.ListQuery) (espo.List[Account], error) {
	return s.AccountsOfType(ctx, AccountTypeSupplier, q)
}

type SmartSettings struct {
	DefaultInventoryTransactionType string `json:"defaultInventoryTransactionType"`
	DefaultMaterialsWarehouseID     string `json:"defaultMaterialsWarehouseId"`
	DefaultProductWarehouseID       string `json:"defaultProductWarehouseId"`
}

type Settings struct {
	SmartSettings SmartSettings `json:"smartSettings"`
}

func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	var out Settings
	if err := s.api.Get(ctx, "/Settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) SmartSettings(ctx context.Context) (SmartSettings, error) {
	st, err := s.Settings(ctx)
	if err != nil {
		return SmartSettings{}, err
	}
	return st.SmartSettings, nil
}

// ReloadTarget is an entity the ERP can push a fresh copy of.
type ReloadTarget string

const (
	ReloadTransactionTypes ReloadTarget = "InventoryTransactionType"
	ReloadProducts         ReloadTarget = "Product"
	ReloadWarehouses       ReloadTarget = "Warehouse"
)

func (t ReloadTarget) valid() bool {
	switch t {
	case ReloadTransactionTypes, ReloadProducts, ReloadWarehouses:
		return true
	}
	return false
}

type ReloadedItem struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	AbraID int    `json:"abraId"`
	Name   string `json:"name"`
}

type ReloadResult struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	EntityType string         `json:"entityType"`
	Evidence   string         `json:"evidence"`
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Deleted    int            `json:"deleted"`
	Errors     int            `json:"errors"`
	Items      []ReloadedItem `json:"items"`
}

// Reload asks the CRM to resync one entity from the ERP. The call is synchronous
// and may take a while for products.
func (s *Service) Reload(ctx context.Context, t ReloadTarget) (*ReloadResult, error) {
	if !t.valid() {
		return nil, apperr.Invalid("target", "unknown reload target "+string(t))
	}
	var out ReloadResult
	if err := s.api.Get(ctx, "/ReloadAbra/"+string(t), nil, &out); err != nil {
		return nil, err
	}
	logx.From(ctx, s.log).Info("erp reload finished",
		zap.String("target", string(t)),
		zap.Int("processed", out.Processed),
		zap.Int("deleted", out.Deleted),
		zap.Int("errors", out.Errors),
	)
	return &out, nil
}

type SearchHit struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EntityType string `json:"_scope"`
}

// GlobalSearch runs the CRM's cross-entity search. Blank queries return nothing
// without a call.
func (s *Service) GlobalSearch(ctx context.Context, q string, maxSize, offset int) (espo.List[SearchHit], error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return espo.List[SearchHit]{List: []SearchHit{}}, nil
	}
	if maxSize <= 0 {
		maxSize = 10
	}
	v := url.Values{}
	v.Set("q", q)
	v.Set("maxSize", strconv.Itoa(maxSize))
	v.Set("offset", strconv.Itoa(offset))

	var out espo.List[SearchHit]
	if err := s.api.Get(ctx, "/GlobalSearch", v, &out); err != nil {
		return out, err
	}
	if out.List == nil {
		out.List = []SearchHit{}
	}
	return out, nil
}
