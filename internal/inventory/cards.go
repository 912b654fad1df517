package inventory

import (
	"context"
	"net/url"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"github.com/shopspring/decimal"
)

// LowStockThreshold is the quantity below which a card counts as low stock.
const LowStockThreshold = 10

// Card is the stock position of one product in one warehouse and accounting period.
type Card struct {
	ID                                    string  `json:"id"`
	CreatedAt                             string  `json:"createdAt,omitempty"`
	AverageCostPrice                      float64 `json:"averageCostPrice"`
	AverageCostPriceCurrency              string  `json:"averageCostPriceCurrency,omitempty"`
	CurrentStockQuantity                  float64 `json:"currentStockQuantity"`
	CurrentStockValue                     float64 `json:"currentStockValue"`
	CurrentStockValueCurrency             string  `json:"currentStockValueCurrency,omitempty"`
	IssueRequestQuantity                  float64 `json:"issueRequestQuantity"`
	CurrentStockQuantityWithIssueRequests float64 `json:"currentStockQuantityWithIssueRequests"`
	LastCostPrice                         float64 `json:"lastCostPrice"`
	LastCostPriceCurrency                 string  `json:"lastCostPriceCurrency,omitempty"`
	WarehouseID                           string  `json:"warehouseId"`
	WarehouseName                         string  `json:"warehouseName,omitempty"`
	AccountingPeriodID                    string  `json:"accountingPeriodId"`
	AccountingPeriodName                  string  `json:"accountingPeriodName,omitempty"`
}

var cardFields = []string{
	"accountingPeriodId", "accountingPeriodName", "warehouseId", "warehouseName",
	"currentStockQuantity", "issueRequestQuantity", "currentStockQuantityWithIssueRequests",
	"currentStockValueCurrency", "currentStockValue", "averageCostPriceCurrency", "averageCostPrice",
	"lastCostPriceCurrency", "lastCostPrice", "createdAt",
}

func (s *Service) CardsByProduct(ctx context.Context, productID string) (Cards, error) {
	if productID == "" {
		return nil, apperr.Invalid("productId", "required")
	}
	params := query.ListParams{MaxSize: 20, OrderBy: "createdAt", Order: "desc", Select: cardFields}.Values()
	var out espo.List[Card]
	if err := s.api.Get(ctx, "/Product/"+url.PathEscape(productID)+"/inventoryCards", params, &out); err != nil {
		return nil, err
	}
	if out.List == nil {
		return Cards{}, nil
	}
	return out.List, nil
}

func (s *Service) Card(ctx context.Context, id string) (*Card, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	var c Card
	if err := s.api.Get(ctx, "/InventoryCard/"+url.PathEscape(id), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) ListCards(ctx context.Context, maxSize, offset int) (espo.List[Card], error) {
	if maxSize <= 0 {
		maxSize = listPageSize
	}
	params := query.ListParams{MaxSize: maxSize, Offset: offset, OrderBy: "createdAt", Order: "desc"}.Values()
	var out espo.List[Card]
	err := s.api.Get(ctx, "/InventoryCard", params, &out)
	return out, err
}

// Cards is a product's card set with the folds the stock view shows.
type Cards []Card

func (cs Cards) TotalStockQuantity() float64 {
	var sum float64
	for _, c := range cs {
		sum += c.CurrentStockQuantity
	}
	return sum
}

func (cs Cards) sumMoney(field func(Card) float64) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range cs {
		sum = sum.Add(decimal.NewFromFloat(field(c)))
	}
	return sum
}

// TotalStockValue is rounded half away from zero to 2 decimals.
func (cs Cards) TotalStockValue() float64 {
	return cs.sumMoney(func(c Card) float64 { return c.CurrentStockValue }).Round(2).InexactFloat64()
}

// AverageCostPrice is the unweighted mean of the cards' average cost prices,
// rounded like TotalStockValue.
func (cs Cards) AverageCostPrice() float64 {
	if len(cs) == 0 {
		return 0
	}
	sum := cs.sumMoney(func(c Card) float64 { return c.AverageCostPrice })
	return sum.Div(decimal.NewFromInt(int64(len(cs)))).Round(2).InexactFloat64()
}

func (cs Cards) filter(keep func(Card) bool) Cards {
	out := Cards{}
	for _, c := range cs {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (cs Cards) LowStock() Cards {
	return cs.filter(func(c Card) bool { return c.CurrentStockQuantity < LowStockThreshold })
}

func (cs Cards) Empty() Cards {
	return cs.filter(func(c Card) bool { return c.CurrentStockQuantity == 0 })
}

func (cs Cards) Available() Cards {
	return cs.filter(func(c Card) bool { return c.CurrentStockQuantity > 0 })
}

// ByWarehouse returns the first card of the warehouse.
func (cs Cards) ByWarehouse(warehouseID string) (Card, bool) {
	for _, c := range cs {
		if c.WarehouseID == warehouseID {
			return c, true
		}
	}
	return Card{}, false
}

func (cs Cards) ByAccountingPeriod(periodID string) Cards {
	return cs.filter(func(c Card) bool { return c.AccountingPeriodID == periodID })
}

type Summary struct {
	TotalCards         int     `json:"totalCards"`
	TotalStockQuantity float64 `json:"totalStockQuantity"`
	TotalStockValue    float64 `json:"totalStockValue"`
	AverageCostPrice   float64 `json:"averageCostPrice"`
	LowStock           Cards   `json:"lowStock"`
	Empty              Cards   `json:"empty"`
	Available          Cards   `json:"available"`
}

func (cs Cards) Summary() Summary {
	return Summary{
		TotalCards:         len(cs),
		TotalStockQuantity: cs.TotalStockQuantity(),
		TotalStockValue:    cs.TotalStockValue(),
		AverageCostPrice:   cs.AverageCostPrice(),
		LowStock:           cs.LowStock(),
		Empty:              cs.Empty(),
		Available:          cs.Available(),
	}
}
