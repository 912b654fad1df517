// Package reports folds sales orders into daily or monthly revenue rows.
package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Period string

const (
	Daily   Period = "daily"
	Monthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", Daily:
		return Daily, nil
	case Monthly:
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// RawOrder is the projection of SalesOrder the report reads.
type RawOrder struct {
	ID              string   `json:"id"`
	CreatedAt       string   `json:"createdAt"`
	PriceWithVat    float64  `json:"priceWithVat"`
	PriceWithoutVat *float64 `json:"priceWithoutVat,omitempty"`
	Currency        string   `json:"currency"`
	Channel         string   `json:"channel,omitempty"`
	CarrierID       string   `json:"carrierId,omitempty"`
	CarrierName     string   `json:"carrierName,omitempty"`
}

// net falls back to the gross price when the net price is missing or zero.
func (o RawOrder) net() float64 {
	if o.PriceWithoutVat != nil && *o.PriceWithoutVat != 0 {
		return *o.PriceWithoutVat
	}
	return o.PriceWithVat
}

type Row struct {
	Date                   string  `json:"date"`
	OrderCount             int     `json:"orderCount"`
	TotalCost              float64 `json:"totalCost"`
	RevenueWithoutShipping float64 `json:"revenueWithoutShipping"`
	TotalRevenue           float64 `json:"totalRevenue"`
	ShippingFees           float64 `json:"shippingFees"`
	CostPercentage         float64 `json:"costPercentage"`
	Currency               string  `json:"currency"`
}

// Estimates stand in for real costing: cost is CostRatio of net revenue and
// shipping a flat fee per order.
type Estimates struct {
	CostRatio           float64
	ShippingFeePerOrder float64
	DefaultCurrency     string
}

var DefaultEstimates = Estimates{CostRatio: 0.6, ShippingFeePerOrder: 100, DefaultCurrency: "CZK"}

var timeLayouts = []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseCreatedAt(s string) (time.Time, error) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable createdAt %q", s)
}

// BucketKey truncates t (UTC) to YYYY-MM-DD or YYYY-MM.
func BucketKey(t time.Time, p Period) string {
	if p == Monthly {
		return t.UTC().Format("2006-01")
	}
	return t.UTC().Format("2006-01-02")
}

var hundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

type bucket struct {
	count    int
	gross    decimal.Decimal
	net      decimal.Decimal
	currency string
}

// Aggregate groups orders by bucket and returns rows sorted by key, newest first.
// Money fields are rounded half away from zero to 2 decimals; the cost percentage
// is computed from unrounded sums and is 0 when gross revenue is 0.
func Aggregate(orders []RawOrder, period Period, est Estimates) ([]Row, error) {
	buckets := map[string]*bucket{}
	for _, o := range orders {
		t, err := parseCreatedAt(o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}
		key := BucketKey(t, period)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		b.gross = b.gross.Add(decimal.NewFromFloat(o.PriceWithVat))
		b.net = b.net.Add(decimal.NewFromFloat(o.net()))
		if b.currency == "" {
			b.currency = o.Currency
		}
	}

	ratio := decimal.NewFromFloat(est.CostRatio)
	fee := decimal.NewFromFloat(est.ShippingFeePerOrder)

	rows := make([]Row, 0, len(buckets))
	for key, b := range buckets {
		cost := b.net.Mul(ratio)
		shipping := fee.Mul(decimal.NewFromInt(int64(b.count)))
		pct := decimal.Zero
		if b.gross.IsPositive() {
			pct = cost.Div(b.gross).Mul(hundred)
		}
		currency := b.currency
		if currency == "" {
			currency = est.DefaultCurrency
		}
		rows = append(rows, Row{
			Date:                   key,
			OrderCount:             b.count,
			TotalCost:              round2(cost),
			RevenueWithoutShipping: round2(b.gross.Sub(shipping)),
			TotalRevenue:           round2(b.gross),
			ShippingFees:           round2(shipping),
			CostPercentage:         round2(pct),
			Currency:               currency,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })
	return rows, nil
}
