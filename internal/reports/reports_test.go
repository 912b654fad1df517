package reports

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo/espotest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestAggregateDaily(t *testing.T) {
	orders := []RawOrder{
		{ID: "1", CreatedAt: "2025-03-02 08:00:00", PriceWithVat: 1210, PriceWithoutVat: ptr(1000), Currency: "CZK"},
		{ID: "2", CreatedAt: "2025-03-02 23:59:59", PriceWithVat: 605, PriceWithoutVat: ptr(500), Currency: "CZK"},
		{ID: "3", CreatedAt: "2025-03-01 10:00:00", PriceWithVat: 100.005},
		{ID: "4", CreatedAt: "2025-03-03T01:00:00+02:00", PriceWithVat: 50, Currency: "EUR"},
	}
	rows, err := Aggregate(orders, Daily, DefaultEstimates)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// 2025-03-03T01:00+02:00 is still the 2nd in UTC
	assert.Equal(t, "2025-03-02", rows[0].Date)
	d := rows[0]
	assert.Equal(t, 3, d.OrderCount)
	assert.Equal(t, 1865.0, d.TotalRevenue)
	assert.Equal(t, 930.0, d.TotalCost) // (1000+500+50)*0.6
	assert.Equal(t, 300.0, d.ShippingFees)
	assert.Equal(t, 1565.0, d.RevenueWithoutShipping)
	assert.Equal(t, 49.87, d.CostPercentage) // 930/1865*100 = 49.8659
	assert.Equal(t, "CZK", d.Currency)

	first := rows[1]
	assert.Equal(t, "2025-03-01", first.Date)
	assert.Equal(t, 100.01, first.TotalRevenue, "half away from zero")
	assert.Equal(t, "CZK", first.Currency, "falls back to the default currency")
}

func TestAggregateMonthlyAndOrdering(t *testing.T) {
	orders := []RawOrder{
		{ID: "a", CreatedAt: "2024-12-31 23:00:00", PriceWithVat: 10},
		{ID: "b", CreatedAt: "2025-01-15 12:00:00", PriceWithVat: 20},
		{ID: "c", CreatedAt: "2025-02-01 00:00:00", PriceWithVat: 30},
		{ID: "d", CreatedAt: "2025-01-01 00:00:00", PriceWithVat: 40},
	}
	rows, err := Aggregate(orders, Monthly, DefaultEstimates)
	require.NoError(t, err)

	var keys []string
	for _, r := range rows {
		keys = append(keys, r.Date)
	}
	assert.Equal(t, []string{"2025-02", "2025-01", "2024-12"}, keys)
	assert.Equal(t, 2, rows[1].OrderCount)
}

func TestAggregateZeroGrossGuardsDivision(t *testing.T) {
	rows, err := Aggregate([]RawOrder{{ID: "z", CreatedAt: "2025-01-01", PriceWithVat: 0}}, Daily, DefaultEstimates)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].CostPercentage)
	assert.Equal(t, -100.0, rows[0].RevenueWithoutShipping)
}

func TestAggregateCostPercentageProperty(t *testing.T) {
	for i := 1; i <= 40; i++ {
		gross := float64(i) * 37.13
		net := gross / 1.21
		orders := []RawOrder{{ID: "x", CreatedAt: "2025-05-05 05:05:05", PriceWithVat: gross, PriceWithoutVat: ptr(net)}}
		rows, err := Aggregate(orders, Daily, DefaultEstimates)
		require.NoError(t, err)
		want := math.Round(0.6*net/gross*100*100) / 100
		assert.InDelta(t, want, rows[0].CostPercentage, 0.0001, "gross %v", gross)
	}
}

func TestAggregateNetFallsBackToGross(t *testing.T) {
	orders := []RawOrder{{ID: "1", CreatedAt: "2025-01-01", PriceWithVat: 200, PriceWithoutVat: ptr(0)}}
	rows, err := Aggregate(orders, Daily, Estimates{CostRatio: 0.5, ShippingFeePerOrder: 10, DefaultCurrency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, rows[0].TotalCost)
	assert.Equal(t, 190.0, rows[0].RevenueWithoutShipping)
	assert.Equal(t, "EUR", rows[0].Currency)
}

func TestAggregateRejectsBadTimestamp(t *testing.T) {
	_, err := Aggregate([]RawOrder{{ID: "bad", CreatedAt: "yesterday"}}, Daily, DefaultEstimates)
	assert.ErrorContains(t, err, "order bad")
}

func newService(t *testing.T, failing map[string]bool) (*Service, *espotest.Server) {
	srv, c := espotest.New(t, func(r chi.Router) {
		r.Get("/SalesOrder", func(w http.ResponseWriter, r *http.Request) {
			ch := r.URL.Query().Get("whereGroup[0][value]")
			if failing[ch] {
				http.Error(w, "upstream exploded", http.StatusBadGateway)
				return
			}
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			var list []RawOrder
			for i := offset; i < offset+200 && i < 250; i++ {
				list = append(list, RawOrder{ID: strconv.Itoa(i), CreatedAt: "2025-06-01 10:00:00", PriceWithVat: 10, Currency: "CZK"})
			}
			espotest.JSON(w, http.StatusOK, espotest.ListOf(250, list))
		})
	})
	s := NewService(c, DefaultEstimates, nil)
	s.now = func() time.Time { return time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC) }
	return s, srv
}

func TestChannelReportQueriesAndPaginates(t *testing.T) {
	s, srv := newService(t, nil)
	rows, err := s.ChannelReport(context.Background(), "CZ-ESHOP", Daily, 30)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 250, rows[0].OrderCount)
	assert.Equal(t, 2500.0, rows[0].TotalRevenue)

	calls := srv.CallsTo(http.MethodGet, "/SalesOrder")
	require.Len(t, calls, 2)
	q := calls[0].Query
	assert.Equal(t, "equals", q.Get("whereGroup[0][type]"))
	assert.Equal(t, "channel", q.Get("whereGroup[0][attribute]"))
	assert.Equal(t, "after", q.Get("whereGroup[1][type]"))
	assert.Equal(t, "2025-05-31", q.Get("whereGroup[1][value]"))
	assert.Equal(t, "createdAt,priceWithVat,priceWithoutVat,currency,channel,carrierId,carrierName", q.Get("attributeSelect"))
	assert.Equal(t, "200", calls[1].Query.Get("offset"))
}

func TestChannelReportValidatesBeforeIO(t *testing.T) {
	s, srv := newService(t, nil)
	_, err := s.ChannelReport(context.Background(), "", Daily, 30)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, srv.Calls())
}

func TestAllChannelsDegradesFailingBranch(t *testing.T) {
	s, _ := newService(t, map[string]bool{"SK-ESHOP": true})
	res := s.AllChannels(context.Background(), []string{"CZ-ESHOP", "SK-ESHOP", "HU-ESHOP"}, Daily, 30)

	require.Len(t, res.Rows, 3)
	assert.Len(t, res.Rows["CZ-ESHOP"], 1)
	assert.Len(t, res.Rows["HU-ESHOP"], 1)
	assert.NotNil(t, res.Rows["SK-ESHOP"])
	assert.Empty(t, res.Rows["SK-ESHOP"])

	require.Contains(t, res.Failures, "SK-ESHOP")
	assert.True(t, apperr.IsTransport(res.Failures["SK-ESHOP"]))

	var pf *apperr.PartialFailure
	require.ErrorAs(t, res.Err(), &pf)
	assert.Equal(t, 3, pf.Total)
	assert.Len(t, pf.Failures, 1)
}

func TestAllChannelsCleanRun(t *testing.T) {
	s, _ := newService(t, nil)
	res := s.AllChannels(context.Background(), []string{"CZ-ESHOP", "SK-ESHOP"}, Monthly, 7)
	assert.NoError(t, res.Err())
	assert.Equal(t, "2025-06", res.Rows["SK-ESHOP"][0].Date)
}
