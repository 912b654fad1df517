package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo/espotest"
	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/ariefcatur/go-warehouse-ops/internal/inventory"
	"github.com/ariefcatur/go-warehouse-ops/internal/reports"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, routes func(chi.Router), args ...string) (*espotest.Server, *events.Recorder, string, error) {
	t.Helper()
	srv, api := espotest.New(t, routes)
	rec := &events.Recorder{}
	root := NewRootCmd(api, rec)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append(args, "--log-env", "test"))
	err := root.Execute()
	return srv, rec, out.String(), err
}

func TestPackPrintsNewStatus(t *testing.T) {
	srv, rec, out, err := run(t, func(r chi.Router) {
		r.Get("/Package/p1", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, map[string]any{"id": "p1", "status": "TO_PACK"})
		})
		r.Post("/Package/p1/markAsPacked", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, map[string]any{})
		})
	}, "package", "pack", "p1")

	require.NoError(t, err)
	assert.Contains(t, out, `"PACKED"`)
	assert.Len(t, srv.CallsTo(http.MethodPost, "/Package/p1/markAsPacked"), 1)
	assert.Equal(t, []string{events.EventPackagePacked}, rec.Types())
}

func TestPackFromPackedIsRejectedLocally(t *testing.T) {
	srv, _, _, err := run(t, func(r chi.Router) {
		r.Get("/Package/p1", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, map[string]any{"id": "p1", "status": "PACKED"})
		})
	}, "package", "pack", "p1")

	assert.True(t, apperr.IsInvalidTransition(err))
	assert.Empty(t, srv.CallsTo(http.MethodPost, "/Package/p1/markAsPacked"))
}

func TestPurchaseDoneRequiresPurchased(t *testing.T) {
	srv, _, _, err := run(t, func(r chi.Router) {
		r.Get("/PurchaseRequest/pr1", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, map[string]any{"id": "pr1", "status": "New"})
		})
	}, "purchase", "done", "pr1")

	assert.True(t, apperr.IsInvalidTransition(err))
	assert.Empty(t, srv.CallsTo(http.MethodPatch, "/PurchaseRequest/pr1"))
}

func TestReloadUnknownTargetMakesNoCall(t *testing.T) {
	srv, _, _, err := run(t, func(chi.Router) {}, "reload", "Invoice")

	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, srv.Calls())
}

func TestInventorySyncReplacesItemsFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"id": "i1", "productId": "prod-1", "quantity": 3},
		{"productId": "prod-2", "quantity": 1}
	]`), 0o644))

	srv, rec, out, err := run(t, func(r chi.Router) {
		r.Get("/InventoryTransaction/tx1/items", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, espotest.ListOf(2, []inventory.Item{
				{ID: "i1", ProductID: "prod-1", Quantity: 1},
				{ID: "i2", ProductID: "prod-9", Quantity: 4},
			}))
		})
		r.Put("/InventoryTransaction/tx1", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, map[string]any{"id": "tx1", "name": "Receipt 7"})
		})
	}, "inventory", "sync", "tx1", "--file", file)

	require.NoError(t, err)
	assert.Contains(t, out, "Receipt 7")

	puts := srv.CallsTo(http.MethodPut, "/InventoryTransaction/tx1")
	require.Len(t, puts, 1)
	var body struct {
		Items []inventory.Item `json:"items"`
	}
	puts[0].Decode(t, &body)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "i1", body.Items[0].ID)
	assert.Empty(t, body.Items[1].ID)

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TopicTransactionEvents, evs[0].Topic)
}

func TestInventorySyncRejectsBadItemBeforeCalling(t *testing.T) {
	file := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"productId": "prod-1", "quantity": 0}]`), 0o644))

	srv, _, _, err := run(t, func(chi.Router) {}, "inventory", "sync", "tx1", "--file", file)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, ve.Index)
	assert.Equal(t, "quantity", ve.Field)
	assert.Empty(t, srv.Calls())
}

func TestCardsSummary(t *testing.T) {
	_, _, out, err := run(t, func(r chi.Router) {
		r.Get("/Product/prod-1/inventoryCards", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, espotest.ListOf(2, []inventory.Card{
				{ID: "c1", WarehouseID: "w1", CurrentStockQuantity: 5, CurrentStockValue: 500},
				{ID: "c2", WarehouseID: "w2", CurrentStockQuantity: 2, CurrentStockValue: 220},
			}))
		})
	}, "inventory", "cards", "prod-1", "--summary")

	require.NoError(t, err)
	var got inventory.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.TotalCards)
	assert.InDelta(t, 7, got.TotalStockQuantity, 1e-9)
	assert.InDelta(t, 720, got.TotalStockValue, 1e-9)
}

func salesOrders(r chi.Router) {
	r.Get("/SalesOrder", func(w http.ResponseWriter, r *http.Request) {
		espotest.JSON(w, http.StatusOK, espotest.ListOf(2, []reports.RawOrder{
			{ID: "o1", CreatedAt: "2025-06-01 10:00:00", PriceWithVat: 100},
			{ID: "o2", CreatedAt: "2025-06-01 11:00:00", PriceWithVat: 100},
		}))
	})
}

func TestReportUsesConfiguredEstimates(t *testing.T) {
	_, _, out, err := run(t, salesOrders, "report", "--channel", "CZ-ESHOP",
		"--cost-ratio", "0.5", "--shipping-fee", "10", "--currency", "EUR")

	require.NoError(t, err)
	var rows []reports.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 100.0, rows[0].TotalCost)
	assert.Equal(t, 20.0, rows[0].ShippingFees)
	assert.Equal(t, "EUR", rows[0].Currency)
}

func TestReportEstimatesFromEnvironment(t *testing.T) {
	t.Setenv("REPORT_COST_RATIO", "0.25")
	t.Setenv("WH_SHIPPING_FEE", "5")

	_, _, out, err := run(t, salesOrders, "report", "--channel", "CZ-ESHOP")

	require.NoError(t, err)
	var rows []reports.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 50.0, rows[0].TotalCost)
	assert.Equal(t, 10.0, rows[0].ShippingFees)
	assert.Equal(t, "CZK", rows[0].Currency)
}

func TestReportRejectsNegativeEstimate(t *testing.T) {
	srv, _, _, err := run(t, salesOrders, "report", "--channel", "CZ-ESHOP", "--shipping-fee", "-1")

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "shipping-fee", ve.Field)
	assert.Empty(t, srv.Calls())
}
