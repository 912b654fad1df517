package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo/espotest"
	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is an in-memory CRM that implements both the batch items contract
// and the per-item endpoints.
type backend struct {
	mu     sync.Mutex
	items  map[string][]Item
	nextID int
	broken map[string]bool
}

func newBackend() *backend {
	return &backend{items: map[string][]Item{}, broken: map[string]bool{}}
}

func (b *backend) id() string {
	b.nextID++
	return "new-" + strconv.Itoa(b.nextID)
}

func (b *backend) routes(r chi.Router) {
	r.Get("/InventoryTransaction/{id}/items", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id := chi.URLParam(r, "id")
		if b.broken[id] {
			http.Error(w, "database is on fire", http.StatusInternalServerError)
			return
		}
		items := append([]Item(nil), b.items[id]...)
		espotest.JSON(w, http.StatusOK, espotest.ListOf(len(items), items))
	})
	r.Put("/InventoryTransaction/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		defer b.mu.Unlock()
		id := chi.URLParam(r, "id")
		if raw, ok := body["items"]; ok {
			var desired []Item
			_ = json.Unmarshal(raw, &desired)
			next := []Item{}
			for _, it := range b.items[id] {
				for _, d := range desired {
					if d.ID == it.ID {
						next = append(next, d)
					}
				}
			}
			for _, d := range desired {
				if d.ID == "" {
					d.ID = b.id()
					next = append(next, d)
				}
			}
			b.items[id] = next
		}
		espotest.JSON(w, http.StatusOK, Transaction{ID: id})
	})
	r.Post("/InventoryTransactionItem", func(w http.ResponseWriter, r *http.Request) {
		var it Item
		_ = json.NewDecoder(r.Body).Decode(&it)
		b.mu.Lock()
		defer b.mu.Unlock()
		tx := it.InventoryTransactionID
		it.ID, it.InventoryTransactionID = b.id(), ""
		b.items[tx] = append(b.items[tx], it)
		espotest.JSON(w, http.StatusOK, it)
	})
	r.Put("/InventoryTransactionItem/{id}", func(w http.ResponseWriter, r *http.Request) {
		var it Item
		_ = json.NewDecoder(r.Body).Decode(&it)
		b.mu.Lock()
		defer b.mu.Unlock()
		tx := it.InventoryTransactionID
		for i, cur := range b.items[tx] {
			if cur.ID == chi.URLParam(r, "id") {
				it.ID, it.InventoryTransactionID = cur.ID, ""
				b.items[tx][i] = it
				espotest.JSON(w, http.StatusOK, it)
				return
			}
		}
		http.Error(w, "not found", http.StatusNotFound)
	})
	r.Delete("/InventoryTransaction/{tx}/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		tx := chi.URLParam(r, "tx")
		out := []Item{}
		for _, it := range b.items[tx] {
			if it.ID != chi.URLParam(r, "id") {
				out = append(out, it)
			}
		}
		b.items[tx] = out
		espotest.JSON(w, http.StatusOK, true)
	})
}

func (b *backend) state(tx string) []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Item(nil), b.items[tx]...)
}

func newInventory(t *testing.T) (*Service, *backend, *espotest.Server, *events.Recorder) {
	b := newBackend()
	srv, c := espotest.New(t, b.routes)
	rec := &events.Recorder{}
	return NewService(c, rec, nil), b, srv, rec
}

func seed() []Item {
	return []Item{{ID: "1", ProductID: "A", Quantity: 1}, {ID: "2", ProductID: "B", Quantity: 1}}
}

func TestReplaceItemsBatch(t *testing.T) {
	s, b, srv, rec := newInventory(t)
	b.items["tx1"] = seed()

	_, err := s.ReplaceItems(context.Background(), "tx1", []Item{{ID: "1", ProductID: "A", Quantity: 5}, {ProductID: "C", Quantity: 3}})
	require.NoError(t, err)

	end := b.state("tx1")
	require.Len(t, end, 2)
	assert.Equal(t, Item{ID: "1", ProductID: "A", Quantity: 5}, end[0])
	assert.Equal(t, "C", end[1].ProductID)
	assert.NotEmpty(t, end[1].ID)

	puts := srv.CallsTo(http.MethodPut, "/InventoryTransaction/tx1")
	require.Len(t, puts, 1)
	assert.JSONEq(t, `{"items":[{"id":"1","productId":"A","quantity":5},{"productId":"C","quantity":3}]}`, string(puts[0].Body))

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, events.TransactionItemsSynced{TransactionID: "tx1", Mode: "batch", Updated: 1, Created: 1, Deleted: 1}, rec.Events()[0].Payload)
}

func TestUpdateItemsKeyContract(t *testing.T) {
	s, b, srv, rec := newInventory(t)
	b.items["tx1"] = seed()
	ctx := context.Background()

	name := "Receipt 42"
	_, err := s.Update(ctx, "tx1", UpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Receipt 42"}`, string(srv.CallsTo(http.MethodPut, "/InventoryTransaction/tx1")[0].Body))
	assert.Len(t, b.state("tx1"), 2, "items untouched")
	assert.Empty(t, srv.CallsTo(http.MethodGet, "/InventoryTransaction/tx1/items"), "no diff without items")
	assert.Empty(t, rec.Events())

	var none []Item
	_, err = s.Update(ctx, "tx1", UpdateRequest{Items: &none})
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(srv.CallsTo(http.MethodPut, "/InventoryTransaction/tx1")[1].Body))
	assert.Empty(t, b.state("tx1"))
}

func TestUpdateValidatesBeforeIO(t *testing.T) {
	s, b, srv, _ := newInventory(t)
	b.items["tx1"] = seed()
	ctx := context.Background()

	_, err := s.ReplaceItems(ctx, "tx1", []Item{{ID: "1", ProductID: "A", Quantity: 0}})
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, srv.Calls())

	_, err = s.ReplaceItems(ctx, "tx1", []Item{{ID: "99", ProductID: "A", Quantity: 1}})
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, srv.CallsTo(http.MethodPut, "/InventoryTransaction/tx1"), "unknown id never reaches the PUT")
	assert.Len(t, b.state("tx1"), 2)
}

type endItem struct {
	Product  string
	Quantity float64
	Kept     string
}

// normalize drops server-assigned ids of created items so two backends can be compared.
func normalize(items []Item, original map[string]bool) []endItem {
	out := make([]endItem, 0, len(items))
	for _, it := range items {
		e := endItem{Product: it.ProductID, Quantity: it.Quantity}
		if original[it.ID] {
			e.Kept = it.ID
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}

func TestBatchAndLegacyReachSameEndState(t *testing.T) {
	price := 12.5
	inputs := [][]Item{
		{{ID: "1", ProductID: "A", Quantity: 5}, {ProductID: "C", Quantity: 3}},
		{},
		{{ID: "1", ProductID: "A", Quantity: 1}, {ID: "2", ProductID: "B", Quantity: 1}},
		{{ID: "2", ProductID: "B", Quantity: 7, Price: &price}, {ProductID: "D", Quantity: 1}, {ProductID: "E", Quantity: 2}},
	}
	original := map[string]bool{"1": true, "2": true}

	for i, desired := range inputs {
		batch, bb, _, _ := newInventory(t)
		legacy, lb, _, rec := newInventory(t)
		bb.items["tx"], lb.items["tx"] = seed(), seed()
		ctx := context.Background()

		_, err := batch.ReplaceItems(ctx, "tx", desired)
		require.NoError(t, err)
		p, err := legacy.SyncItemsLegacy(ctx, "tx", desired)
		require.NoError(t, err)

		want := normalize(Apply(seed(), p), original)
		assert.Equal(t, want, normalize(bb.state("tx"), original), "batch case %d", i)
		assert.Equal(t, want, normalize(lb.state("tx"), original), "legacy case %d", i)
		assert.Equal(t, []string{events.EventTransactionItemsSynced}, rec.Types())
	}
}

func TestLegacyItemEndpoints(t *testing.T) {
	s, b, srv, _ := newInventory(t)
	b.items["tx1"] = seed()
	ctx := context.Background()

	added, err := s.AddItem(ctx, "tx1", Item{ProductID: "Z", Quantity: 2})
	require.NoError(t, err)
	var body Item
	srv.CallsTo(http.MethodPost, "/InventoryTransactionItem")[0].Decode(t, &body)
	assert.Equal(t, "tx1", body.InventoryTransactionID)

	_, err = s.UpdateItem(ctx, "tx1", "1", Item{ProductID: "A", Quantity: 9})
	require.NoError(t, err)
	require.NoError(t, s.DeleteItem(ctx, "tx1", "2"))
	require.Len(t, srv.CallsTo(http.MethodDelete, "/InventoryTransaction/tx1/items/2"), 1)

	assert.Equal(t, []Item{{ID: "1", ProductID: "A", Quantity: 9}, {ID: added.ID, ProductID: "Z", Quantity: 2}}, b.state("tx1"))

	_, err = s.AddItem(ctx, "tx1", Item{Quantity: 2})
	assert.True(t, apperr.IsValidation(err))
}

func TestLoadItemsDegradesPerTransaction(t *testing.T) {
	s, b, _, _ := newInventory(t)
	b.items["tx1"] = seed()
	b.items["tx3"] = []Item{{ID: "9", ProductID: "Q", Quantity: 1}}
	b.broken["tx2"] = true

	res := s.LoadItems(context.Background(), []string{"tx1", "tx2", "tx3"})
	assert.Len(t, res.Items["tx1"], 2)
	assert.NotNil(t, res.Items["tx2"])
	assert.Empty(t, res.Items["tx2"])
	assert.Len(t, res.Items["tx3"], 1)

	var pf *apperr.PartialFailure
	require.ErrorAs(t, res.Err(), &pf)
	assert.Equal(t, 3, pf.Total)
	assert.Contains(t, pf.Failures, "tx2")
}

func TestListFilters(t *testing.T) {
	var got []string
	srv, c := espotest.New(t, func(r chi.Router) {
		r.Get("/InventoryTransaction", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, espotest.ListOf(0, []Transaction{}))
		})
	})
	s := NewService(c, nil, nil)

	_, err := s.List(context.Background(), Filters{TypeID: "receipt", WarehouseID: "wh1", DateFrom: "2025-01-01", DateTo: "2025-01-31"})
	require.NoError(t, err)
	q := srv.CallsTo(http.MethodGet, "/InventoryTransaction")[0].Query
	for _, k := range []string{
		"whereGroup[0][type]", "whereGroup[0][value]",
		"whereGroup[1][type]", "whereGroup[1][value][1][attribute]",
		"whereGroup[2][type]", "whereGroup[2][value][0]", "whereGroup[2][value][1]",
		"maxSize",
	} {
		got = append(got, q.Get(k))
	}
	assert.Equal(t, []string{"equals", "receipt", "or", "warehouseToId", "between", "2025-01-01", "2025-01-31", "200"}, got)
}

func TestCreateRequiresHeader(t *testing.T) {
	s, _, srv, _ := newInventory(t)
	_, err := s.Create(context.Background(), CreateRequest{Name: "x", InventoryTransactionTypeID: "t"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "transactionDate", ve.Field)

	_, err = s.Create(context.Background(), CreateRequest{Name: "x", InventoryTransactionTypeID: "t", TransactionDate: "2025-01-01", Items: []Item{{ProductID: "A"}}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, ve.Index)
	assert.Empty(t, srv.Calls())
}

func TestCardSummary(t *testing.T) {
	cards := Cards{
		{ID: "c1", WarehouseID: "w1", AccountingPeriodID: "2025", CurrentStockQuantity: 0, CurrentStockValue: 0, AverageCostPrice: 10},
		{ID: "c2", WarehouseID: "w2", AccountingPeriodID: "2025", CurrentStockQuantity: 5, CurrentStockValue: 50, AverageCostPrice: 20},
		{ID: "c3", WarehouseID: "w3", AccountingPeriodID: "2024", CurrentStockQuantity: 40, CurrentStockValue: 400, AverageCostPrice: 30},
	}
	sum := cards.Summary()
	assert.Equal(t, 3, sum.TotalCards)
	assert.Equal(t, 45.0, sum.TotalStockQuantity)
	assert.Equal(t, 450.0, sum.TotalStockValue)
	assert.Equal(t, 20.0, sum.AverageCostPrice)
	assert.Len(t, sum.LowStock, 2)
	assert.Len(t, sum.Empty, 1)
	assert.Len(t, sum.Available, 2)

	c, ok := cards.ByWarehouse("w2")
	assert.True(t, ok)
	assert.Equal(t, "c2", c.ID)
	_, ok = cards.ByWarehouse("nope")
	assert.False(t, ok)
	assert.Len(t, cards.ByAccountingPeriod("2025"), 2)

	assert.Equal(t, 0.0, Cards{}.AverageCostPrice())
	assert.NotNil(t, Cards{}.LowStock())
}

func TestCardMoneyFoldsWithoutFloatDrift(t *testing.T) {
	cards := Cards{
		{ID: "c1", CurrentStockValue: 0.1, AverageCostPrice: 10},
		{ID: "c2", CurrentStockValue: 0.2, AverageCostPrice: 10},
		{ID: "c3", CurrentStockValue: 1.005, AverageCostPrice: 10.01},
	}
	assert.Equal(t, 1.31, cards.TotalStockValue())
	assert.Equal(t, 10.0, cards.AverageCostPrice())

	halves := Cards{{AverageCostPrice: 0.01}, {AverageCostPrice: 0.02}}
	assert.Equal(t, 0.02, halves.AverageCostPrice())
}

func TestCardsByProduct(t *testing.T) {
	srv, c := espotest.New(t, func(r chi.Router) {
		r.Get("/Product/{id}/inventoryCards", func(w http.ResponseWriter, r *http.Request) {
			espotest.JSON(w, http.StatusOK, espotest.ListOf(1, []Card{{ID: "c1", CurrentStockQuantity: 3}}))
		})
	})
	s := NewService(c, nil, nil)
	cards, err := s.CardsByProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Len(t, cards.LowStock(), 1)
	q := srv.CallsTo(http.MethodGet, "/Product/prod-1/inventoryCards")[0].Query
	assert.Equal(t, "20", q.Get("maxSize"))
	assert.Contains(t, q.Get("attributeSelect"), "currentStockQuantityWithIssueRequests")
}
