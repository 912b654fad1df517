package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/inventory"
	"github.com/go-chi/chi/v5"
)

func (h *handlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := h.Inventory.List(r.Context(), inventory.Filters{
		TypeID:      q.Get("typeId"),
		WarehouseID: q.Get("warehouseId"),
		DateFrom:    q.Get("dateFrom"),
		DateTo:      q.Get("dateTo"),
		MaxSize:     p.maxSize,
		Offset:      p.offset,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) getTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Inventory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handlers) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req inventory.CreateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.Inventory.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// updateTransaction passes "items" through as sent: absent or null leaves the
// items alone, [] deletes them all.
func (h *handlers) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var req inventory.UpdateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.Inventory.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handlers) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) transactionItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.Items(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// loadTransactionItems fans out over ?ids=a,b,c; failed transactions come back
// empty and are listed in failures.
func (h *handlers) loadTransactionItems(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, part := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		h.fail(w, r, apperr.Invalid("ids", "required"))
		return
	}
	res := h.Inventory.LoadItems(r.Context(), ids)
	writeJSON(w, http.StatusOK, partial{Data: res.Items, Failures: failureMessages(res.Failures)})
}

// The per-item endpoints below serve older front-end builds.

func (h *handlers) syncItemsLegacy(w http.ResponseWriter, r *http.Request) {
	var items []inventory.Item
	if err := decode(r, &items); err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := h.Inventory.SyncItemsLegacy(r.Context(), chi.URLParam(r, "id"), items)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *handlers) addItem(w http.ResponseWriter, r *http.Request) {
	var item inventory.Item
	if err := decode(r, &item); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.Inventory.AddItem(r.Context(), chi.URLParam(r, "id"), item)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handlers) updateItem(w http.ResponseWriter, r *http.Request) {
	var item inventory.Item
	if err := decode(r, &item); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.Inventory.UpdateItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), item)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.DeleteItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) productCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Inventory.CardsByProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if wh := r.URL.Query().Get("warehouseId"); wh != "" {
		c, ok := cards.ByWarehouse(wh)
		if !ok {
			h.fail(w, r, &apperr.NotFoundError{Entity: "InventoryCard", Key: "warehouseId=" + wh})
			return
		}
		writeJSON(w, http.StatusOK, c)
		return
	}
	if period := r.URL.Query().Get("accountingPeriodId"); period != "" {
		cards = cards.ByAccountingPeriod(period)
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *handlers) productCardsSummary(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Inventory.CardsByProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards.Summary())
}
