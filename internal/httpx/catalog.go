package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/catalog"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/production"
	"github.com/ariefcatur/go-warehouse-ops/internal/search"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *handlers) listCatalog(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := espo.ListQuery{Search: r.URL.Query().Get("search"), MaxSize: p.maxSize, Offset: p.offset}
	ctx := r.Context()

	var res any
	switch kind := chi.URLParam(r, "kind"); kind {
	case "products":
		res, err = h.Catalog.Products.List(ctx, q)
	case "warehouses":
		res, err = h.Catalog.Warehouses.List(ctx, q)
	case "carriers":
		res, err = h.Catalog.Carriers.List(ctx, q)
	case "transaction-types":
		res, err = h.Catalog.TransactionTypes.List(ctx, q)
	case "workers":
		res, err = h.Catalog.Workers.List(ctx, q)
	case "accounts":
		res, err = h.Catalog.AccountsOfType(ctx, r.URL.Query().Get("type"), q)
	case "suppliers":
		res, err = h.Catalog.Suppliers(ctx, q)
	case "product-groups":
		res, err = h.Catalog.ProductGroups.List(ctx, q)
	case "uoms":
		res, err = h.Catalog.UOMs.List(ctx, q)
	default:
		err = &apperr.NotFoundError{Entity: "Catalog", Key: kind}
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) smartSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Catalog.SmartSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	res, err := h.Catalog.Reload(r.Context(), catalog.ReloadTarget(chi.URLParam(r, "target")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) globalSearch(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Catalog.GlobalSearch(r.Context(), r.URL.Query().Get("q"), p.maxSize, p.offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

const lookupIdle = 10 * time.Minute

// lookups holds one debounced autocomplete per session and kind.
type lookups struct {
	products  *search.Pool[catalog.Product]
	suppliers *search.Pool[catalog.Account]
	accounts  *search.Pool[catalog.Account]
	workers   *search.Pool[catalog.Worker]
}

func newLookups(c *catalog.Service, log *zap.Logger) *lookups {
	if c == nil {
		return &lookups{}
	}
	opt := search.WithLogger(log)
	return &lookups{
		products:  search.NewPool(search.Products(c), lookupIdle, opt),
		suppliers: search.NewPool(search.Suppliers(c), lookupIdle, opt),
		accounts:  search.NewPool(search.Accounts(c), lookupIdle, opt),
		workers:   search.NewPool(search.Workers(c), lookupIdle, opt),
	}
}

func lookup[T any](ctx context.Context, p *search.Pool[T], key, q string) (any, error) {
	return p.Lookup(ctx, key, q)
}

// autocomplete answers 204 when a newer lookup from the same session
// superseded this one.
func (h *handlers) autocomplete(w http.ResponseWriter, r *http.Request) {
	key, err := sessionKeyFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query().Get("q")
	ctx := r.Context()

	var items any
	switch kind := chi.URLParam(r, "kind"); kind {
	case "products":
		items, err = lookup(ctx, h.lookups.products, key, q)
	case "suppliers":
		items, err = lookup(ctx, h.lookups.suppliers, key, q)
	case "accounts":
		items, err = lookup(ctx, h.lookups.accounts, key, q)
	case "workers":
		items, err = lookup(ctx, h.lookups.workers, key, q)
	default:
		err = &apperr.NotFoundError{Entity: "Autocomplete", Key: kind}
	}
	switch {
	case errors.Is(err, search.ErrSuperseded):
		w.WriteHeader(http.StatusNoContent)
	case err != nil:
		h.fail(w, r, err)
	default:
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *handlers) auditHistory(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		h.fail(w, r, &apperr.NotFoundError{Entity: "AuditTrail", Key: "not configured"})
		return
	}
	limit, err := intParam(r, "limit", 100)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.Audit.History(r.Context(), chi.URLParam(r, "entity"), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handlers) listProductionOrders(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	booked, err := boolParam(r, "booked")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := h.Production.List(r.Context(), production.Filters{
		Search:    q.Get("search"),
		Status:    q.Get("status"),
		ProductID: q.Get("productId"),
		WorkerID:  strings.TrimSpace(q.Get("workerId")),
		Booked:    booked,
		MaxSize:   p.maxSize,
		Offset:    p.offset,
		OrderBy:   q.Get("orderBy"),
		Order:     q.Get("order"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) getProductionOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Production.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) createProductionOrder(w http.ResponseWriter, r *http.Request) {
	var req production.CreateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Production.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *handlers) updateProductionOrder(w http.ResponseWriter, r *http.Request) {
	var req production.UpdateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Production.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) deleteProductionOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Production.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
