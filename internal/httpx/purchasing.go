package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-warehouse-ops/internal/purchasing"
	"github.com/go-chi/chi/v5"
)

func (h *handlers) listPurchaseRequests(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := h.Purchasing.List(r.Context(), purchasing.Filters{
		Status:  purchasing.Status(q.Get("status")),
		Search:  q.Get("search"),
		MaxSize: p.maxSize,
		Offset:  p.offset,
		OrderBy: q.Get("orderBy"),
		Order:   q.Get("order"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) getPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	pr, err := h.Purchasing.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *handlers) ignorePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
		Until  string `json:"until"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	pr, err := h.Purchasing.Ignore(r.Context(), chi.URLParam(r, "id"), req.Reason, req.Until)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *handlers) markPurchased(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExpectedDate string `json:"expectedDate"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	pr, err := h.Purchasing.MarkAsPurchased(r.Context(), chi.URLParam(r, "id"), req.ExpectedDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *handlers) purchaseAction(do func(ctx context.Context, id string) (*purchasing.PurchaseRequest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pr, err := do(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pr)
	}
}
