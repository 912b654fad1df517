package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-warehouse-ops/internal/packages"
	"github.com/go-chi/chi/v5"
)

func (h *handlers) listPackages(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Packages.List(r.Context(), packages.ListQuery{
		Search: r.URL.Query().Get("search"), MaxSize: p.maxSize, Offset: p.offset,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type packageView struct {
	*packages.Detail
	LabelURL string `json:"labelUrl,omitempty"`
}

func (h *handlers) getPackage(w http.ResponseWriter, r *http.Request) {
	d, err := h.Packages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v := packageView{Detail: d}
	if d.LabelID != "" {
		v.LabelURL = h.Packages.LabelURL(d.LabelID)
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handlers) packageItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Packages.Items(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handlers) packageAction(do func(ctx context.Context, id string) (packages.Package, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := do(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *handlers) failPackage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Packages.MarkError(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
