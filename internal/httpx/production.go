package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-warehouse-ops/internal/production"
	"github.com/go-chi/chi/v5"
)

func (h *handlers) productBOM(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Production.BOM(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *handlers) createMainBOM(w http.ResponseWriter, r *http.Request) {
	root, err := h.Production.CreateMainBOM(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

func (h *handlers) deleteMainBOM(w http.ResponseWriter, r *http.Request) {
	if err := h.Production.DeleteMainBOM(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) createBOMItem(w http.ResponseWriter, r *http.Request) {
	var req production.CreateBOMItemRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.Production.CreateBOMItem(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *handlers) updateBOMItem(w http.ResponseWriter, r *http.Request) {
	var req production.UpdateBOMItemRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.Production.UpdateBOMItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handlers) deleteBOMItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Production.DeleteBOMItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
