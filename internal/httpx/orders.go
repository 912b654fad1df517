package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/orders"
	"github.com/ariefcatur/go-warehouse-ops/internal/packages"
	"github.com/ariefcatur/go-warehouse-ops/internal/reports"
	"github.com/go-chi/chi/v5"
)

func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	starred, err := boolParam(r, "starred")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := h.Orders.List(r.Context(), orders.Filters{
		Search:  q.Get("search"),
		Status:  orders.Status(q.Get("status")),
		Channel: q.Get("channel"),
		Starred: starred != nil && *starred,
		MaxSize: p.maxSize,
		Offset:  p.offset,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) orderItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Orders.Items(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	var u orders.Update
	if err := decode(r, &u); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Orders.Update(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status orders.Status `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) starOrder(w http.ResponseWriter, r *http.Request)   { h.setStar(w, r, true) }
func (h *handlers) unstarOrder(w http.ResponseWriter, r *http.Request) { h.setStar(w, r, false) }

func (h *handlers) setStar(w http.ResponseWriter, r *http.Request, on bool) {
	if err := h.Orders.SetStarred(r.Context(), chi.URLParam(r, "id"), on); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) packageForOrder(w http.ResponseWriter, r *http.Request) {
	p, err := h.Packages.FindByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) splitPackage(w http.ResponseWriter, r *http.Request) {
	var req packages.SplitRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Packages.SplitPackage(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func reportParams(r *http.Request) (reports.Period, int, error) {
	period, err := reports.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return "", 0, apperr.Invalid("period", "expected daily or monthly")
	}
	days, err := intParam(r, "daysBack", 30)
	if err != nil {
		return "", 0, err
	}
	return period, days, nil
}

func (h *handlers) channelReport(w http.ResponseWriter, r *http.Request) {
	period, days, err := reportParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.Reports.ChannelReport(r.Context(), r.URL.Query().Get("channel"), period, days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// allChannelsReport answers 200 even when channels failed; they are listed in failures.
func (h *handlers) allChannelsReport(w http.ResponseWriter, r *http.Request) {
	period, days, err := reportParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	channels := h.ReportChannels
	if c := r.URL.Query()["channel"]; len(c) > 0 {
		channels = c
	}
	res := h.Reports.AllChannels(r.Context(), channels, period, days)
	writeJSON(w, http.StatusOK, partial{Data: res.Rows, Failures: failureMessages(res.Failures)})
}
