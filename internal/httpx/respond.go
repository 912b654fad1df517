package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Index  *int   `json:"index,omitempty"`
	Field  string `json:"field,omitempty"`
	Status int    `json:"upstreamStatus,omitempty"`
}

// statusOf maps the error taxonomy onto HTTP. Upstream 404s stay 404 so the
// front-end can tell a missing record from a broken CRM.
func statusOf(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	var (
		ve *apperr.ValidationError
		te *apperr.TransportError
	)
	switch {
	case errors.As(err, &ve):
		body.Kind, body.Field = "validation", ve.Field
		if ve.Index >= 0 {
			body.Index = &ve.Index
		}
		return http.StatusBadRequest, body
	case apperr.IsInvalidTransition(err):
		body.Kind = "invalid_transition"
		return http.StatusConflict, body
	case apperr.IsNotFound(err):
		body.Kind = "not_found"
		return http.StatusNotFound, body
	case apperr.IsUnauthenticated(err):
		body.Kind = "unauthenticated"
		return http.StatusUnauthorized, body
	case errors.As(err, &te):
		body.Kind, body.Status = "transport", te.StatusCode
		if te.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, body
		}
		return http.StatusBadGateway, body
	}
	body.Kind = "internal"
	return http.StatusInternalServerError, body
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, body := statusOf(err)
	log := logx.From(r.Context(), h.log).With(zap.String("path", r.URL.Path), zap.Error(err))
	if code >= 500 {
		log.Error("request failed", zap.Int("status", code))
	} else {
		log.Debug("request rejected", zap.Int("status", code))
	}
	writeJSON(w, code, body)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("body", "invalid json")
	}
	return nil
}

// partial is the body of a degraded fan-out: data plus the failed branches.
type partial struct {
	Data     any               `json:"data"`
	Failures map[string]string `json:"failures,omitempty"`
}

func failureMessages(m map[string]error) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, err := range m {
		out[k] = err.Error()
	}
	return out
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Invalid(name, "must be an integer")
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (*bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperr.Invalid(name, "must be a boolean")
	}
	return &b, nil
}

type page struct {
	maxSize, offset int
}

func pageParams(r *http.Request) (page, error) {
	ms, err := intParam(r, "maxSize", 0)
	if err != nil {
		return page{}, err
	}
	off, err := intParam(r, "offset", 0)
	if err != nil {
		return page{}, err
	}
	if ms < 0 || off < 0 {
		return page{}, apperr.Invalid("maxSize", "paging must not be negative")
	}
	return page{ms, off}, nil
}
