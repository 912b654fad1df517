package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/session"
)

const sessionCookie = "wh_session"

type sessionKey struct{}

func tokenOf(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func sessionFrom(ctx context.Context) session.Session {
	s, _ := ctx.Value(sessionKey{}).(session.Session)
	return s
}

// requireSession resolves the caller's session and makes its credentials the
// ones used for every CRM call of the request.
func (h *handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.Sessions.Resolve(r.Context(), tokenOf(r))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		ctx = espo.WithCredentials(ctx, s.Credentials)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginResp struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var creds espo.Credentials
	if err := decode(r, &creds); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.Sessions.Login(r.Context(), creds)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name: sessionCookie, Value: s.Token, Path: "/",
		HttpOnly: true, SameSite: http.SameSiteLaxMode, Secure: r.TLS != nil,
	})
	writeJSON(w, http.StatusCreated, loginResp{Token: s.Token, User: s.User})
}

// currentSession re-verifies the stored credentials with the CRM.
func (h *handlers) currentSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Verify(r.Context(), sessionFrom(r.Context()).Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.User)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context(), sessionFrom(r.Context()).Token); err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// sessionKeyFor identifies the caller for per-session state such as autocomplete.
func sessionKeyFor(r *http.Request) (string, error) {
	t := sessionFrom(r.Context()).Token
	if t == "" {
		return "", apperr.ErrUnauthenticated
	}
	return t, nil
}
