package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/users"
	"go.uber.org/zap"
)

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Users.Current(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// updateProfile also refreshes the names cached on the session.
func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req users.ProfileUpdate
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s := sessionFrom(r.Context())
	p, err := h.Users.UpdateProfile(r.Context(), s.User.ID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s.User.FirstName, s.User.LastName = p.FirstName, p.LastName
	if p.EmailAddress != nil {
		s.User.EmailAddress = *p.EmailAddress
	}
	if err := h.Sessions.Update(r.Context(), s); err != nil {
		h.log.Warn("session refresh failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, p)
}

// changePassword keeps the session usable by storing the new password with it.
func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var req users.PasswordChange
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s := sessionFrom(r.Context())
	if req.CurrentPassword != "" && req.CurrentPassword != s.Credentials.Password {
		h.fail(w, r, apperr.Invalid("currentPassword", "does not match"))
		return
	}
	if err := h.Users.ChangePassword(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	s.Credentials.Password = req.Password
	if err := h.Sessions.Update(r.Context(), s); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
