package espo

import (
	"context"
	"encoding/base64"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) empty() bool { return c.Username == "" || c.Password == "" }

// encoded is the base64 "user:pass" used by both Authorization and Espo-Authorization.
func (c Credentials) encoded() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
}

// CredentialSource supplies the credentials for one outgoing call.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Static is a fixed service account, used by the worker and the CLI.
type Static Credentials

func (s Static) Credentials(context.Context) (Credentials, error) {
	c := Credentials(s)
	if c.empty() {
		return Credentials{}, apperr.ErrUnauthenticated
	}
	return c, nil
}

type credsKey struct{}

// WithCredentials attaches per-request credentials, e.g. those resolved from a session.
func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, credsKey{}, c)
}

// FromContext reads credentials attached by WithCredentials and falls back to Fallback.
type FromContext struct {
	Fallback CredentialSource
}

func (f FromContext) Credentials(ctx context.Context) (Credentials, error) {
	if c, ok := ctx.Value(credsKey{}).(Credentials); ok && !c.empty() {
		return c, nil
	}
	if f.Fallback != nil {
		return f.Fallback.Credentials(ctx)
	}
	return Credentials{}, apperr.ErrUnauthenticated
}
