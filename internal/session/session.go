// Package session logs warehouse users in against the CRM and keeps their
// credentials and profile in Redis under an opaque token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	UserName     string   `json:"userName"`
	Type         string   `json:"type"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	EmailAddress string   `json:"emailAddress,omitempty"`
	Dashboards   []string `json:"dashboards,omitempty"`
}

func (u User) IsAdmin() bool { return u.Type == "admin" }

// Email falls back to the user name when the CRM has no address.
func (u User) Email() string {
	if u.EmailAddress != "" {
		return u.EmailAddress
	}
	return u.UserName
}

type Session struct {
	Token       string           `json:"token"`
	Credentials espo.Credentials `json:"credentials"`
	User        User             `json:"user"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Store persists sessions by token.
type Store interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Load(ctx context.Context, token string) (Session, error)
	Touch(ctx context.Context, token string, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

// Verifier checks credentials against the CRM's /App/user.
type Verifier interface {
	VerifyCredentials(ctx context.Context, creds espo.Credentials, out any) error
}

type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore { return &RedisStore{rdb: rdb} }

func key(token string) string { return fmt.Sprintf(redisx.KeySession, token) }

func (r *RedisStore) Save(ctx context.Context, s Session, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.rdb.Set(ctx, key(s.Token), b, ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, token string) (Session, error) {
	b, err := r.rdb.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, &apperr.NotFoundError{Entity: "Session", Key: "token"}
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Touch(ctx context.Context, token string, ttl time.Duration) error {
	return r.rdb.Expire(ctx, key(token), ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, key(token)).Err()
}

type Manager struct {
	store    Store
	verifier Verifier
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewManager(store Store, verifier Verifier, ttl time.Duration, log *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = redisx.TTLSession
	}
	return &Manager{store: store, verifier: verifier, ttl: ttl, log: logx.OrNop(log).Named("session"), now: time.Now}
}

// Login verifies the credentials with the CRM and opens a session.
func (m *Manager) Login(ctx context.Context, creds espo.Credentials) (Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" {
		return Session{}, apperr.Invalid("username", "required")
	}
	if creds.Password == "" {
		return Session{}, apperr.Invalid("password", "required")
	}

	var resp struct {
		User User `json:"user"`
	}
	log := logx.From(ctx, m.log).With(zap.String("username", creds.Username))
	if err := m.verifier.VerifyCredentials(ctx, creds, &resp); err != nil {
		log.Info("login rejected", zap.Error(err))
		return Session{}, err
	}

	s := Session{Token: uuid.NewString(), Credentials: creds, User: resp.User, CreatedAt: m.now().UTC()}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return Session{}, err
	}
	log.Info("login", zap.String("user_id", s.User.ID))
	return s, nil
}

// Resolve returns the session for token and extends its lifetime.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, apperr.ErrUnauthenticated
	}
	s, err := m.store.Load(ctx, token)
	if err != nil {
		if apperr.IsNotFound(err) {
			return Session{}, apperr.ErrUnauthenticated
		}
		return Session{}, err
	}
	if err := m.store.Touch(ctx, token, m.ttl); err != nil {
		logx.From(ctx, m.log).Warn("session touch failed", zap.Error(err))
	}
	return s, nil
}

// Verify re-checks the stored credentials with the CRM. A session whose
// credentials are no longer accepted is dropped.
func (m *Manager) Verify(ctx context.Context, token string) (Session, error) {
	s, err := m.Resolve(ctx, token)
	if err != nil {
		return Session{}, err
	}
	var resp struct {
		User User `json:"user"`
	}
	if err := m.verifier.VerifyCredentials(ctx, s.Credentials, &resp); err != nil {
		if apperr.IsUnauthenticated(err) {
			_ = m.store.Delete(ctx, token)
			logx.From(ctx, m.log).Info("session revoked by crm", zap.String("user_id", s.User.ID))
		}
		return Session{}, err
	}
	if resp.User.ID != "" && resp.User.ID != s.User.ID {
		return Session{}, apperr.ErrUnauthenticated
	}
	return s, nil
}

// Update stores changed credentials or profile data for an open session.
func (m *Manager) Update(ctx context.Context, s Session) error {
	if s.Token == "" {
		return apperr.ErrUnauthenticated
	}
	return m.store.Save(ctx, s, m.ttl)
}

func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return err
	}
	logx.From(ctx, m.log).Info("logout")
	return nil
}
