// Package audit keeps an append-only trail of the domain events this service
// emits, so an operator can see who moved a package or purchase request when.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Entry struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Entity     string          `json:"entity"`
	EntityID   string          `json:"entity_id"`
	Producer   string          `json:"producer"`
	TraceID    string          `json:"trace_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Store is what the worker writes to and the API reads from.
type Store interface {
	Append(ctx context.Context, e Entry) (bool, error)
	History(ctx context.Context, entity, entityID string, limit int) ([]Entry, error)
}

// Entity names the audited entity for a domain topic, "" for topics not audited.
func Entity(topic string) string {
	switch topic {
	case events.TopicPackageEvents:
		return "Package"
	case events.TopicPurchaseRequestEvents:
		return "PurchaseRequest"
	case events.TopicTransactionEvents:
		return "InventoryTransaction"
	}
	return ""
}

// FromEnvelope builds the entry for an event read off topic.
func FromEnvelope(topic string, env events.Envelope) Entry {
	return Entry{
		EventID:    env.EventID,
		EventType:  env.EventType,
		Entity:     Entity(topic),
		EntityID:   env.CorrelationID,
		Producer:   env.Producer,
		TraceID:    env.TraceID,
		OccurredAt: env.OccurredAt.UTC(),
		Payload:    env.Payload,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS warehouse_audit (
  event_id    UUID PRIMARY KEY,
  event_type  TEXT NOT NULL,
  entity      TEXT NOT NULL,
  entity_id   TEXT NOT NULL,
  producer    TEXT NOT NULL,
  trace_id    TEXT NOT NULL DEFAULT '',
  occurred_at TIMESTAMPTZ NOT NULL,
  payload     JSONB NOT NULL,
  recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS warehouse_audit_entity_idx ON warehouse_audit (entity, entity_id, occurred_at DESC);
`

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repo struct{ DB db }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{DB: pool} }

func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("audit migrate: %w", err)
	}
	return nil
}

// Append stores e once. A replayed event id is ignored and reported as false.
func (r *Repo) Append(ctx context.Context, e Entry) (bool, error) {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	tag, err := r.DB.Exec(ctx, `
		INSERT INTO warehouse_audit (event_id, event_type, entity, entity_id, producer, trace_id, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.EventType, e.Entity, e.EntityID, e.Producer, e.TraceID, e.OccurredAt, []byte(payload))
	if err != nil {
		return false, fmt.Errorf("audit append %s: %w", e.EventID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// History returns the newest entries first.
func (r *Repo) History(ctx context.Context, entity, entityID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT event_id::text, event_type, entity, entity_id, producer, trace_id, occurred_at, payload
		FROM warehouse_audit
		WHERE entity = $1 AND entity_id = $2
		ORDER BY occurred_at DESC
		LIMIT $3`, entity, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit history: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			payload []byte
		)
		if err := rows.Scan(&e.EventID, &e.EventType, &e.Entity, &e.EntityID, &e.Producer, &e.TraceID, &e.OccurredAt, &payload); err != nil {
			return nil, err
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}
