// Package worker consumes the Kafka topics the warehouse listens to: external
// fulfillment failures, which drive packages into ERROR, and the service's own
// domain events, which are copied into the audit trail.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/audit"
	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	kafkax "github.com/ariefcatur/go-warehouse-ops/internal/kafka"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/packages"
	"github.com/ariefcatur/go-warehouse-ops/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const dedupConsumer = "fulfillment"

// Failer moves a package into ERROR.
type Failer interface {
	MarkError(ctx context.Context, id, reason string) (packages.Package, error)
}

// Dedup claims event ids so redelivered messages are processed once.
type Dedup interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

type RedisDedup struct {
	RDB redis.Cmdable
	TTL time.Duration
}

func (d RedisDedup) Claim(ctx context.Context, consumer, id string) (bool, error) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = redisx.TTLDedup
	}
	return redisx.Claim(ctx, d.RDB, consumer, id, ttl)
}

func (d RedisDedup) Release(ctx context.Context, consumer, id string) error {
	return redisx.Release(ctx, d.RDB, consumer, id)
}

type Worker struct {
	Packages Failer
	Audit    audit.Store
	Dedup    Dedup
	Log      *zap.Logger
}

// Topics are the topics Handle understands.
func Topics() []string {
	return append([]string{events.TopicFulfillmentFailures}, events.DomainTopics...)
}

// Handle is the consumer handler. A nil return commits the offset, so messages
// that can never succeed (undecodable, unknown package) are logged and dropped.
// Any other error makes the consumer retry the message before its successors.
func (w *Worker) Handle(ctx context.Context, m kafkago.Message) error {
	log := logx.OrNop(w.Log).With(zap.String("topic", m.Topic), zap.Int64("offset", m.Offset))
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		log.Error("dropping undecodable message", zap.Error(err))
		return nil
	}
	if env.TraceID != "" {
		ctx = logx.WithRequestID(ctx, env.TraceID)
	}
	log = log.With(zap.String("event_id", env.EventID), zap.String("event_type", env.EventType))

	if m.Topic == events.TopicFulfillmentFailures {
		return w.handleFailure(ctx, env, log)
	}
	if audit.Entity(m.Topic) != "" {
		return w.record(ctx, m.Topic, env, log)
	}
	log.Debug("ignoring topic")
	return nil
}

func (w *Worker) handleFailure(ctx context.Context, env events.Envelope, log *zap.Logger) error {
	if env.EventType != events.EventFulfillmentFailed {
		return nil
	}
	p, err := kafkax.UnwrapPayload[events.FulfillmentFailed](env.Payload)
	if err != nil {
		log.Error("dropping failure signal", zap.Error(err))
		return nil
	}

	claimed, err := w.Dedup.Claim(ctx, dedupConsumer, env.EventID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug("duplicate failure signal")
		return nil
	}

	log = log.With(zap.String("package_id", p.PackageID))
	if _, err := w.Packages.MarkError(ctx, p.PackageID, p.Reason); err != nil {
		if permanent(err) {
			log.Error("failure signal rejected", zap.Error(err))
			return nil
		}
		if rerr := w.Dedup.Release(ctx, dedupConsumer, env.EventID); rerr != nil {
			log.Warn("release claim failed", zap.Error(rerr))
		}
		return err
	}
	log.Info("package marked as failed")
	return nil
}

func (w *Worker) record(ctx context.Context, topic string, env events.Envelope, log *zap.Logger) error {
	inserted, err := w.Audit.Append(ctx, audit.FromEnvelope(topic, env))
	if err != nil {
		return err
	}
	if !inserted {
		log.Debug("audit entry already present")
	}
	return nil
}

// permanent errors will not change on retry.
func permanent(err error) bool {
	if apperr.IsValidation(err) || apperr.IsNotFound(err) {
		return true
	}
	var te *apperr.TransportError
	return errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500 && !te.Unauthenticated()
}
