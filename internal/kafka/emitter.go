package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Emitter wraps domain payloads in the v1 envelope and queues them on the producer.
type Emitter struct {
	Producer *Producer
	Service  string
}

func (e *Emitter) Emit(ctx context.Context, topic, eventType, key string, payload any) error {
	b, err := Envelope(ctx, e.Service, eventType, key, payload)
	if err != nil {
		return err
	}
	e.Producer.Publish(topic, events.PartitionKey(key), b,
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(1))},
	)
	return nil
}

// Envelope encodes payload as a v1 event; the request id on ctx becomes the trace id.
func Envelope(ctx context.Context, producer, eventType, key string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return json.Marshal(events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       logx.RequestID(ctx),
		CorrelationID: key,
		Payload:       p,
	})
}
