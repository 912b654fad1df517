package events

import (
	"context"
	"sync"
)

type Recorded struct {
	Topic   string
	Type    string
	Key     string
	Payload any
}

// Recorder is an in-memory Emitter for tests and dry runs.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

func (r *Recorder) Emit(_ context.Context, topic, eventType, key string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Recorded{Topic: topic, Type: eventType, Key: key, Payload: payload})
	return nil
}

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
