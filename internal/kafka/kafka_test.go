package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestEmitterWrapsEnvelopeAndFlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 8, nil)
	p.Start(context.Background())

	em := &Emitter{Producer: p, Service: "warehouse-ops"}
	ctx := logx.WithRequestID(context.Background(), "req-1")
	require.NoError(t, em.Emit(ctx, events.TopicPackageEvents, events.EventPackagePacked, "pkg-1",
		events.PackageTransitioned{PackageID: "pkg-1", Action: "markAsPacked", From: "TO_PACK", To: "PACKED"}))

	p.Close()
	p.WaitClosed()

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, events.TopicPackageEvents, m.Topic)
	assert.Equal(t, []byte("pkg-1"), m.Key)
	assert.True(t, w.closed)

	env, err := DecodeEnvelope(m.Value)
	require.NoError(t, err)
	assert.Equal(t, events.EventPackagePacked, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "req-1", env.TraceID)
	assert.Equal(t, "pkg-1", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)

	payload, err := UnwrapPayload[events.PackageTransitioned](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "PACKED", payload.To)
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			m := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return m, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func newTestConsumer(r messageReader, workers int) *Consumer {
	c := newConsumer(r, workers, nil)
	c.retryMin, c.retryMax = time.Millisecond, 5*time.Millisecond
	return c
}

func TestConsumerRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	c := newTestConsumer(r, 1)

	var mu sync.Mutex
	calls := map[int64]int{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			calls[m.Offset]++
			if m.Offset == 2 && calls[m.Offset] == 1 {
				return errors.New("crm 502")
			}
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return len(r.commits()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{1, 2, 3}, r.commits())
	mu.Lock()
	assert.Equal(t, 2, calls[2])
	mu.Unlock()
	assert.True(t, r.closed)
}

func TestConsumerNeverCommitsPastFailingMessage(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	c := newTestConsumer(r, 1)

	var attempts atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			if m.Offset == 2 {
				attempts.Add(1)
				return errors.New("still down")
			}
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return attempts.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{1}, r.commits())
}

func TestConsumerPinsPartitionToOneWorker(t *testing.T) {
	var queue []kafka.Message
	for off := int64(1); off <= 3; off++ {
		for part := 0; part < 4; part++ {
			queue = append(queue, kafka.Message{Topic: "t", Partition: part, Offset: off})
		}
	}
	r := &fakeReader{queue: queue}
	c := newTestConsumer(r, 3)

	var mu sync.Mutex
	seen := map[int][]int64{}
	failed := map[int]bool{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			if m.Offset == 1 && !failed[m.Partition] {
				failed[m.Partition] = true
				return errors.New("transient")
			}
			seen[m.Partition] = append(seen[m.Partition], m.Offset)
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return len(r.commits()) == 12 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	defer mu.Unlock()
	for part := 0; part < 4; part++ {
		assert.Equal(t, []int64{1, 2, 3}, seen[part], "partition %d", part)
	}
}

type blockingWriter struct {
	fakeWriter
	release chan struct{}
}

func (w *blockingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	<-w.release
	return w.fakeWriter.WriteMessages(ctx, msgs...)
}

func TestPublishDropsWhenInboxFull(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	p := newProducer(w, 1, nil)
	p.Start(context.Background())

	// The first message is taken by the writer, which then blocks on the broker.
	require.True(t, p.Publish("t", []byte("k1"), nil))
	assert.Eventually(t, func() bool { return len(p.inbox) == 0 }, time.Second, time.Millisecond)
	require.True(t, p.Publish("t", []byte("k2"), nil))

	returned := make(chan bool, 1)
	go func() { returned <- p.Publish("t", []byte("k3"), nil) }()
	select {
	case ok := <-returned:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full inbox")
	}

	close(w.release)
	p.Close()
	p.WaitClosed()
	assert.Len(t, w.msgs, 2)
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 4, nil)
	p.Start(context.Background())
	p.Close()
	p.Close()

	em := &Emitter{Producer: p, Service: "warehouse-ops"}
	assert.NotPanics(t, func() {
		require.NoError(t, em.Emit(context.Background(), events.TopicPackageEvents, events.EventPackagePacked, "pkg-1", struct{}{}))
	})
	p.WaitClosed()
	assert.Empty(t, w.msgs)
}
