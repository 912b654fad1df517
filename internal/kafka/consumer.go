package kafka

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler must return nil only when the message is processed and its offset may
// be committed. Errors are retried; a message that can never succeed should be
// logged and acknowledged with nil.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	retryMin = 200 * time.Millisecond
	retryMax = 10 * time.Second
)

type Consumer struct {
	r       messageReader
	workers int
	log     *zap.Logger

	retryMin, retryMax time.Duration
}

func NewConsumer(brokers []string, group string, topics []string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r messageReader, workers int, log *zap.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:        r,
		workers:  workers,
		log:      logx.OrNop(log).Named("kafka.consumer"),
		retryMin: retryMin,
		retryMax: retryMax,
	}
}

// Start dispatches messages to a worker pool until ctx ends or the reader fails.
// Every partition is pinned to one worker, which retries a failing message with
// capped backoff before taking the next one, so offsets are committed in order
// and never past an unprocessed message.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 256)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if !c.handle(ctx, h, m) {
					return
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.log.Warn("commit failed", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
				}
			}
		}(lanes[i])
	}
	defer wg.Wait()
	defer func() {
		for _, l := range lanes {
			close(l)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case lanes[c.laneOf(m)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) laneOf(m kafka.Message) int {
	if c.workers == 1 {
		return 0
	}
	f := fnv.New32a()
	_, _ = f.Write([]byte(m.Topic))
	_, _ = f.Write([]byte(strconv.Itoa(m.Partition)))
	return int(f.Sum32() % uint32(c.workers))
}

// handle runs h until it succeeds. It reports false when ctx ended first.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) bool {
	delay := c.retryMin
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.log.Error("handler failed",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		if delay *= 2; delay > c.retryMax {
			delay = c.retryMax
		}
	}
}
