package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"go.uber.org/zap"
)

const (
	DefaultQuietPeriod = 300 * time.Millisecond
	DefaultMinLength   = 2
)

// ErrSuperseded is returned by Lookup when a newer query replaced this one
// before it produced results.
var ErrSuperseded = errors.New("search superseded by a newer query")

// Source runs one text search.
type Source[T any] func(ctx context.Context, q string) ([]T, error)

// Result is what a finished search publishes. Items is empty, never nil, when
// the query was too short or the search failed.
type Result[T any] struct {
	Query string
	Items []T
	Err   error
}

type Option func(*options)

type options struct {
	quiet  time.Duration
	minLen int
	log    *zap.Logger
}

func WithQuietPeriod(d time.Duration) Option { return func(o *options) { o.quiet = d } }
func WithMinLength(n int) Option             { return func(o *options) { o.minLen = n } }
func WithLogger(l *zap.Logger) Option        { return func(o *options) { o.log = l } }

// Autocomplete debounces queries against one Source and publishes only the
// most recent query's results.
type Autocomplete[T any] struct {
	src     Source[T]
	publish func(Result[T])
	minLen  int
	deb     *Debouncer
	log     *zap.Logger

	mu  sync.Mutex
	seq uint64
}

// NewAutocomplete wires src to publish. publish may be nil when only Lookup is
// used; it runs with the instance locked and must not call back into it.
func NewAutocomplete[T any](src Source[T], publish func(Result[T]), opts ...Option) *Autocomplete[T] {
	o := options{quiet: DefaultQuietPeriod, minLen: DefaultMinLength}
	for _, opt := range opts {
		opt(&o)
	}
	if publish == nil {
		publish = func(Result[T]) {}
	}
	return &Autocomplete[T]{
		src:     src,
		publish: publish,
		minLen:  o.minLen,
		deb:     NewDebouncer(o.quiet),
		log:     logx.OrNop(o.log).Named("autocomplete"),
	}
}

// Query schedules a search for q and returns at once. Queries shorter than the
// minimum length cancel whatever is pending and publish an empty result
// immediately.
func (a *Autocomplete[T]) Query(ctx context.Context, q string) {
	a.schedule(ctx, q, a.publish)
}

// Lookup is the blocking form of Query: it waits out the quiet period and
// returns the items, or ErrSuperseded when a newer query arrived first.
func (a *Autocomplete[T]) Lookup(ctx context.Context, q string) ([]T, error) {
	done := make(chan Result[T], 1)
	runCtx := a.schedule(ctx, q, func(r Result[T]) {
		a.publish(r)
		done <- r
	})
	select {
	case r := <-done:
		return r.Items, r.Err
	case <-runCtx.Done():
		select {
		case r := <-done:
			return r.Items, r.Err
		default:
		}
		if err := ctx.Err(); err != nil {
			return []T{}, err
		}
		return []T{}, ErrSuperseded
	}
}

// Clear cancels the pending search and publishes an empty result.
func (a *Autocomplete[T]) Clear() {
	a.mu.Lock()
	a.seq++
	a.mu.Unlock()
	a.deb.Stop()
	a.publish(Result[T]{Items: []T{}})
}

func (a *Autocomplete[T]) schedule(ctx context.Context, q string, deliver func(Result[T])) context.Context {
	a.mu.Lock()
	a.seq++
	mine := a.seq
	a.mu.Unlock()

	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < a.minLen {
		a.deb.Stop()
		deliver(Result[T]{Query: q, Items: []T{}})
		return ctx
	}

	return a.deb.Schedule(ctx, func(runCtx context.Context) {
		items, err := a.src(runCtx, q)
		if err != nil {
			if runCtx.Err() == nil {
				a.log.Warn("search failed", zap.String("query", q), zap.Error(err))
			}
			items = nil
		}
		if items == nil {
			items = []T{}
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if mine != a.seq || runCtx.Err() != nil {
			return
		}
		deliver(Result[T]{Query: q, Items: items, Err: err})
	})
}

// Stop drops any pending search without publishing.
func (a *Autocomplete[T]) Stop() { a.deb.Stop() }
