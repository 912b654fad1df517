package search

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/catalog"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
)

// SourceLimit caps every autocomplete source.
const SourceLimit = 50

func byName(q string) espo.ListQuery {
	return espo.ListQuery{Search: q, MaxSize: SourceLimit, OrderBy: "name", Order: "asc"}
}

func Products(c *catalog.Service) Source[catalog.Product] {
	return func(ctx context.Context, q string) ([]catalog.Product, error) {
		res, err := c.Products.List(ctx, byName(q))
		return res.List, err
	}
}

func Suppliers(c *catalog.Service) Source[catalog.Account] {
	return func(ctx context.Context, q string) ([]catalog.Account, error) {
		res, err := c.Suppliers(ctx, byName(q))
		return res.List, err
	}
}

func Accounts(c *catalog.Service) Source[catalog.Account] {
	return func(ctx context.Context, q string) ([]catalog.Account, error) {
		res, err := c.Accounts.List(ctx, byName(q))
		return res.List, err
	}
}

func Workers(c *catalog.Service) Source[catalog.Worker] {
	return func(ctx context.Context, q string) ([]catalog.Worker, error) {
		res, err := c.Workers.List(ctx, byName(q))
		return res.List, err
	}
}

// Pool keeps one Autocomplete per client key, so successive lookups from the
// same session supersede each other. Idle entries are dropped on access.
type Pool[T any] struct {
	src  Source[T]
	opts []Option
	idle time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*poolEntry[T]
}

type poolEntry[T any] struct {
	ac   *Autocomplete[T]
	used time.Time
}

func NewPool[T any](src Source[T], idle time.Duration, opts ...Option) *Pool[T] {
	return &Pool[T]{src: src, opts: opts, idle: idle, now: time.Now, entries: map[string]*poolEntry[T]{}}
}

func (p *Pool[T]) Lookup(ctx context.Context, key, q string) ([]T, error) {
	return p.get(key).Lookup(ctx, q)
}

func (p *Pool[T]) get(key string) *Autocomplete[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for k, e := range p.entries {
		if k != key && now.Sub(e.used) > p.idle {
			e.ac.Stop()
			delete(p.entries, k)
		}
	}
	e, ok := p.entries[key]
	if !ok {
		e = &poolEntry[T]{ac: NewAutocomplete(p.src, nil, p.opts...)}
		p.entries[key] = e
	}
	e.used = now
	return e.ac
}

// Len is the number of live entries.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
