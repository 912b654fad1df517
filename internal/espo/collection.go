package espo

import (
	"context"
	"net/url"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
)

// Collection is the typed CRUD surface of one entity type, e.g. /Warehouse.
type Collection[T any] struct {
	API    API
	Entity string
	// Defaults fill the zero fields of every ListQuery.
	Defaults query.ListParams
}

// ListQuery pages a collection. Where clauses come first, then the text search,
// which is dropped when blank.
type ListQuery struct {
	Search  string
	Where   []query.Predicate
	MaxSize int
	Offset  int
	OrderBy string
	Order   string
}

func NewCollection[T any](api API, entity string, defaults query.ListParams) Collection[T] {
	return Collection[T]{API: api, Entity: entity, Defaults: defaults}
}

func (c Collection[T]) path(id string) string {
	if id == "" {
		return "/" + c.Entity
	}
	return "/" + c.Entity + "/" + url.PathEscape(id)
}

// Params merges q over the collection defaults.
func (c Collection[T]) Params(q ListQuery) url.Values {
	lp := c.Defaults
	if q.MaxSize > 0 {
		lp.MaxSize = q.MaxSize
	}
	lp.Offset = q.Offset
	if q.OrderBy != "" {
		lp.OrderBy, lp.Order = q.OrderBy, q.Order
	}
	where := append(append([]query.Predicate(nil), lp.Where...), q.Where...)
	lp.Where = append(where, query.Text(q.Search))
	return lp.Values()
}

func (c Collection[T]) List(ctx context.Context, q ListQuery) (List[T], error) {
	var out List[T]
	if err := c.API.Get(ctx, c.path(""), c.Params(q), &out); err != nil {
		return out, err
	}
	if out.List == nil {
		out.List = []T{}
	}
	return out, nil
}

func (c Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	var out T
	if err := c.API.Get(ctx, c.path(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c Collection[T]) Create(ctx context.Context, body any) (*T, error) {
	var out T
	if err := c.API.Post(ctx, c.path(""), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c Collection[T]) Update(ctx context.Context, id string, body any) (*T, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	var out T
	if err := c.API.Put(ctx, c.path(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c Collection[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Invalid("id", "required")
	}
	return c.API.Delete(ctx, c.path(id), nil)
}
