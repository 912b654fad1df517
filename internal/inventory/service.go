package inventory

import (
	"context"
	"net/url"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	listPageSize   = 200
	loadItemsLimit = 8
)

type Service struct {
	api    espo.API
	events events.Emitter
	log    *zap.Logger
}

func NewService(api espo.API, em events.Emitter, log *zap.Logger) *Service {
	return &Service{api: api, events: events.OrNop(em), log: logx.OrNop(log).Named("inventory")}
}

func transactionPath(id string) string { return "/InventoryTransaction/" + url.PathEscape(id) }

func (s *Service) List(ctx context.Context, f Filters) (espo.List[Transaction], error) {
	if f.MaxSize <= 0 {
		f.MaxSize = listPageSize
	}
	var where []query.Predicate
	if f.TypeID != "" {
		where = append(where, query.Equals("inventoryTransactionTypeId", f.TypeID))
	}
	if f.WarehouseID != "" {
		where = append(where, query.Or(
			query.Equals("warehouseFromId", f.WarehouseID),
			query.Equals("warehouseToId", f.WarehouseID),
		))
	}
	switch {
	case f.DateFrom != "" && f.DateTo != "":
		where = append(where, query.Between("transactionDate", f.DateFrom, f.DateTo))
	case f.DateFrom != "":
		where = append(where, query.After("transactionDate", f.DateFrom))
	case f.DateTo != "":
		where = append(where, query.Before("transactionDate", f.DateTo))
	}

	params := query.ListParams{
		MaxSize: f.MaxSize,
		Offset:  f.Offset,
		OrderBy: "transactionDate",
		Order:   "desc",
		Where:   where,
	}.Values()

	var out espo.List[Transaction]
	err := s.api.Get(ctx, "/InventoryTransaction", params, &out)
	return out, err
}

func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	var t Transaction
	if err := s.api.Get(ctx, transactionPath(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create validates header and items before posting the transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Transaction, error) {
	if req.Name == "" {
		return nil, apperr.Invalid("name", "required")
	}
	if req.InventoryTransactionTypeID == "" {
		return nil, apperr.Invalid("inventoryTransactionTypeId", "required")
	}
	if req.TransactionDate == "" {
		return nil, apperr.Invalid("transactionDate", "required")
	}
	if err := ValidateItems(req.Items); err != nil {
		return nil, err
	}
	var t Transaction
	if err := s.api.Post(ctx, "/InventoryTransaction", req, &t); err != nil {
		logx.From(ctx, s.log).Error("create transaction failed", zap.Error(err))
		return nil, err
	}
	logx.From(ctx, s.log).Info("transaction created", zap.String("transaction_id", t.ID), zap.Int("items", len(req.Items)))
	return &t, nil
}

// Update sends a partial update. When req.Items is set it is validated and
// diffed against the stored items before the request goes out, so an unknown
// item id fails locally instead of being silently ignored by the CRM.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Transaction, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	log := logx.From(ctx, s.log).With(zap.String("transaction_id", id))

	var plan *Plan
	if req.Items != nil {
		desired := *req.Items
		if desired == nil {
			desired = []Item{}
		}
		if err := ValidateItems(desired); err != nil {
			return nil, err
		}
		existing, err := s.Items(ctx, id)
		if err != nil {
			return nil, err
		}
		p, err := NewPlan(existing, desired)
		if err != nil {
			return nil, err
		}
		plan = &p
		req.Items = &desired
	}

	var t Transaction
	if err := s.api.Put(ctx, transactionPath(id), req, &t); err != nil {
		log.Error("update transaction failed", zap.Error(err))
		return nil, err
	}
	if plan != nil {
		log.Info("transaction items replaced", zap.Int("updated", len(plan.Update)), zap.Int("created", len(plan.Create)), zap.Int("deleted", len(plan.Delete)))
		s.emitSynced(ctx, id, "batch", *plan)
	} else {
		log.Info("transaction updated")
	}
	return &t, nil
}

// ReplaceItems makes items the complete item set of the transaction.
func (s *Service) ReplaceItems(ctx context.Context, id string, items []Item) (*Transaction, error) {
	if items == nil {
		items = []Item{}
	}
	return s.Update(ctx, id, UpdateRequest{Items: &items})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Invalid("id", "required")
	}
	if err := s.api.Delete(ctx, transactionPath(id), nil); err != nil {
		return err
	}
	logx.From(ctx, s.log).Info("transaction deleted", zap.String("transaction_id", id))
	return nil
}

func (s *Service) Items(ctx context.Context, id string) ([]Item, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	var out espo.List[Item]
	if err := s.api.Get(ctx, transactionPath(id)+"/items", nil, &out); err != nil {
		return nil, err
	}
	if out.List == nil {
		return []Item{}, nil
	}
	return out.List, nil
}

// ItemSets is the joined result of loading items for many transactions.
type ItemSets struct {
	Items    map[string][]Item `json:"items"`
	Failures map[string]error  `json:"-"`
}

func (r *ItemSets) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &apperr.PartialFailure{Total: len(r.Items), Failures: r.Failures}
}

// LoadItems fetches the items of several transactions concurrently. A failed
// transaction contributes an empty item list and is recorded in Failures.
func (s *Service) LoadItems(ctx context.Context, ids []string) *ItemSets {
	lists := make([][]Item, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(loadItemsLimit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			lists[i], errs[i] = s.Items(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	out := &ItemSets{Items: make(map[string][]Item, len(ids)), Failures: map[string]error{}}
	for i, id := range ids {
		if errs[i] != nil {
			logx.From(ctx, s.log).Warn("transaction items degraded to empty", zap.String("transaction_id", id), zap.Error(errs[i]))
			out.Failures[id] = errs[i]
			out.Items[id] = []Item{}
			continue
		}
		out.Items[id] = lists[i]
	}
	return out
}

func (s *Service) emitSynced(ctx context.Context, id, mode string, p Plan) {
	payload := events.TransactionItemsSynced{
		TransactionID: id, Mode: mode,
		Updated: len(p.Update), Created: len(p.Create), Deleted: len(p.Delete),
	}
	if err := s.events.Emit(ctx, events.TopicTransactionEvents, events.EventTransactionItemsSynced, id, payload); err != nil {
		logx.From(ctx, s.log).Warn("emit event failed", zap.String("transaction_id", id), zap.Error(err))
	}
}
