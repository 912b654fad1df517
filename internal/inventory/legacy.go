package inventory

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"go.uber.org/zap"
)

// AddItem creates one item on the transaction.
//
// Deprecated: send the full item set with Update or ReplaceItems.
func (s *Service) AddItem(ctx context.Context, txID string, item Item) (Item, error) {
	if txID == "" {
		return Item{}, apperr.Invalid("transactionId", "required")
	}
	if err := ValidateItems([]Item{item}); err != nil {
		return Item{}, err
	}
	item.ID = ""
	item.InventoryTransactionID = txID
	var out Item
	if err := s.api.Post(ctx, "/InventoryTransactionItem", item, &out); err != nil {
		return Item{}, err
	}
	return out, nil
}

// UpdateItem overwrites one item.
//
// Deprecated: send the full item set with Update or ReplaceItems.
func (s *Service) UpdateItem(ctx context.Context, txID, itemID string, item Item) (Item, error) {
	if txID == "" || itemID == "" {
		return Item{}, apperr.Invalid("itemId", "required")
	}
	if err := ValidateItems([]Item{item}); err != nil {
		return Item{}, err
	}
	item.ID = ""
	item.InventoryTransactionID = txID
	var out Item
	if err := s.api.Put(ctx, "/InventoryTransactionItem/"+url.PathEscape(itemID), item, &out); err != nil {
		return Item{}, err
	}
	return out, nil
}

// DeleteItem removes one item.
//
// Deprecated: send the full item set with Update or ReplaceItems.
func (s *Service) DeleteItem(ctx context.Context, txID, itemID string) error {
	if txID == "" || itemID == "" {
		return apperr.Invalid("itemId", "required")
	}
	return s.api.Delete(ctx, transactionPath(txID)+"/items/"+url.PathEscape(itemID), nil)
}

// SyncItemsLegacy reaches the same end state as ReplaceItems through the
// per-item endpoints: deletes, then updates, then creates. It is not atomic;
// on failure the returned error names the step and what had already run.
//
// Deprecated: use ReplaceItems.
func (s *Service) SyncItemsLegacy(ctx context.Context, txID string, desired []Item) (Plan, error) {
	if txID == "" {
		return Plan{}, apperr.Invalid("transactionId", "required")
	}
	if err := ValidateItems(desired); err != nil {
		return Plan{}, err
	}
	existing, err := s.Items(ctx, txID)
	if err != nil {
		return Plan{}, err
	}
	p, err := NewPlan(existing, desired)
	if err != nil {
		return Plan{}, err
	}
	log := logx.From(ctx, s.log).With(zap.String("transaction_id", txID))

	done := 0
	fail := func(step, id string, err error) (Plan, error) {
		log.Error("legacy item sync aborted", zap.String("step", step), zap.String("item_id", id), zap.Int("done", done), zap.Error(err))
		return p, fmt.Errorf("legacy sync %s: %s item %q after %d steps: %w", txID, step, id, done, err)
	}

	for _, id := range p.Delete {
		if err := s.DeleteItem(ctx, txID, id); err != nil {
			return fail("delete", id, err)
		}
		done++
	}
	for _, it := range p.Update {
		if _, err := s.UpdateItem(ctx, txID, it.ID, it); err != nil {
			return fail("update", it.ID, err)
		}
		done++
	}
	for _, it := range p.Create {
		if _, err := s.AddItem(ctx, txID, it); err != nil {
			return fail("create", it.ProductID, err)
		}
		done++
	}

	log.Info("transaction items synced item by item", zap.Int("updated", len(p.Update)), zap.Int("created", len(p.Create)), zap.Int("deleted", len(p.Delete)))
	s.emitSynced(ctx, txID, "legacy", p)
	return p, nil
}
