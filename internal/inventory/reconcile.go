package inventory

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
)

// ValidateItems checks every item locally and reports the first offender.
func ValidateItems(items []Item) error {
	for i, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return apperr.InvalidItem(i, "productId", "required")
		}
		if it.Quantity <= 0 {
			return apperr.InvalidItem(i, "quantity", "must be greater than zero")
		}
	}
	return nil
}

// Plan is the difference between the stored items and a desired item set.
type Plan struct {
	Update []Item   `json:"update"`
	Create []Item   `json:"create"`
	Delete []string `json:"delete"`
}

func (p Plan) Empty() bool { return len(p.Update)+len(p.Create)+len(p.Delete) == 0 }

// NewPlan diffs desired against existing: items with an id update, items
// without one are created, and existing ids missing from desired are deleted.
// An id that is not an existing item, or appears twice, is rejected.
func NewPlan(existing, desired []Item) (Plan, error) {
	known := make(map[string]bool, len(existing))
	for _, it := range existing {
		known[it.ID] = true
	}

	p := Plan{Update: []Item{}, Create: []Item{}, Delete: []string{}}
	kept := make(map[string]bool, len(desired))
	for i, it := range desired {
		if it.ID == "" {
			p.Create = append(p.Create, it)
			continue
		}
		if !known[it.ID] {
			return Plan{}, apperr.InvalidItem(i, "id", fmt.Sprintf("%q is not an item of this transaction", it.ID))
		}
		if kept[it.ID] {
			return Plan{}, apperr.InvalidItem(i, "id", fmt.Sprintf("%q listed twice", it.ID))
		}
		kept[it.ID] = true
		p.Update = append(p.Update, it)
	}
	for _, it := range existing {
		if !kept[it.ID] {
			p.Delete = append(p.Delete, it.ID)
		}
	}
	return p, nil
}

// Apply returns the item set that results from executing p against existing.
// Surviving items keep their stored order; created items follow without ids.
func Apply(existing []Item, p Plan) []Item {
	updates := make(map[string]Item, len(p.Update))
	for _, it := range p.Update {
		updates[it.ID] = it
	}
	deleted := make(map[string]bool, len(p.Delete))
	for _, id := range p.Delete {
		deleted[id] = true
	}

	out := make([]Item, 0, len(existing)+len(p.Create))
	for _, it := range existing {
		if deleted[it.ID] {
			continue
		}
		if u, ok := updates[it.ID]; ok {
			it = u
		}
		out = append(out, it)
	}
	for _, it := range p.Create {
		it.ID = ""
		out = append(out, it)
	}
	return out
}
