package packages

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
)

// Override replaces fields of a moved item. Nil fields are left as they are.
type Override struct {
	Quantity   *float64 `json:"quantity,omitempty"`
	OutageFlag *bool    `json:"outageFlag,omitempty"`
}

type SplitRequest struct {
	ItemIDs   []string            `json:"itemIds"`
	Overrides map[string]Override `json:"overrides,omitempty"`
	// Name of the new package; defaults to the original name with a "-2" suffix.
	Name string `json:"name,omitempty"`
}

type SplitResult struct {
	Original Package `json:"original"`
	Sibling  Package `json:"sibling"`
	Kept     []Item  `json:"kept"`
	Moved    []Item  `json:"moved"`
}

// planSplit partitions items into kept and moved. Every item lands in exactly
// one side, and both sides are non-empty.
func planSplit(items []Item, req SplitRequest) (kept, moved []Item, err error) {
	if len(req.ItemIDs) == 0 {
		return nil, nil, apperr.Invalid("itemIds", "at least one item must be moved")
	}
	byID := make(map[string]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	chosen := make(map[string]bool, len(req.ItemIDs))
	for i, id := range req.ItemIDs {
		if _, ok := byID[id]; !ok {
			return nil, nil, apperr.InvalidItem(i, "id", fmt.Sprintf("%q is not an item of this package", id))
		}
		if chosen[id] {
			return nil, nil, apperr.InvalidItem(i, "id", fmt.Sprintf("%q listed twice", id))
		}
		chosen[id] = true
	}
	if len(chosen) == len(items) {
		return nil, nil, apperr.Invalid("itemIds", "at least one item must stay in the original package")
	}
	for id, o := range req.Overrides {
		if !chosen[id] {
			return nil, nil, apperr.Invalid("overrides", fmt.Sprintf("%q is not a moved item", id))
		}
		if o.Quantity != nil && *o.Quantity <= 0 {
			return nil, nil, apperr.Invalid("overrides", fmt.Sprintf("%q quantity must be positive", id))
		}
	}

	for _, it := range items {
		if !chosen[it.ID] {
			kept = append(kept, it)
			continue
		}
		if o, ok := req.Overrides[it.ID]; ok {
			if o.Quantity != nil {
				it.Quantity = *o.Quantity
			}
			if o.OutageFlag != nil {
				it.OutageFlag = *o.OutageFlag
			}
		}
		moved = append(moved, it)
	}
	return kept, moved, nil
}

// FindByOrder returns the newest package of a sales order.
func (s *Service) FindByOrder(ctx context.Context, orderID string) (Package, error) {
	params := query.ListParams{
		MaxSize: 1,
		OrderBy: "createdAt",
		Order:   "desc",
		Where:   []query.Predicate{query.Equals("salesOrderId", orderID)},
	}.Values()
	var out espo.List[Package]
	if err := s.api.Get(ctx, "/Package", params, &out); err != nil {
		return Package{}, err
	}
	if len(out.List) == 0 {
		return Package{}, &apperr.NotFoundError{Entity: "Package", Key: "salesOrderId=" + orderID}
	}
	return out.List[0], nil
}

// SplitPackage moves the requested items of an order's package into a newly
// created sibling package. The request is validated against the current items
// before anything is created.
func (s *Service) SplitPackage(ctx context.Context, orderID string, req SplitRequest) (*SplitResult, error) {
	if orderID == "" {
		return nil, apperr.Invalid("orderId", "required")
	}
	if len(req.ItemIDs) == 0 {
		return nil, apperr.Invalid("itemIds", "at least one item must be moved")
	}
	log := logx.From(ctx, s.log).With(zap.String("sales_order_id", orderID))

	pkg, err := s.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.Items(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	kept, moved, err := planSplit(items, req)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = pkg.Name + "-2"
	}
	create := struct {
		Name         string `json:"name"`
		SalesOrderID string `json:"salesOrderId"`
		CarrierID    string `json:"carrierId,omitempty"`
		Status       Status `json:"status"`
	}{name, orderID, pkg.CarrierID, StatusToPack}

	var sibling Package
	if err := s.api.Post(ctx, "/Package", create, &sibling); err != nil {
		log.Error("create sibling package failed", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.String("package_id", pkg.ID), zap.String("sibling_id", sibling.ID))

	movedIDs := make([]string, 0, len(moved))
	for _, it := range moved {
		body := struct {
			PackageID  string   `json:"packageId"`
			Quantity   *float64 `json:"quantity,omitempty"`
			OutageFlag *bool    `json:"outageFlag,omitempty"`
		}{PackageID: sibling.ID}
		if o, ok := req.Overrides[it.ID]; ok {
			body.Quantity, body.OutageFlag = o.Quantity, o.OutageFlag
		}
		if err := s.api.Put(ctx, "/PackageItem/"+url.PathEscape(it.ID), body, nil); err != nil {
			log.Error("move item failed", zap.String("item_id", it.ID), zap.Strings("moved", movedIDs), zap.Error(err))
			return nil, fmt.Errorf("split package %s: move item %s after %d moved: %w", pkg.ID, it.ID, len(movedIDs), err)
		}
		movedIDs = append(movedIDs, it.ID)
	}

	log.Info("package split", zap.Int("kept", len(kept)), zap.Int("moved", len(moved)))
	s.emit(ctx, events.EventPackageSplit, pkg.ID, events.PackageSplit{
		SalesOrderID: orderID, PackageID: pkg.ID, SiblingID: sibling.ID, MovedItemIDs: movedIDs,
	})
	return &SplitResult{Original: pkg, Sibling: sibling, Kept: kept, Moved: moved}, nil
}
