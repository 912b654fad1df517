package production

import (
	"context"
	"net/url"
	"strings"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
)

// BOMNode is one line of a product's bill of materials. The root is the main
// BOM of the assembly product; its descendants are the components.
type BOMNode struct {
	ID                   string    `json:"id"`
	Level                int       `json:"level"`
	Order                int       `json:"order"`
	AbraID               *int      `json:"abraId"`
	Quantity             float64   `json:"quantity"`
	CostPrice            *float64  `json:"costPrice"`
	Path                 *string   `json:"path"`
	ComponentProductID   string    `json:"componentProductId"`
	ComponentProductName *string   `json:"componentProductName"`
	AssemblyProductID    string    `json:"assemblyProductId"`
	AssemblyProductName  *string   `json:"assemblyProductName"`
	ParentBOMID          *string   `json:"parentBomId"`
	ParentBOMName        *string   `json:"parentBomName"`
	UOM                  *string   `json:"uom,omitempty"`
	UOMID                *string   `json:"uomId,omitempty"`
	Children             []BOMNode `json:"children"`
}

// Walk visits n and its descendants depth first. Returning false stops the walk.
func (n *BOMNode) Walk(fn func(*BOMNode) bool) bool {
	if !fn(n) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the node with id, or nil.
func (n *BOMNode) Find(id string) *BOMNode {
	var found *BOMNode
	n.Walk(func(c *BOMNode) bool {
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// Components counts the nodes below the root.
func (n *BOMNode) Components() int {
	count := -1
	n.Walk(func(*BOMNode) bool { count++; return true })
	return count
}

// BOMTree is the CRM answer for a product's BOM. Data is nil when the product has none.
type BOMTree struct {
	Data    *BOMNode `json:"data"`
	Message string   `json:"message,omitempty"`
}

// BOMItem is a single BOM row as the CRM returns it after a write.
type BOMItem struct {
	ID                 string   `json:"id"`
	ComponentProductID string   `json:"componentProductId"`
	AssemblyProductID  string   `json:"assemblyProductId"`
	Level              int      `json:"level"`
	Order              int      `json:"order"`
	ParentBOMID        *string  `json:"parentBomId"`
	Quantity           float64  `json:"quantity"`
	AbraID             *int     `json:"abraId"`
	CostPrice          *float64 `json:"costPrice"`
	Path               *string  `json:"path"`
}

type CreateBOMItemRequest struct {
	AssemblyProductID  string  `json:"assemblyProductId"`
	ParentBOMID        string  `json:"parentBomId"`
	ComponentProductID string  `json:"componentProductId"`
	Quantity           float64 `json:"quantity"`
}

func (r *CreateBOMItemRequest) validate() error {
	r.AssemblyProductID = strings.TrimSpace(r.AssemblyProductID)
	r.ParentBOMID = strings.TrimSpace(r.ParentBOMID)
	r.ComponentProductID = strings.TrimSpace(r.ComponentProductID)
	switch {
	case r.ComponentProductID == "":
		return apperr.Invalid("componentProductId", "required")
	case r.AssemblyProductID == "":
		return apperr.Invalid("assemblyProductId", "required")
	case r.ParentBOMID == "":
		return apperr.Invalid("parentBomId", "required")
	case r.Quantity <= 0:
		return apperr.Invalid("quantity", "must be greater than zero")
	case r.ComponentProductID == r.AssemblyProductID:
		return apperr.Invalid("componentProductId", "a product cannot be its own component")
	}
	return nil
}

type UpdateBOMItemRequest struct {
	Quantity           *float64 `json:"quantity,omitempty"`
	ComponentProductID *string  `json:"componentProductId,omitempty"`
}

func bomPath(productID string) string {
	return "/Product/" + url.PathEscape(productID) + "/BOM"
}

func newBOMs(api espo.API) espo.Collection[BOMItem] {
	return espo.NewCollection[BOMItem](api, "BOM", query.ListParams{})
}

// BOM loads the whole BOM tree of a product.
func (s *Service) BOM(ctx context.Context, productID string) (*BOMTree, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperr.Invalid("productId", "required")
	}
	var out BOMTree
	if err := s.api.Get(ctx, bomPath(productID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMainBOM creates the empty root BOM of a product. The CRM returns the
// existing root when there already is one.
func (s *Service) CreateMainBOM(ctx context.Context, productID string) (*BOMItem, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperr.Invalid("productId", "required")
	}
	var out BOMItem
	if err := s.api.Post(ctx, bomPath(productID), struct{}{}, &out); err != nil {
		return nil, err
	}
	logx.From(ctx, s.log).Info("main bom ready", zap.String("product_id", productID), zap.String("bom_id", out.ID))
	return &out, nil
}

// CreateBOMItem adds a component under the parent BOM line.
func (s *Service) CreateBOMItem(ctx context.Context, req CreateBOMItemRequest) (*BOMItem, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	out, err := s.boms.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	logx.From(ctx, s.log).Info("bom item created",
		zap.String("id", out.ID),
		zap.String("parent_bom_id", req.ParentBOMID),
		zap.String("component_product_id", req.ComponentProductID))
	return out, nil
}

func (s *Service) UpdateBOMItem(ctx context.Context, id string, req UpdateBOMItemRequest) (*BOMItem, error) {
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, apperr.Invalid("quantity", "must be greater than zero")
	}
	if req.ComponentProductID != nil && strings.TrimSpace(*req.ComponentProductID) == "" {
		return nil, apperr.Invalid("componentProductId", "cannot be blank")
	}
	return s.boms.Update(ctx, id, req)
}

func (s *Service) DeleteBOMItem(ctx context.Context, id string) error {
	if err := s.boms.Delete(ctx, id); err != nil {
		return err
	}
	logx.From(ctx, s.log).Info("bom item deleted", zap.String("id", id))
	return nil
}

// DeleteMainBOM removes the root BOM of a product with all its lines. A product
// without a BOM is left alone.
func (s *Service) DeleteMainBOM(ctx context.Context, productID string) error {
	tree, err := s.BOM(ctx, productID)
	if err != nil {
		return err
	}
	if tree.Data == nil {
		return nil
	}
	return s.DeleteBOMItem(ctx, tree.Data.ID)
}
