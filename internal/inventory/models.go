// Package inventory manages inventory transactions and their line items on the
// CRM, and reads the inventory cards that summarise stock per warehouse.
package inventory

// Item is one transaction line. An item without ID is new.
type Item struct {
	ID                     string   `json:"id,omitempty"`
	ProductID              string   `json:"productId"`
	ProductName            string   `json:"productName,omitempty"`
	Quantity               float64  `json:"quantity"`
	Price                  *float64 `json:"price,omitempty"`
	TotalPrice             *float64 `json:"totalPrice,omitempty"`
	Notes                  string   `json:"notes,omitempty"`
	InventoryTransactionID string   `json:"inventoryTransactionId,omitempty"`
}

type Transaction struct {
	ID                           string  `json:"id"`
	Name                         string  `json:"name"`
	InventoryTransactionTypeID   string  `json:"inventoryTransactionTypeId"`
	InventoryTransactionTypeName string  `json:"inventoryTransactionTypeName,omitempty"`
	TransactionDirection         string  `json:"transactionDirection,omitempty"`
	WarehouseFromID              *string `json:"warehouseFromId,omitempty"`
	WarehouseFromName            *string `json:"warehouseFromName,omitempty"`
	WarehouseToID                *string `json:"warehouseToId,omitempty"`
	WarehouseToName              *string `json:"warehouseToName,omitempty"`
	TransactionDate              string  `json:"transactionDate"`
	Status                       string  `json:"status,omitempty"`
	Notes                        string  `json:"notes,omitempty"`
	TotalAmount                  float64 `json:"totalAmount,omitempty"`
	CreatedAt                    string  `json:"createdAt,omitempty"`
	ModifiedAt                   string  `json:"modifiedAt,omitempty"`
	CreatedByID                  string  `json:"createdById,omitempty"`
	CreatedByName                string  `json:"createdByName,omitempty"`
}

type CreateRequest struct {
	Name                       string  `json:"name"`
	InventoryTransactionTypeID string  `json:"inventoryTransactionTypeId"`
	WarehouseFromID            *string `json:"warehouseFromId,omitempty"`
	WarehouseToID              *string `json:"warehouseToId,omitempty"`
	TransactionDate            string  `json:"transactionDate"`
	Notes                      string  `json:"notes,omitempty"`
	Items                      []Item  `json:"items,omitempty"`
}

// UpdateRequest is a partial update. Items follows the full-replacement
// contract: nil leaves the items alone, a non-nil pointer is the complete
// desired item set, and an empty set deletes every item.
type UpdateRequest struct {
	Name                       *string `json:"name,omitempty"`
	InventoryTransactionTypeID *string `json:"inventoryTransactionTypeId,omitempty"`
	WarehouseFromID            *string `json:"warehouseFromId,omitempty"`
	WarehouseToID              *string `json:"warehouseToId,omitempty"`
	TransactionDate            *string `json:"transactionDate,omitempty"`
	Notes                      *string `json:"notes,omitempty"`
	Status                     *string `json:"status,omitempty"`
	Items                      *[]Item `json:"items,omitempty"`
}

// Filters narrow the transaction list. WarehouseID matches either side of a movement.
type Filters struct {
	TypeID      string
	WarehouseID string
	DateFrom    string
	DateTo      string
	MaxSize     int
	Offset      int
}
