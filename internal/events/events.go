package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventPackagePacked           = "PackagePacked"
	EventPackageReturnReceived   = "PackageReturnReceived"
	EventPackageSentToExpedition = "PackageSentToExpedition"
	EventPackageFailed           = "PackageFailed"
	EventPackageSplit            = "PackageSplit"
	EventPurchaseRequestChanged  = "PurchaseRequestStatusChanged"
	EventTransactionItemsSynced  = "InventoryTransactionItemsSynced"
	EventFulfillmentFailed       = "FulfillmentFailed"
)

const (
	TopicPackageEvents         = "warehouse.package.events"
	TopicPurchaseRequestEvents = "warehouse.purchase_request.events"
	TopicTransactionEvents     = "warehouse.inventory_transaction.events"
	TopicFulfillmentFailures   = "fulfillment.failures"
)

// DomainTopics are the topics this service publishes to.
var DomainTopics = []string{TopicPackageEvents, TopicPurchaseRequestEvents, TopicTransactionEvents}

// PartitionKey keeps all events of one entity on one partition, in order.
func PartitionKey(entityID string) []byte { return []byte(entityID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // entity id
	Payload       json.RawMessage `json:"payload"`
}

type PackageTransitioned struct {
	PackageID    string `json:"package_id"`
	Action       string `json:"action"`
	From         string `json:"from"`
	To           string `json:"to"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type PackageSplit struct {
	SalesOrderID string   `json:"sales_order_id"`
	PackageID    string   `json:"package_id"`
	SiblingID    string   `json:"sibling_id"`
	MovedItemIDs []string `json:"moved_item_ids"`
}

type PurchaseRequestChanged struct {
	PurchaseRequestID string `json:"purchase_request_id"`
	Action            string `json:"action"`
	From              string `json:"from"`
	To                string `json:"to"`
	IgnoredReason     string `json:"ignored_reason,omitempty"`
	IgnoredUntil      string `json:"ignored_until,omitempty"`
	ExpectedDate      string `json:"expected_date,omitempty"`
}

type TransactionItemsSynced struct {
	TransactionID string `json:"transaction_id"`
	Mode          string `json:"mode"` // batch | legacy
	Updated       int    `json:"updated"`
	Created       int    `json:"created"`
	Deleted       int    `json:"deleted"`
}

// FulfillmentFailed is the external signal that drives a package into ERROR.
type FulfillmentFailed struct {
	PackageID string `json:"package_id"`
	Reason    string `json:"reason"`
}

// Emitter publishes one domain event. Implementations must not block on the broker.
type Emitter interface {
	Emit(ctx context.Context, topic, eventType, key string, payload any) error
}

// Nop discards events; used where no broker is configured.
type Nop struct{}

func (Nop) Emit(context.Context, string, string, string, any) error { return nil }

// OrNop lets services accept a nil emitter.
func OrNop(e Emitter) Emitter {
	if e == nil {
		return Nop{}
	}
	return e
}
