// Package packages drives the package fulfillment lifecycle on the CRM:
// status transitions, error signalling and splitting an order's package.
package packages

// Package is the list projection.
type Package struct {
	ID                           string `json:"id"`
	Name                         string `json:"name"`
	CreatedAt                    string `json:"createdAt,omitempty"`
	SalesOrderID                 string `json:"salesOrderId,omitempty"`
	SalesOrderName               string `json:"salesOrderName,omitempty"`
	CarrierID                    string `json:"carrierId,omitempty"`
	CarrierName                  string `json:"carrierName,omitempty"`
	ShippingAddressFirstName     string `json:"shippingAddressFirstName,omitempty"`
	ShippingAddressLastName      string `json:"shippingAddressLastName,omitempty"`
	LastTrackingStatus           string `json:"lastTrackingStatus,omitempty"`
	LastTrackingStatusNormalized string `json:"lastTrackingStatusNormalized,omitempty"`
	AssignedUserID               string `json:"assignedUserId,omitempty"`
	Status                       Status `json:"status,omitempty"`
	ErrorMessage                 string `json:"errorMessage,omitempty"`
	PackageIssuedFlag            bool   `json:"packageIssuedFlag,omitempty"`
	PackageReceivedFlag          bool   `json:"packageReceivedFlag,omitempty"`
}

type TrackingEvent struct {
	Date             string `json:"date,omitempty"`
	Status           string `json:"status,omitempty"`
	StatusNormalized string `json:"statusNormalized,omitempty"`
	Description      string `json:"description,omitempty"`
}

type Detail struct {
	Package
	Description               string            `json:"description,omitempty"`
	ModifiedAt                string            `json:"modifiedAt,omitempty"`
	PaymentMethod             string            `json:"paymentMethod,omitempty"`
	ShippingAddressStreet     string            `json:"shippingAddressStreet,omitempty"`
	ShippingAddressCity       string            `json:"shippingAddressCity,omitempty"`
	ShippingAddressCountry    string            `json:"shippingAddressCountry,omitempty"`
	ShippingAddressPostalCode string            `json:"shippingAddressPostalCode,omitempty"`
	CarrierPickupPoint        string            `json:"carrierPickupPoint,omitempty"`
	TrackingDetails           []TrackingEvent   `json:"trackingDetails,omitempty"`
	BoxCount                  int               `json:"boxCount,omitempty"`
	CodAmount                 float64           `json:"codAmount,omitempty"`
	CodAmountCurrency         string            `json:"codAmountCurrency,omitempty"`
	Value                     float64           `json:"value,omitempty"`
	ValueCurrency             string            `json:"valueCurrency,omitempty"`
	Email                     string            `json:"email,omitempty"`
	PhoneNumber               string            `json:"phoneNumber,omitempty"`
	InternalNumber            string            `json:"internalNumber,omitempty"`
	LabelID                   string            `json:"labelId,omitempty"`
	LabelName                 string            `json:"labelName,omitempty"`
	TeamsIDs                  []string          `json:"teamsIds,omitempty"`
	TeamsNames                map[string]string `json:"teamsNames,omitempty"`
}

// Item is one package line. OutageFlag marks a component that is not in stock.
type Item struct {
	ID                 string  `json:"id"`
	SalesOrderItemName string  `json:"salesOrderItemName,omitempty"`
	ProductName        string  `json:"productName,omitempty"`
	Quantity           float64 `json:"quantity"`
	OutageFlag         bool    `json:"outageFlag,omitempty"`
}

// ListQuery pages the package list; Search is a full-text query.
type ListQuery struct {
	Search  string
	MaxSize int
	Offset  int
}
