package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EndpointKind is the closed set of places stock can move between.
type EndpointKind string

const (
	EndpointSupplier EndpointKind = "SUPPLIER"
	EndpointStore    EndpointKind = "STORE"
	EndpointDisposal EndpointKind = "DISPOSAL"
)

// Endpoint is one side of a stock movement. ID is the supplier or store ID and
// is ignored for disposal.
type Endpoint struct {
	Kind EndpointKind `json:"type"`
	ID   *int64       `json:"id,omitempty"`
}

func SupplierEndpoint(id *int64) Endpoint { return Endpoint{Kind: EndpointSupplier, ID: id} }

func StoreEndpoint(id int64) Endpoint { return Endpoint{Kind: EndpointStore, ID: &id} }

func DisposalEndpoint() Endpoint { return Endpoint{Kind: EndpointDisposal} }

// ParseEndpointKind maps a wire label to a kind (case-insensitive).
func ParseEndpointKind(label string) (EndpointKind, error) {
	switch kind := EndpointKind(strings.ToUpper(strings.TrimSpace(label))); kind {
	case EndpointSupplier, EndpointStore, EndpointDisposal:
		return kind, nil
	default:
		return "", Validationf("unknown movement endpoint %q", label)
	}
}

func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind string `json:"type"`
		ID   *int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := ParseEndpointKind(raw.Kind)
	if err != nil {
		return err
	}
	e.Kind, e.ID = kind, raw.ID
	return nil
}

// StoreID returns the store of a STORE endpoint.
func (e Endpoint) StoreID() (int64, error) {
	if e.Kind != EndpointStore || e.ID == nil {
		return 0, Validationf("endpoint %s does not name a store", e.Kind)
	}
	return *e.ID, nil
}

func (e Endpoint) String() string {
	if e.ID == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s:%d", e.Kind, *e.ID)
}

// StockMovement is a recorded transfer of batch quantity between endpoints.
type StockMovement struct {
	ID          int64     `json:"id" db:"id"`
	ProductID   int64     `json:"product_id" db:"product_id"`
	BatchID     int64     `json:"batch_id" db:"batch_id"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Origin      Endpoint  `json:"origin" db:"-"`
	Destination Endpoint  `json:"destination" db:"-"`
	At          time.Time `json:"timestamp" db:"moved_at"`
	UserID      *int64    `json:"user_id,omitempty" db:"user_id"`
}

// MovementRoute is the kind pair of a movement.
type MovementRoute struct {
	From EndpointKind
	To   EndpointKind
}

func (m StockMovement) Route() MovementRoute {
	return MovementRoute{From: m.Origin.Kind, To: m.Destination.Kind}
}
