package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Stamp records when an action happened and who triggered it. User is the
// actor's email, falling back to the internal id when no email is present.
type Stamp struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
}

// DeliveryEvent is one recorded physical delivery for an order line. Date is a
// calendar date in YYYY-MM-DD form. Events are kept in insertion order and are
// never mutated in place.
type DeliveryEvent struct {
	Date string `json:"date"`
	Note string `json:"note,omitempty"`
}

// LinePayload is the structured body of an order line, persisted as jsonb.
type LinePayload struct {
	Quantity              int             `json:"quantity"`
	DeliveryDate          string          `json:"delivery_date"`
	Note                  string          `json:"note,omitempty"`
	Deliveries            []DeliveryEvent `json:"deliveries,omitempty"`
	CompletedAt           *Stamp          `json:"completed_at,omitempty"`
	ProductionConfirmedAt *Stamp          `json:"production_confirmed_at,omitempty"`
}

// Complete reports whether the payload carries the fields every downstream view
// requires. Lines missing quantity or delivery date are filtered out silently.
func (p LinePayload) Complete() bool {
	return p.Quantity > 0 && p.DeliveryDate != ""
}

// Value implements driver.Valuer for jsonb storage.
func (p LinePayload) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal line payload")
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (p *LinePayload) Scan(value interface{}) error {
	if value == nil {
		*p = LinePayload{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("unsupported type for line payload: %T", value)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return errors.Wrap(err, "failed to unmarshal line payload")
	}
	return nil
}

// ProductSpec is the structured body of a catalog product.
type ProductSpec struct {
	Dimensions  string `json:"dimensions,omitempty"`
	HeatTreated bool   `json:"heat_treated,omitempty"`
}

// Value implements driver.Valuer for jsonb storage.
func (s ProductSpec) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal product spec")
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (s *ProductSpec) Scan(value interface{}) error {
	if value == nil {
		*s = ProductSpec{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("unsupported type for product spec: %T", value)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return errors.Wrap(err, "failed to unmarshal product spec")
	}
	return nil
}
