package models

// Status is the position of an order line in the fulfillment lifecycle.
type Status string

const (
	StatusProduction       Status = "production"
	StatusDelivery         Status = "delivery"
	StatusReadyForDelivery Status = "ready_for_delivery"
	StatusDocumented       Status = "documented"
	StatusCompleted        Status = "completed"
)

// validNext is the transition table. The lifecycle is a directed path with a
// single cycle between delivery and ready_for_delivery; nothing moves backwards
// out of documented or completed.
var validNext = map[Status]map[Status]bool{
	StatusProduction:       {StatusDelivery: true},
	StatusDelivery:         {StatusReadyForDelivery: true, StatusDocumented: true},
	StatusReadyForDelivery: {StatusDelivery: true, StatusDocumented: true},
	StatusDocumented:       {StatusCompleted: true},
	StatusCompleted:        {},
}

// CanTransition reports whether a line may move from one status to another.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal reports whether no transition leads out of s except completion.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}
