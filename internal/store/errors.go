package store

import "fmt"

// ValidationError reports malformed input before anything touches the
// database: blank names, non-positive prices, negative amounts.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// NotFoundError reports a referenced identifier that does not resolve.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// ConflictError reports a unique-constraint violation that upsert semantics
// could not absorb, or a delete blocked by referencing rows.
type ConflictError struct {
	Entity string
	Field  string
	Value  any
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s.%s=%v: %s", e.Entity, e.Field, e.Value, e.Reason)
}

// InsufficientStockError names the book whose stock would go negative.
type InsufficientStockError struct {
	BookID uint
	Have   int
	Want   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %d: have %d, want %d", e.BookID, e.Have, e.Want)
}

// InvalidTransitionError reports a fulfillment-state change that the step
// machine does not permit.
type InvalidTransitionError struct {
	BuyID  uint
	From   string
	To     string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("buy %d: cannot move from %q to %q: %s", e.BuyID, e.From, e.To, e.Reason)
}
