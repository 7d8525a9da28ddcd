package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across services and handlers
var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrNotFound             = errors.New("record not found")
	ErrEmptyRejectionReason = errors.New("rejection reason must not be empty")
)

// ExceedsPendingBalanceError is returned when a declared payment is larger than
// the student's total outstanding balance. Both figures are carried so the
// caller can show a precise message.
type ExceedsPendingBalanceError struct {
	Declared decimal.Decimal
	Pending  decimal.Decimal
}

func (e *ExceedsPendingBalanceError) Error() string {
	return fmt.Sprintf("declared amount %s exceeds pending balance of %s",
		e.Declared.StringFixed(2), e.Pending.StringFixed(2))
}

// InvalidStateTransitionError is returned when an operation is attempted on an
// installment or voucher that is not in the expected source state.
type InvalidStateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from %q to %q", e.Entity, e.From, e.To)
}

// OwnershipViolationError is returned when an actor addresses a record that
// belongs to a different student. Always surfaced, never silently ignored.
type OwnershipViolationError struct {
	Resource string
	ActorID  uint
}

func (e *OwnershipViolationError) Error() string {
	return fmt.Sprintf("%s does not belong to student %d", e.Resource, e.ActorID)
}

// GatewayError wraps a failure reported by the card gateway. Nothing is
// persisted when this is returned.
type GatewayError struct {
	Gateway string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway error: %v", e.Gateway, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
