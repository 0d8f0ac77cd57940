package services

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError covers malformed input rejected before any mutation:
// non-positive amounts, missing transaction references, bad quantities.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// BusinessRuleError covers violations of a pricing or settlement rule, such
// as split legs below the order total or a refund exceeding the remaining
// payment amount. Nothing is mutated.
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

func businessRulef(format string, args ...any) error {
	return &BusinessRuleError{Message: fmt.Sprintf(format, args...)}
}

// OrderLockedError rejects item mutations once payment has begun on the
// order (locked_at is set).
type OrderLockedError struct {
	OrderID uuid.UUID
}

func (e *OrderLockedError) Error() string {
	return fmt.Sprintf("order %s is locked for payment", e.OrderID)
}

// OrderClosedError rejects item mutations on a paid or closed order.
type OrderClosedError struct {
	OrderID uuid.UUID
	Status  string
}

func (e *OrderClosedError) Error() string {
	return fmt.Sprintf("order %s is %s and can no longer be modified", e.OrderID, e.Status)
}

// InvalidStateTransitionError rejects a status change the state machine does
// not permit.
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// AlreadySettledError is returned when a terminal tries to settle an order
// another terminal already settled, with an idempotency key that does not
// match any prior attempt.
type AlreadySettledError struct {
	OrderID uuid.UUID
}

func (e *AlreadySettledError) Error() string {
	return fmt.Sprintf("order %s is already settled", e.OrderID)
}

// TableNotAvailableForMergeError rejects a merge whose secondary is not
// free, already merged, or in another branch.
type TableNotAvailableForMergeError struct {
	TableID uuid.UUID
	Reason  string
}

func (e *TableNotAvailableForMergeError) Error() string {
	return fmt.Sprintf("table %s cannot join the merge: %s", e.TableID, e.Reason)
}

// NotFoundError is returned when the referenced order, payment or table does
// not exist.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
