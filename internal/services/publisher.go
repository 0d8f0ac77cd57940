package services

import "github.com/google/uuid"

// Event types broadcast to terminals.
const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
	EventItemPrepChanged    = "item.prep_changed"
	EventPaymentSettled     = "payment.settled"
	EventTableUpdated       = "table.updated"
)

// EventPublisher fans state changes out to the terminals of a branch.
// Delivery is best-effort and at most once; terminals recover missed events
// with their periodic full reload, never from the channel itself.
type EventPublisher interface {
	Publish(branchID uuid.UUID, eventType string, payload any)
}
