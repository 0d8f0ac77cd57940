package models

import "github.com/google/uuid"

// Payment methods.
const (
	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodMobile = "mobile"
	PaymentMethodFOC    = "foc"
)

// Payment is one settled (or refunded) amount against an order. A split
// settlement produces several rows sharing the order id. The idempotency key
// is caller-generated and globally unique: a retried call with the same key
// returns this row instead of creating a second one.
type Payment struct {
	BaseModel
	OrderID        uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	Amount         float64   `json:"amount"`
	Method         string    `json:"method"`
	Status         string    `json:"status"`
	IdempotencyKey string    `gorm:"uniqueIndex" json:"idempotency_key"`
	TransactionRef string    `json:"transaction_ref"`
	RecipientName  string    `json:"recipient_name"`
	ProcessedBy    uuid.UUID `gorm:"type:uuid" json:"processed_by"`
	Refunds        []Refund  `json:"refunds,omitempty"`
}

// Refund is a partial or full reversal of one payment. The sum of refunds on
// a payment never exceeds the payment amount.
type Refund struct {
	BaseModel
	PaymentID   uuid.UUID `gorm:"type:uuid;index" json:"payment_id"`
	Amount      float64   `json:"amount"`
	Reason      string    `json:"reason"`
	ProcessedBy uuid.UUID `gorm:"type:uuid" json:"processed_by"`
}
