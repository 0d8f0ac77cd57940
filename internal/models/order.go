package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses, in forward order.
const (
	OrderStatusCreated       = "CREATED"
	OrderStatusSentToKitchen = "SENT_TO_KITCHEN"
	OrderStatusServed        = "SERVED"
	OrderStatusBillRequested = "BILL_REQUESTED"
	OrderStatusPaid          = "PAID"
	OrderStatusClosed        = "CLOSED"
)

// Payment statuses carried on the order header.
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Item preparation statuses used by the kitchen display.
const (
	PrepStatusPending = "pending"
	PrepStatusReady   = "ready"
)

// Order is a dine-in or takeaway order. The monetary columns are derived
// from the item set and never written by clients; a non-nil LockedAt blocks
// every further item mutation.
type Order struct {
	BaseModel
	BranchID       uuid.UUID        `gorm:"type:uuid;index" json:"branch_id"`
	TableID        *uuid.UUID       `gorm:"type:uuid;index" json:"table_id"`
	Table          *RestaurantTable `json:"table,omitempty"`
	CustomerName   string           `json:"customer_name"`
	Status         string           `gorm:"index" json:"status"`
	PaymentStatus  string           `json:"payment_status"`
	Subtotal       float64          `json:"subtotal"`
	TaxAmount      float64          `json:"tax_amount"`
	DiscountAmount float64          `json:"discount_amount"`
	TotalAmount    float64          `json:"total_amount"`
	LockedAt       *time.Time       `json:"locked_at"`
	CreatedBy      uuid.UUID        `gorm:"type:uuid" json:"created_by"`
	Items          []OrderItem      `json:"items,omitempty"`
	Payments       []Payment        `json:"payments,omitempty"`
}

// OrderItem is one order line. UnitPrice is the menu price captured at add
// time.
type OrderItem struct {
	BaseModel
	OrderID    uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	MenuItemID uuid.UUID `gorm:"type:uuid" json:"menu_item_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
	Notes      string    `json:"notes"`
	PrepStatus string    `gorm:"default:'pending'" json:"prep_status"`
}

// OrderStatusLog is the append-only audit trail of status transitions. It is
// written best-effort alongside every transition and is the system of record
// for dispute resolution.
type OrderStatusLog struct {
	BaseModel
	OrderID        uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ActorID        uuid.UUID `gorm:"type:uuid" json:"actor_id"`
}
