package models

import (
	"time"

	"github.com/google/uuid"
)

// Reservation statuses.
const (
	ReservationStatusBooked    = "booked"
	ReservationStatusSeated    = "seated"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusNoShow    = "no_show"
)

// Reservation is a scheduled booking, optionally pinned to a table.
type Reservation struct {
	BaseModel
	BranchID      uuid.UUID        `gorm:"type:uuid;index" json:"branch_id"`
	TableID       *uuid.UUID       `gorm:"type:uuid" json:"table_id"`
	Table         *RestaurantTable `json:"table,omitempty"`
	CustomerName  string           `json:"customer_name"`
	CustomerPhone string           `json:"customer_phone"`
	PartySize     int              `json:"party_size"`
	ReservedAt    time.Time        `gorm:"index" json:"reserved_at"`
	Status        string           `gorm:"default:'booked'" json:"status"`
	Notes         string           `json:"notes"`
}
