package models

import "github.com/google/uuid"

// Staff roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleWaiter  = "waiter"
	RoleKitchen = "kitchen"
)

// Staff is an employee account used by POS terminals. The staff id is
// recorded as the actor on every order status transition.
type Staff struct {
	BaseModel
	BranchID     uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`
	Branch       *Branch   `json:"branch,omitempty"`
	Name         string    `json:"name"`
	Phone        string    `gorm:"uniqueIndex" json:"phone"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
}
