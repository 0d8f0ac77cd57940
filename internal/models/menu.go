package models

import "github.com/google/uuid"

// Category groups menu items for the terminal screens.
type Category struct {
	BaseModel
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// MenuItem is a sellable catalog entry. Its current price is copied onto
// order items at add time; later price edits never touch existing orders.
type MenuItem struct {
	BaseModel
	BranchID    uuid.UUID  `gorm:"type:uuid;index" json:"branch_id"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category  `json:"category,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	IsAvailable bool       `gorm:"default:true" json:"is_available"`
}
