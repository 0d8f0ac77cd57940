package models

// Branch is a physical restaurant location. Orders, tables and staff all
// belong to exactly one branch.
type Branch struct {
	BaseModel
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Phone    string  `json:"phone"`
	TaxRate  float64 `gorm:"default:0.1" json:"tax_rate"`
	Currency string  `gorm:"default:'OMR'" json:"currency"`
	IsActive bool    `gorm:"default:true" json:"is_active"`
}
