package models

import (
	"time"

	"github.com/google/uuid"
)

// DenominationBreakdown is a fixed-field count of OMR notes and coins in the
// drawer. Coin fields are counted in baisa pieces (1000 baisa = 1 OMR).
type DenominationBreakdown struct {
	Notes50   int `json:"notes_50"`
	Notes20   int `json:"notes_20"`
	Notes10   int `json:"notes_10"`
	Notes5    int `json:"notes_5"`
	Notes1    int `json:"notes_1"`
	NotesHalf int `json:"notes_half"`
	Coins100  int `json:"coins_100"`
	Coins50   int `json:"coins_50"`
	Coins25   int `json:"coins_25"`
	Coins10   int `json:"coins_10"`
	Coins5    int `json:"coins_5"`
}

// Total returns the counted cash value in OMR.
func (d DenominationBreakdown) Total() float64 {
	notes := float64(d.Notes50)*50 +
		float64(d.Notes20)*20 +
		float64(d.Notes10)*10 +
		float64(d.Notes5)*5 +
		float64(d.Notes1) +
		float64(d.NotesHalf)*0.5
	baisa := d.Coins100*100 + d.Coins50*50 + d.Coins25*25 + d.Coins10*10 + d.Coins5*5
	return notes + float64(baisa)/1000
}

// CashDrawerCount is an end-of-shift drawer reconciliation. Variance is
// counted minus expected; counts whose absolute variance exceeds the branch
// review threshold are flagged for a manager.
type CashDrawerCount struct {
	BaseModel
	BranchID         uuid.UUID             `gorm:"type:uuid;index" json:"branch_id"`
	StaffID          uuid.UUID             `gorm:"type:uuid" json:"staff_id"`
	BusinessDate     time.Time             `gorm:"index" json:"business_date"`
	ExpectedAmount   float64               `json:"expected_amount"`
	CountedAmount    float64               `json:"counted_amount"`
	Variance         float64               `json:"variance"`
	FlaggedForReview bool                  `json:"flagged_for_review"`
	Breakdown        DenominationBreakdown `gorm:"embedded;embeddedPrefix:denom_" json:"breakdown"`
	Notes            string                `json:"notes"`
}
