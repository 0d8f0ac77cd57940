package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Table statuses.
const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
	TableStatusCleaning  = "cleaning"
)

// RestaurantTable is a physical seating resource. Capacity is the table's own
// seat count and never changes; DisplayCapacity is what the floor view shows
// and equals the summed capacity of the merge group while the table is a
// merge primary. MergedWith holds secondary table ids and is populated on the
// primary only; secondaries carry IsMerged with an empty MergedWith.
type RestaurantTable struct {
	BaseModel
	BranchID        uuid.UUID      `gorm:"type:uuid;index" json:"branch_id"`
	Name            string         `json:"name"`
	Capacity        int            `json:"capacity"`
	DisplayCapacity int            `json:"display_capacity"`
	Status          string         `gorm:"default:'available'" json:"status"`
	IsMerged        bool           `gorm:"default:false" json:"is_merged"`
	MergedWith      pq.StringArray `gorm:"type:text[]" json:"merged_with"`
	PosX            float64        `json:"pos_x"`
	PosY            float64        `json:"pos_y"`
	Shape           string         `gorm:"default:'rect'" json:"shape"`
	Width           float64        `json:"width"`
	Height          float64        `json:"height"`
}

// BeforeCreate keeps the displayed capacity in step with the base capacity
// for freshly created, unmerged tables.
func (t *RestaurantTable) BeforeCreate(tx *gorm.DB) error {
	if err := t.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if t.DisplayCapacity == 0 {
		t.DisplayCapacity = t.Capacity
	}
	return nil
}
