package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/oryxpos/internal/models"
)

// mergedCapacity is the combined seat count a merge group displays on its
// primary.
func mergedCapacity(primary models.RestaurantTable, secondaries []models.RestaurantTable) int {
	capacity := primary.Capacity
	for _, t := range secondaries {
		capacity += t.Capacity
	}
	return capacity
}

// splitGroupTx dissolves a merge group inside the caller's transaction:
// the primary keeps its own capacity again and every former secondary comes
// back to the floor as available.
func splitGroupTx(tx *gorm.DB, primary *models.RestaurantTable) error {
	if len(primary.MergedWith) > 0 {
		if err := tx.Model(&models.RestaurantTable{}).
			Where("id IN ?", []string(primary.MergedWith)).
			Updates(map[string]any{
				"is_merged":        false,
				"status":           models.TableStatusAvailable,
				"display_capacity": gorm.Expr("capacity"),
			}).Error; err != nil {
			return err
		}
	}
	return tx.Model(primary).Updates(map[string]any{
		"is_merged":        false,
		"merged_with":      nil,
		"status":           models.TableStatusAvailable,
		"display_capacity": gorm.Expr("capacity"),
	}).Error
}

// releaseTableTx frees an order's table after settlement. A merged primary
// triggers a full split of its group; a plain table simply becomes
// available. A table deleted out from under the order is ignored.
func releaseTableTx(tx *gorm.DB, tableID uuid.UUID) error {
	var table models.RestaurantTable
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&table, "id = ?", tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if table.IsMerged && len(table.MergedWith) > 0 {
		return splitGroupTx(tx, &table)
	}
	return tx.Model(&table).Update("status", models.TableStatusAvailable).Error
}

// TableService tracks seating resources and their merge grouping. Merge and
// split are each one atomic multi-row update.
type TableService struct {
	db     *gorm.DB
	events EventPublisher
}

// NewTableService constructs TableService.
func NewTableService(db *gorm.DB, events EventPublisher) *TableService {
	return &TableService{db: db, events: events}
}

func (s *TableService) publish(branchID uuid.UUID, eventType string, payload any) {
	if s.events != nil {
		s.events.Publish(branchID, eventType, payload)
	}
}

// MergeTables folds the secondary tables into the primary for one party.
// Every secondary must be available, unmerged and in the primary's branch.
// A table belongs to at most one merge group; groups do not nest.
func (s *TableService) MergeTables(ctx context.Context, primaryID uuid.UUID, secondaryIDs []uuid.UUID) (*models.RestaurantTable, error) {
	if len(secondaryIDs) == 0 {
		return nil, validationf("at least one secondary table is required")
	}
	seen := map[uuid.UUID]bool{primaryID: true}
	for _, id := range secondaryIDs {
		if seen[id] {
			return nil, validationf("table %s appears more than once in the merge", id)
		}
		seen[id] = true
	}

	var primary models.RestaurantTable
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&primary, "id = ?", primaryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "table", ID: primaryID}
			}
			return err
		}
		if primary.IsMerged {
			return &TableNotAvailableForMergeError{TableID: primary.ID, Reason: "already part of a merge group"}
		}

		var secondaries []models.RestaurantTable
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", secondaryIDs).
			Find(&secondaries).Error; err != nil {
			return err
		}
		if len(secondaries) != len(secondaryIDs) {
			found := make(map[uuid.UUID]bool, len(secondaries))
			for _, t := range secondaries {
				found[t.ID] = true
			}
			for _, id := range secondaryIDs {
				if !found[id] {
					return &NotFoundError{Resource: "table", ID: id}
				}
			}
		}
		for _, t := range secondaries {
			if t.BranchID != primary.BranchID {
				return &TableNotAvailableForMergeError{TableID: t.ID, Reason: "belongs to a different branch"}
			}
			if t.IsMerged {
				return &TableNotAvailableForMergeError{TableID: t.ID, Reason: "already part of a merge group"}
			}
			if t.Status != models.TableStatusAvailable {
				return &TableNotAvailableForMergeError{TableID: t.ID, Reason: "table is " + t.Status}
			}
		}

		merged := make([]string, 0, len(secondaryIDs))
		for _, id := range secondaryIDs {
			merged = append(merged, id.String())
		}
		// Secondaries keep their own capacity but leave the floor view:
		// occupied blocks independent seating while merged.
		if err := tx.Model(&models.RestaurantTable{}).
			Where("id IN ?", secondaryIDs).
			Updates(map[string]any{
				"is_merged": true,
				"status":    models.TableStatusOccupied,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&primary).Updates(map[string]any{
			"is_merged":        true,
			"merged_with":      pq.StringArray(merged),
			"display_capacity": mergedCapacity(primary, secondaries),
		}).Error; err != nil {
			return err
		}
		return tx.First(&primary, "id = ?", primaryID).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(primary.BranchID, EventTableUpdated, primary)
	return &primary, nil
}

// SplitTables reverses a merge, restoring every member to its own capacity
// and returning the secondaries to the floor as available. Splitting while
// an order is still open on the group is allowed; the order keeps its
// reference to the primary, which survives the split as an ordinary table.
func (s *TableService) SplitTables(ctx context.Context, primaryID uuid.UUID) ([]models.RestaurantTable, error) {
	var memberIDs []string
	var branchID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var primary models.RestaurantTable
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&primary, "id = ?", primaryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "table", ID: primaryID}
			}
			return err
		}
		if !primary.IsMerged || len(primary.MergedWith) == 0 {
			return validationf("table %s is not the primary of a merge group", primary.ID)
		}
		branchID = primary.BranchID
		memberIDs = append([]string{primary.ID.String()}, primary.MergedWith...)
		return splitGroupTx(tx, &primary)
	})
	if err != nil {
		return nil, err
	}

	var members []models.RestaurantTable
	if err := s.db.WithContext(ctx).Where("id IN ?", memberIDs).Find(&members).Error; err != nil {
		return nil, err
	}
	s.publish(branchID, EventTableUpdated, members)
	return members, nil
}
