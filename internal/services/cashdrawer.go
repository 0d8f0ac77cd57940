package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/oryxpos/internal/models"
	"github.com/example/oryxpos/internal/utils"
)

// drawerVariance returns counted minus expected, in baisa precision, and
// whether the count needs manager review under the given threshold.
func drawerVariance(expected, counted, threshold float64) (variance float64, flagged bool) {
	variance = utils.Round3(counted - expected)
	return variance, math.Abs(variance) > threshold
}

// CashDrawerService reconciles end-of-shift drawer counts against the
// expected cash position.
type CashDrawerService struct {
	db              *gorm.DB
	reviewThreshold float64
}

// NewCashDrawerService constructs CashDrawerService. Counts whose absolute
// variance exceeds reviewThreshold are flagged for manager review.
func NewCashDrawerService(db *gorm.DB, reviewThreshold float64) *CashDrawerService {
	return &CashDrawerService{db: db, reviewThreshold: reviewThreshold}
}

// RecordCountInput describes one drawer count. When a denomination breakdown
// is supplied, its total is the counted amount; otherwise CountedAmount is
// used as given.
type RecordCountInput struct {
	BranchID       uuid.UUID
	StaffID        uuid.UUID
	BusinessDate   time.Time
	ExpectedAmount float64
	CountedAmount  float64
	Breakdown      *models.DenominationBreakdown
	Notes          string
}

// RecordCount persists the drawer count with its computed variance.
func (s *CashDrawerService) RecordCount(ctx context.Context, input RecordCountInput) (*models.CashDrawerCount, error) {
	if input.ExpectedAmount < 0 {
		return nil, validationf("expected amount must not be negative")
	}

	counted := input.CountedAmount
	breakdown := models.DenominationBreakdown{}
	if input.Breakdown != nil {
		breakdown = *input.Breakdown
		counted = breakdown.Total()
	}
	if counted < 0 {
		return nil, validationf("counted amount must not be negative")
	}

	businessDate := input.BusinessDate
	if businessDate.IsZero() {
		businessDate = time.Now()
	}

	variance, flagged := drawerVariance(input.ExpectedAmount, counted, s.reviewThreshold)
	count := models.CashDrawerCount{
		BranchID:         input.BranchID,
		StaffID:          input.StaffID,
		BusinessDate:     businessDate,
		ExpectedAmount:   input.ExpectedAmount,
		CountedAmount:    utils.Round3(counted),
		Variance:         variance,
		FlaggedForReview: flagged,
		Breakdown:        breakdown,
		Notes:            input.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&count).Error; err != nil {
		return nil, err
	}
	return &count, nil
}
