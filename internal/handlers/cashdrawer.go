package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/oryxpos/internal/middleware"
	"github.com/example/oryxpos/internal/models"
	"github.com/example/oryxpos/internal/services"
)

// CashDrawerHandler manages end-of-shift drawer reconciliation.
type CashDrawerHandler struct {
	db     *gorm.DB
	drawer *services.CashDrawerService
}

// NewCashDrawerHandler constructs CashDrawerHandler.
func NewCashDrawerHandler(db *gorm.DB, drawer *services.CashDrawerService) *CashDrawerHandler {
	return &CashDrawerHandler{db: db, drawer: drawer}
}

type recordCountRequest struct {
	BranchID       string                        `json:"branch_id"`
	BusinessDate   string                        `json:"business_date"`
	ExpectedAmount float64                       `json:"expected_amount"`
	CountedAmount  float64                       `json:"counted_amount"`
	Breakdown      *models.DenominationBreakdown `json:"breakdown"`
	Notes          string                        `json:"notes"`
}

// RecordCount stores a drawer count and flags large variances for review.
func (h *CashDrawerHandler) RecordCount(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req recordCountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
	}
	businessDate, err := time.Parse("2006-01-02", req.BusinessDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "business_date must be YYYY-MM-DD")
	}

	count, err := h.drawer.RecordCount(c.Context(), services.RecordCountInput{
		BranchID:       branchID,
		StaffID:        staffID,
		BusinessDate:   businessDate,
		ExpectedAmount: req.ExpectedAmount,
		CountedAmount:  req.CountedAmount,
		Breakdown:      req.Breakdown,
		Notes:          req.Notes,
	})
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": count})
}

// ListCounts returns drawer counts for a branch, newest first. flagged=true
// narrows to counts awaiting manager review.
func (h *CashDrawerHandler) ListCounts(c *fiber.Ctx) error {
	query := h.db.WithContext(c.Context()).Model(&models.CashDrawerCount{})

	if branch := c.Query("branch_id"); branch != "" {
		branchID, err := uuid.Parse(branch)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
		}
		query = query.Where("branch_id = ?", branchID)
	}
	if c.Query("flagged") == "true" {
		query = query.Where("flagged_for_review = ?", true)
	}

	var counts []models.CashDrawerCount
	if err := query.Order("business_date desc, created_at desc").
		Find(&counts).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": counts})
}
