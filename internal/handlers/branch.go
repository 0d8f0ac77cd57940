package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/oryxpos/internal/models"
)

// BranchHandler manages restaurant branch endpoints.
type BranchHandler struct {
	db *gorm.DB
}

// NewBranchHandler constructs BranchHandler.
func NewBranchHandler(db *gorm.DB) *BranchHandler {
	return &BranchHandler{db: db}
}

type branchRequest struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Phone   string   `json:"phone"`
	TaxRate *float64 `json:"tax_rate"`
}

// CreateBranch registers a new location.
func (h *BranchHandler) CreateBranch(c *fiber.Ctx) error {
	var req branchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	branch := models.Branch{
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		TaxRate:  0.1,
		Currency: "OMR",
		IsActive: true,
	}
	if req.TaxRate != nil {
		if *req.TaxRate < 0 || *req.TaxRate >= 1 {
			return fiber.NewError(fiber.StatusBadRequest, "tax_rate must be in [0, 1)")
		}
		branch.TaxRate = *req.TaxRate
	}

	if err := h.db.WithContext(c.Context()).Create(&branch).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": branch})
}

// ListBranches returns all active locations.
func (h *BranchHandler) ListBranches(c *fiber.Ctx) error {
	var branches []models.Branch
	if err := h.db.WithContext(c.Context()).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&branches).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": branches})
}

// GetBranch returns one location.
func (h *BranchHandler) GetBranch(c *fiber.Ctx) error {
	branchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var branch models.Branch
	if err := h.db.WithContext(c.Context()).First(&branch, "id = ?", branchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "branch not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": branch})
}

// UpdateBranch edits branch details.
func (h *BranchHandler) UpdateBranch(c *fiber.Ctx) error {
	branchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var branch models.Branch
	if err := h.db.WithContext(c.Context()).First(&branch, "id = ?", branchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "branch not found")
		}
		return err
	}

	var req branchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		branch.Name = req.Name
	}
	if req.Address != "" {
		branch.Address = req.Address
	}
	if req.Phone != "" {
		branch.Phone = req.Phone
	}
	if req.TaxRate != nil {
		if *req.TaxRate < 0 || *req.TaxRate >= 1 {
			return fiber.NewError(fiber.StatusBadRequest, "tax_rate must be in [0, 1)")
		}
		branch.TaxRate = *req.TaxRate
	}

	if err := h.db.WithContext(c.Context()).Save(&branch).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": branch})
}

// DeactivateBranch soft-disables a location.
func (h *BranchHandler) DeactivateBranch(c *fiber.Ctx) error {
	branchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	result := h.db.WithContext(c.Context()).
		Model(&models.Branch{}).
		Where("id = ?", branchID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "branch not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
