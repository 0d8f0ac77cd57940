package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/oryxpos/internal/models"
	"github.com/example/oryxpos/internal/services"
)

// TableHandler manages floor-plan table endpoints.
type TableHandler struct {
	db     *gorm.DB
	tables *services.TableService
}

// NewTableHandler constructs TableHandler.
func NewTableHandler(db *gorm.DB, tables *services.TableService) *TableHandler {
	return &TableHandler{db: db, tables: tables}
}

type tableRequest struct {
	BranchID string  `json:"branch_id"`
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	PosX     float64 `json:"pos_x"`
	PosY     float64 `json:"pos_y"`
	Shape    string  `json:"shape"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// CreateTable adds a table to the floor plan.
func (h *TableHandler) CreateTable(c *fiber.Ctx) error {
	var req tableRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if req.Capacity <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "capacity must be positive")
	}

	table := models.RestaurantTable{
		BranchID: branchID,
		Name:     req.Name,
		Capacity: req.Capacity,
		Status:   models.TableStatusAvailable,
		PosX:     req.PosX,
		PosY:     req.PosY,
		Shape:    req.Shape,
		Width:    req.Width,
		Height:   req.Height,
	}
	if err := h.db.WithContext(c.Context()).Create(&table).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": table})
}

// ListTables returns the floor view for a branch.
func (h *TableHandler) ListTables(c *fiber.Ctx) error {
	query := h.db.WithContext(c.Context()).Model(&models.RestaurantTable{})

	if branch := c.Query("branch_id"); branch != "" {
		branchID, err := uuid.Parse(branch)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
		}
		query = query.Where("branch_id = ?", branchID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var tables []models.RestaurantTable
	if err := query.Order("name asc").Find(&tables).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": tables})
}

// GetTable returns one table.
func (h *TableHandler) GetTable(c *fiber.Ctx) error {
	tableID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var table models.RestaurantTable
	if err := h.db.WithContext(c.Context()).First(&table, "id = ?", tableID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "table not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": table})
}

// UpdateTable changes layout attributes of a table.
func (h *TableHandler) UpdateTable(c *fiber.Ctx) error {
	tableID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var table models.RestaurantTable
	if err := h.db.WithContext(c.Context()).First(&table, "id = ?", tableID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "table not found")
		}
		return err
	}

	var req tableRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		table.Name = req.Name
	}
	if req.Capacity > 0 {
		table.Capacity = req.Capacity
		if !table.IsMerged {
			table.DisplayCapacity = req.Capacity
		}
	}
	if req.Shape != "" {
		table.Shape = req.Shape
	}
	table.PosX = req.PosX
	table.PosY = req.PosY
	if req.Width > 0 {
		table.Width = req.Width
	}
	if req.Height > 0 {
		table.Height = req.Height
	}

	if err := h.db.WithContext(c.Context()).Save(&table).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": table})
}

// DeleteTable removes a table that is not occupied or merged.
func (h *TableHandler) DeleteTable(c *fiber.Ctx) error {
	tableID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var table models.RestaurantTable
	if err := h.db.WithContext(c.Context()).First(&table, "id = ?", tableID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "table not found")
		}
		return err
	}
	if table.Status == models.TableStatusOccupied || table.IsMerged || len(table.MergedWith) > 0 {
		return fiber.NewError(fiber.StatusConflict, "table is in use")
	}

	if err := h.db.WithContext(c.Context()).Delete(&table).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type mergeTablesRequest struct {
	PrimaryID    string   `json:"primary_id"`
	SecondaryIDs []string `json:"secondary_ids"`
}

// MergeTables joins tables into one logical unit headed by the primary.
func (h *TableHandler) MergeTables(c *fiber.Ctx) error {
	var req mergeTablesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	primaryID, err := uuid.Parse(req.PrimaryID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid primary_id")
	}
	secondaryIDs := make([]uuid.UUID, 0, len(req.SecondaryIDs))
	for _, raw := range req.SecondaryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid secondary id")
		}
		secondaryIDs = append(secondaryIDs, id)
	}

	primary, err := h.tables.MergeTables(c.Context(), primaryID, secondaryIDs)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": primary})
}

// SplitTables dissolves a merged group back into individual tables.
func (h *TableHandler) SplitTables(c *fiber.Ctx) error {
	primaryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	tables, err := h.tables.SplitTables(c.Context(), primaryID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": tables})
}
