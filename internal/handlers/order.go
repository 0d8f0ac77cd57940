package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/oryxpos/internal/middleware"
	"github.com/example/oryxpos/internal/models"
	"github.com/example/oryxpos/internal/services"
	"github.com/example/oryxpos/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db     *gorm.DB
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, orders *services.OrderService) *OrderHandler {
	return &OrderHandler{db: db, orders: orders}
}

type createOrderRequest struct {
	BranchID     string `json:"branch_id"`
	TableID      string `json:"table_id"`
	CustomerName string `json:"customer_name"`
}

// CreateOrder opens a new order for a table or as takeaway.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
	}

	input := services.CreateOrderInput{
		BranchID:     branchID,
		CustomerName: req.CustomerName,
		CreatedBy:    staffID,
	}
	if req.TableID != "" {
		tableID, err := uuid.Parse(req.TableID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid table_id")
		}
		input.TableID = &tableID
	}

	order, err := h.orders.CreateOrder(c.Context(), input)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

// ListOrders returns orders for a branch, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{})

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

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns one order with items, payments, refunds and table.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.GetOrder(c.Context(), orderID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// GetOrderAuditLog returns the order's status transition trail.
func (h *OrderHandler) GetOrderAuditLog(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var entries []models.OrderStatusLog
	if err := h.db.Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&entries).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": entries})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus advances the order through its status machine.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.orders.UpdateStatus(c.Context(), orderID, req.Status, staffID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type addItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes"`
}

// AddItem appends a line to the order at the current menu price.
func (h *OrderHandler) AddItem(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid menu_item_id")
	}

	item, err := h.orders.AddItem(c.Context(), orderID, services.AddItemInput{
		MenuItemID: menuItemID,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
		ActorID:    staffID,
	})
	if err != nil {
		return serviceError(err)
	}

	order, err := h.orders.GetOrder(c.Context(), orderID)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"item": item, "order": order},
	})
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItemQuantity changes a line's quantity.
func (h *OrderHandler) UpdateItemQuantity(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	itemID, err := uuid.Parse(c.Params("itemId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
	}

	var req updateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	item, err := h.orders.UpdateItemQuantity(c.Context(), orderID, itemID, req.Quantity, staffID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}

// RemoveItem deletes a line from the order.
func (h *OrderHandler) RemoveItem(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	itemID, err := uuid.Parse(c.Params("itemId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
	}

	if err := h.orders.RemoveItem(c.Context(), orderID, itemID, staffID); err != nil {
		return serviceError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type applyDiscountRequest struct {
	Amount float64 `json:"amount"`
}

// ApplyDiscount sets a flat discount on the order.
func (h *OrderHandler) ApplyDiscount(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req applyDiscountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.orders.ApplyDiscount(c.Context(), orderID, req.Amount, staffID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type prepStatusRequest struct {
	PrepStatus string `json:"prep_status"`
}

// SetItemPrepStatus flips a line between pending and ready for the kitchen.
func (h *OrderHandler) SetItemPrepStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	itemID, err := uuid.Parse(c.Params("itemId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
	}

	var req prepStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	item, err := h.orders.SetItemPrepStatus(c.Context(), orderID, itemID, req.PrepStatus)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}
