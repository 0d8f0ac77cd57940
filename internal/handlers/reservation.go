package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/oryxpos/internal/models"
)

// ReservationHandler manages table bookings.
type ReservationHandler struct {
	db *gorm.DB
}

// NewReservationHandler constructs ReservationHandler.
func NewReservationHandler(db *gorm.DB) *ReservationHandler {
	return &ReservationHandler{db: db}
}

type reservationRequest struct {
	BranchID      string `json:"branch_id"`
	TableID       string `json:"table_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	PartySize     int    `json:"party_size"`
	ReservedAt    string `json:"reserved_at"`
	Notes         string `json:"notes"`
}

// CreateReservation books a party, optionally pinned to a table.
func (h *ReservationHandler) CreateReservation(c *fiber.Ctx) error {
	var req reservationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
	}
	if req.CustomerName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "customer_name is required")
	}
	if req.PartySize <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "party_size must be positive")
	}
	reservedAt, err := time.Parse(time.RFC3339, req.ReservedAt)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "reserved_at must be RFC3339")
	}

	reservation := models.Reservation{
		BranchID:      branchID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PartySize:     req.PartySize,
		ReservedAt:    reservedAt,
		Status:        models.ReservationStatusBooked,
		Notes:         req.Notes,
	}
	if req.TableID != "" {
		tableID, err := uuid.Parse(req.TableID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid table_id")
		}
		reservation.TableID = &tableID
	}

	if err := h.db.WithContext(c.Context()).Create(&reservation).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": reservation})
}

// ListReservations returns bookings for a branch, optionally for one day.
func (h *ReservationHandler) ListReservations(c *fiber.Ctx) error {
	query := h.db.WithContext(c.Context()).Model(&models.Reservation{})

	if branch := c.Query("branch_id"); branch != "" {
		branchID, err := uuid.Parse(branch)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
		}
		query = query.Where("branch_id = ?", branchID)
	}
	if day := c.Query("date"); day != "" {
		start, err := time.Parse("2006-01-02", day)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		query = query.Where("reserved_at >= ? AND reserved_at < ?", start, start.AddDate(0, 0, 1))
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var reservations []models.Reservation
	if err := query.Preload("Table").
		Order("reserved_at asc").
		Find(&reservations).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": reservations})
}

type reservationStatusRequest struct {
	Status string `json:"status"`
}

// UpdateReservationStatus moves a booking between booked, seated, cancelled
// and no_show. Seating a pinned reservation occupies its table.
func (h *ReservationHandler) UpdateReservationStatus(c *fiber.Ctx) error {
	reservationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req reservationStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	switch req.Status {
	case models.ReservationStatusBooked,
		models.ReservationStatusSeated,
		models.ReservationStatusCancelled,
		models.ReservationStatusNoShow:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown reservation status")
	}

	var reservation models.Reservation
	err = h.db.WithContext(c.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
			return err
		}

		reservation.Status = req.Status
		if err := tx.Save(&reservation).Error; err != nil {
			return err
		}

		if req.Status == models.ReservationStatusSeated && reservation.TableID != nil {
			return tx.Model(&models.RestaurantTable{}).
				Where("id = ? AND status = ?", *reservation.TableID, models.TableStatusReserved).
				Update("status", models.TableStatusOccupied).Error
		}
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "reservation not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": reservation})
}
