package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/oryxpos/internal/middleware"
	"github.com/example/oryxpos/internal/services"
)

// PaymentHandler manages settlement endpoints.
type PaymentHandler struct {
	settlement *services.SettlementService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(settlement *services.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlement: settlement}
}

type finalizePaymentRequest struct {
	Amount         float64 `json:"amount"`
	Method         string  `json:"method"`
	IdempotencyKey string  `json:"idempotency_key"`
	TransactionRef string  `json:"transaction_ref"`
	RecipientName  string  `json:"recipient_name"`
}

// FinalizePayment settles the full order amount with a single payment.
func (h *PaymentHandler) FinalizePayment(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req finalizePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, payment, err := h.settlement.FinalizePayment(c.Context(), orderID, services.FinalizePaymentInput{
		Amount:         req.Amount,
		Method:         req.Method,
		IdempotencyKey: req.IdempotencyKey,
		TransactionRef: req.TransactionRef,
		RecipientName:  req.RecipientName,
		ActorID:        staffID,
	})
	middleware.RecordSettlementOperation("finalize", err == nil)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"order": order, "payment": payment},
	})
}

type splitLegRequest struct {
	Amount         float64 `json:"amount"`
	Method         string  `json:"method"`
	IdempotencyKey string  `json:"idempotency_key"`
	TransactionRef string  `json:"transaction_ref"`
}

type splitPaymentRequest struct {
	Legs []splitLegRequest `json:"legs"`
}

// ProcessSplitPayment settles the order with several legs, all or nothing.
func (h *PaymentHandler) ProcessSplitPayment(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req splitPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	legs := make([]services.SplitLegInput, 0, len(req.Legs))
	for _, leg := range req.Legs {
		legs = append(legs, services.SplitLegInput{
			Amount:         leg.Amount,
			Method:         leg.Method,
			IdempotencyKey: leg.IdempotencyKey,
			TransactionRef: leg.TransactionRef,
		})
	}

	order, payments, err := h.settlement.ProcessSplitPayment(c.Context(), orderID, legs, staffID)
	middleware.RecordSettlementOperation("split", err == nil)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"order": order, "payments": payments},
	})
}

type refundRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

// ProcessRefund refunds part or all of a settled payment.
func (h *PaymentHandler) ProcessRefund(c *fiber.Ctx) error {
	staffID, ok := middleware.GetCurrentStaffID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	refund, payment, err := h.settlement.ProcessRefund(c.Context(), paymentID, req.Amount, req.Reason, staffID)
	middleware.RecordSettlementOperation("refund", err == nil)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"refund": refund, "payment": payment},
	})
}
