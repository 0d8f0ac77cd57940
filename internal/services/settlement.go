package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/oryxpos/internal/models"
	"github.com/example/oryxpos/internal/utils"
)

var paymentMethods = map[string]bool{
	models.PaymentMethodCash:   true,
	models.PaymentMethodCard:   true,
	models.PaymentMethodMobile: true,
	models.PaymentMethodFOC:    true,
}

// SettlementService is the single path that turns a priced order into a paid
// or refunded financial record. Every operation runs as one transaction with
// a row lock held on the target order, so two terminals racing to settle the
// same order serialize; the loser either replays (matching idempotency key)
// or gets AlreadySettledError.
type SettlementService struct {
	db     *gorm.DB
	events EventPublisher
}

// NewSettlementService constructs SettlementService.
func NewSettlementService(db *gorm.DB, events EventPublisher) *SettlementService {
	return &SettlementService{db: db, events: events}
}

func (s *SettlementService) publish(branchID uuid.UUID, eventType string, payload any) {
	if s.events != nil {
		s.events.Publish(branchID, eventType, payload)
	}
}

// FinalizePaymentInput describes one full-amount settlement attempt.
type FinalizePaymentInput struct {
	Amount         float64
	Method         string
	IdempotencyKey string
	TransactionRef string
	RecipientName  string
	ActorID        uuid.UUID
}

func validateFinalizeInput(input FinalizePaymentInput) error {
	if input.IdempotencyKey == "" {
		return validationf("idempotency key is required")
	}
	if !paymentMethods[input.Method] {
		return validationf("unknown payment method %q", input.Method)
	}
	if input.Method == models.PaymentMethodFOC {
		if input.RecipientName == "" {
			return validationf("recipient name is required for a free-of-cost settlement")
		}
		if input.Amount != 0 {
			return validationf("a free-of-cost settlement must have amount 0")
		}
		return nil
	}
	if input.Amount <= 0 {
		return validationf("amount must be positive")
	}
	if input.Method != models.PaymentMethodCash && input.TransactionRef == "" {
		return validationf("transaction reference is required for %s payments", input.Method)
	}
	return nil
}

// orderAcceptsSettlement verifies the order is in an open pre-PAID state.
// BILL_REQUESTED is the normal entry; earlier open states are the quick-pay
// shortcut with identical effect.
func orderAcceptsSettlement(order *models.Order) error {
	switch order.Status {
	case models.OrderStatusPaid, models.OrderStatusClosed:
		return &AlreadySettledError{OrderID: order.ID}
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return &AlreadySettledError{OrderID: order.ID}
	}
	return nil
}

// lockOrder loads the order under FOR UPDATE for the transaction's duration.
func lockOrder(tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, err
	}
	return &order, nil
}

// settleOrderTx flips the order to PAID and releases its table, inside the
// caller's transaction.
func settleOrderTx(tx *gorm.DB, order *models.Order) error {
	if err := tx.Model(order).Updates(map[string]any{
		"payment_status": models.PaymentStatusPaid,
		"status":         models.OrderStatusPaid,
	}).Error; err != nil {
		return err
	}
	if order.TableID != nil {
		return releaseTableTx(tx, *order.TableID)
	}
	return nil
}

// FinalizePayment settles the full order amount in one payment. Replaying
// the same idempotency key returns the recorded result unchanged and has no
// further financial effect.
func (s *SettlementService) FinalizePayment(ctx context.Context, orderID uuid.UUID, input FinalizePaymentInput) (*models.Order, *models.Payment, error) {
	if err := validateFinalizeInput(input); err != nil {
		return nil, nil, err
	}

	// Idempotent replay short-circuits before taking any lock.
	if order, payment, err := s.findReplay(ctx, orderID, input.IdempotencyKey); err != nil || payment != nil {
		return order, payment, err
	}

	var payment models.Payment
	var previousStatus string
	var replayed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		previousStatus = order.Status

		// A concurrent retry may have committed between the fast path and
		// acquiring the lock.
		switch err := tx.Where("idempotency_key = ?", input.IdempotencyKey).First(&payment).Error; {
		case err == nil:
			if payment.OrderID != orderID {
				return validationf("idempotency key already used for another order")
			}
			replayed = true
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := orderAcceptsSettlement(order); err != nil {
			return err
		}
		if input.Method == models.PaymentMethodFOC {
			if order.TotalAmount != 0 {
				return businessRulef("free-of-cost settlement requires a zero order total, got %.3f", order.TotalAmount)
			}
		} else if input.Amount < order.TotalAmount {
			return businessRulef("payment %.3f does not cover order total %.3f", input.Amount, order.TotalAmount)
		}

		payment = models.Payment{
			OrderID:        order.ID,
			Amount:         input.Amount,
			Method:         input.Method,
			Status:         models.PaymentStatusPaid,
			IdempotencyKey: input.IdempotencyKey,
			TransactionRef: input.TransactionRef,
			RecipientName:  input.RecipientName,
			ProcessedBy:    input.ActorID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return settleOrderTx(tx, order)
	})
	if err != nil {
		return nil, nil, err
	}

	order, err := s.loadSettledOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !replayed {
		appendStatusLog(ctx, s.db, order.ID, previousStatus, models.OrderStatusPaid, input.ActorID)
		s.publish(order.BranchID, EventPaymentSettled, map[string]any{"order": order, "payment": payment})
	}
	return order, &payment, nil
}

// SplitLegInput is one leg of a split settlement.
type SplitLegInput struct {
	Amount         float64
	Method         string
	IdempotencyKey string
	TransactionRef string
}

// validateSplitLegs applies the per-leg checks that need no order state.
func validateSplitLegs(legs []SplitLegInput) error {
	if len(legs) == 0 {
		return validationf("at least one payment leg is required")
	}
	seen := make(map[string]bool, len(legs))
	for i, leg := range legs {
		if leg.IdempotencyKey == "" {
			return validationf("leg %d: idempotency key is required", i)
		}
		if seen[leg.IdempotencyKey] {
			return validationf("leg %d: duplicate idempotency key %q", i, leg.IdempotencyKey)
		}
		seen[leg.IdempotencyKey] = true
		if leg.Amount <= 0 {
			return validationf("leg %d: amount must be positive", i)
		}
		if !paymentMethods[leg.Method] {
			return validationf("leg %d: unknown payment method %q", i, leg.Method)
		}
		if leg.Method == models.PaymentMethodFOC {
			return validationf("leg %d: free-of-cost is not a split leg method", i)
		}
		if leg.Method != models.PaymentMethodCash && leg.TransactionRef == "" {
			return validationf("leg %d: transaction reference is required for %s payments", i, leg.Method)
		}
	}
	return nil
}

func legsTotal(legs []SplitLegInput) float64 {
	var sum float64
	for _, leg := range legs {
		sum += leg.Amount
	}
	return utils.Round3(sum)
}

// ProcessSplitPayment settles one order across several payment legs. Either
// every leg commits and the order settles, or nothing does. Over-collection
// (tips) is accepted and recorded as-is. Idempotency is per leg: replaying
// the call with the same set of keys returns the recorded legs without
// creating new rows.
func (s *SettlementService) ProcessSplitPayment(ctx context.Context, orderID uuid.UUID, legs []SplitLegInput, actor uuid.UUID) (*models.Order, []models.Payment, error) {
	if err := validateSplitLegs(legs); err != nil {
		return nil, nil, err
	}

	keys := make([]string, 0, len(legs))
	for _, leg := range legs {
		keys = append(keys, leg.IdempotencyKey)
	}

	var payments []models.Payment
	var previousStatus string
	var replayed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		previousStatus = order.Status

		var existing []models.Payment
		if err := tx.Where("idempotency_key IN ?", keys).Find(&existing).Error; err != nil {
			return err
		}
		for _, p := range existing {
			if p.OrderID != orderID {
				return validationf("idempotency key %q already used for another order", p.IdempotencyKey)
			}
		}
		if len(existing) == len(legs) {
			payments = existing
			replayed = true
			return nil
		}
		if len(existing) > 0 {
			// Legs commit all-or-nothing, so a partial key overlap can only
			// be a caller mixing keys from different attempts.
			return validationf("request mixes idempotency keys from a previous settlement attempt")
		}

		if err := orderAcceptsSettlement(order); err != nil {
			return err
		}
		if total := legsTotal(legs); total < order.TotalAmount {
			return businessRulef("split legs total %.3f below order total %.3f", total, order.TotalAmount)
		}

		for _, leg := range legs {
			payment := models.Payment{
				OrderID:        order.ID,
				Amount:         leg.Amount,
				Method:         leg.Method,
				Status:         models.PaymentStatusPaid,
				IdempotencyKey: leg.IdempotencyKey,
				TransactionRef: leg.TransactionRef,
				ProcessedBy:    actor,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			payments = append(payments, payment)
		}
		return settleOrderTx(tx, order)
	})
	if err != nil {
		return nil, nil, err
	}

	order, err := s.loadSettledOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !replayed {
		appendStatusLog(ctx, s.db, order.ID, previousStatus, models.OrderStatusPaid, actor)
		s.publish(order.BranchID, EventPaymentSettled, map[string]any{"order": order, "payments": payments})
	}
	return order, payments, nil
}

// ProcessRefund reverses part or all of one payment. A refund that clears
// the payment's remaining amount flips the payment, and once every payment
// of the order is refunded, the order, to refunded.
func (s *SettlementService) ProcessRefund(ctx context.Context, paymentID uuid.UUID, amount float64, reason string, actor uuid.UUID) (*models.Refund, *models.Payment, error) {
	if reason == "" {
		return nil, nil, validationf("refund reason is required")
	}
	if amount <= 0 {
		return nil, nil, validationf("refund amount must be positive")
	}

	var refund models.Refund
	var payment models.Payment
	var branchID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "payment", ID: paymentID}
			}
			return err
		}
		order, err := lockOrder(tx, payment.OrderID)
		if err != nil {
			return err
		}
		branchID = order.BranchID

		if payment.Status == models.PaymentStatusRefunded {
			return businessRulef("payment %s is already fully refunded", payment.ID)
		}

		var refunded float64
		var prior []models.Refund
		if err := tx.Where("payment_id = ?", payment.ID).Find(&prior).Error; err != nil {
			return err
		}
		for _, r := range prior {
			refunded += r.Amount
		}
		remaining := utils.Round3(payment.Amount - refunded)
		if amount > remaining {
			return businessRulef("refund %.3f exceeds remaining payment amount %.3f", amount, remaining)
		}

		refund = models.Refund{
			PaymentID:   payment.ID,
			Amount:      amount,
			Reason:      reason,
			ProcessedBy: actor,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}

		if utils.Round3(remaining-amount) == 0 {
			payment.Status = models.PaymentStatusRefunded
			if err := tx.Model(&payment).Update("status", models.PaymentStatusRefunded).Error; err != nil {
				return err
			}

			var open int64
			if err := tx.Model(&models.Payment{}).
				Where("order_id = ? AND status <> ?", order.ID, models.PaymentStatusRefunded).
				Count(&open).Error; err != nil {
				return err
			}
			if open == 0 {
				if err := tx.Model(order).Update("payment_status", models.PaymentStatusRefunded).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(branchID, EventOrderUpdated, map[string]any{"payment": payment, "refund": refund})
	return &refund, &payment, nil
}

// findReplay returns the recorded result for an idempotency key seen before,
// or (nil, nil, nil) when the key is fresh.
func (s *SettlementService) findReplay(ctx context.Context, orderID uuid.UUID, key string) (*models.Order, *models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if payment.OrderID != orderID {
		return nil, nil, validationf("idempotency key already used for another order")
	}
	order, err := s.loadSettledOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, &payment, nil
}

func (s *SettlementService) loadSettledOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("Table").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, err
	}
	return &order, nil
}
