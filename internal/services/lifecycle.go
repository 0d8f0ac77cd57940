package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/oryxpos/internal/models"
	"github.com/example/oryxpos/internal/utils"
)

var statusOrder = map[string]int{
	models.OrderStatusCreated:       0,
	models.OrderStatusSentToKitchen: 1,
	models.OrderStatusServed:        2,
	models.OrderStatusBillRequested: 3,
	models.OrderStatusPaid:          4,
	models.OrderStatusClosed:        5,
}

// canTransition reports whether the status machine permits from -> to.
// Forward moves go to the immediate successor only. The single backward
// exception is re-entering SENT_TO_KITCHEN from SERVED or BILL_REQUESTED
// when a table orders another round. Nothing leaves CLOSED.
func canTransition(from, to string) bool {
	fromRank, ok := statusOrder[from]
	if !ok {
		return false
	}
	toRank, ok := statusOrder[to]
	if !ok {
		return false
	}
	if from == models.OrderStatusClosed {
		return false
	}
	if to == models.OrderStatusSentToKitchen &&
		(from == models.OrderStatusServed || from == models.OrderStatusBillRequested) {
		return true
	}
	return toRank == fromRank+1
}

// computeTotals derives the order's monetary columns from the current item
// set. The discount is clamped into [0, subtotal+tax] so that removing items
// can never drive the total negative.
func computeTotals(items []models.OrderItem, taxRate, discount float64) (subtotal, tax, clamped, total float64) {
	for _, item := range items {
		subtotal += item.TotalPrice
	}
	subtotal = utils.Round3(subtotal)
	tax = utils.Round3(subtotal * taxRate)
	clamped = discount
	if clamped < 0 {
		clamped = 0
	}
	if max := utils.Round3(subtotal + tax); clamped > max {
		clamped = max
	}
	total = utils.Round3(subtotal + tax - clamped)
	return subtotal, tax, clamped, total
}

// OrderService enforces the order status machine and the item mutation
// rules, recomputing totals after every mutation.
type OrderService struct {
	db             *gorm.DB
	events         EventPublisher
	defaultTaxRate float64
}

// NewOrderService constructs OrderService. The default tax rate applies when
// a branch has no rate of its own.
func NewOrderService(db *gorm.DB, events EventPublisher, defaultTaxRate float64) *OrderService {
	return &OrderService{db: db, events: events, defaultTaxRate: defaultTaxRate}
}

func (s *OrderService) publish(branchID uuid.UUID, eventType string, payload any) {
	if s.events != nil {
		s.events.Publish(branchID, eventType, payload)
	}
}

// appendStatusLog appends a status transition to the audit trail. The trail
// is best-effort: a write failure is logged as a warning and never rolls
// back the transition it records.
func appendStatusLog(ctx context.Context, db *gorm.DB, orderID uuid.UUID, previous, next string, actor uuid.UUID) {
	entry := models.OrderStatusLog{
		OrderID:        orderID,
		PreviousStatus: previous,
		NewStatus:      next,
		ActorID:        actor,
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("warning: audit log write failed for order %s (%s -> %s): %v", orderID, previous, next, err)
	}
}

// CreateOrderInput carries the fields for a new order. A nil TableID means
// takeaway.
type CreateOrderInput struct {
	BranchID     uuid.UUID
	TableID      *uuid.UUID
	CustomerName string
	CreatedBy    uuid.UUID
}

// CreateOrder opens a new order in CREATED and, for dine-in, occupies the
// table.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	order := models.Order{
		BranchID:      input.BranchID,
		TableID:       input.TableID,
		CustomerName:  input.CustomerName,
		Status:        models.OrderStatusCreated,
		PaymentStatus: models.PaymentStatusUnpaid,
		CreatedBy:     input.CreatedBy,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.TableID != nil {
			var table models.RestaurantTable
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&table, "id = ?", *input.TableID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Resource: "table", ID: *input.TableID}
				}
				return err
			}
			if table.BranchID != input.BranchID {
				return validationf("table %s belongs to a different branch", table.ID)
			}
			if table.IsMerged && len(table.MergedWith) == 0 {
				return validationf("table %s is folded into a merge group", table.ID)
			}
			if table.Status != models.TableStatusAvailable &&
				table.Status != models.TableStatusReserved &&
				table.Status != models.TableStatusOccupied {
				return validationf("table %s is %s", table.ID, table.Status)
			}
			if err := tx.Model(&table).Update("status", models.TableStatusOccupied).Error; err != nil {
				return err
			}
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	appendStatusLog(ctx, s.db, order.ID, "", models.OrderStatusCreated, input.CreatedBy)
	s.publish(order.BranchID, EventOrderCreated, order)
	return &order, nil
}

// GetOrder returns the order with its items, payments, refunds and table as
// one fully-typed aggregate.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("Payments.Refunds").
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

// UpdateStatus moves the order to targetStatus. PAID is refused here: the
// flip to PAID and the financial record must share one settlement
// transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, targetStatus string, actor uuid.UUID) (*models.Order, error) {
	if _, ok := statusOrder[targetStatus]; !ok {
		return nil, validationf("unknown order status %q", targetStatus)
	}

	var order models.Order
	var previous string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}
		previous = order.Status

		if targetStatus == models.OrderStatusPaid {
			return &InvalidStateTransitionError{From: previous, To: targetStatus}
		}
		if !canTransition(previous, targetStatus) {
			return &InvalidStateTransitionError{From: previous, To: targetStatus}
		}

		updates := map[string]any{"status": targetStatus}
		switch targetStatus {
		case models.OrderStatusBillRequested:
			// The lock must land in the same write as the transition to
			// close the race with concurrent item mutations.
			now := time.Now()
			updates["locked_at"] = &now
		case models.OrderStatusSentToKitchen:
			if previous == models.OrderStatusBillRequested {
				updates["locked_at"] = nil
			}
		}
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&order, "id = ?", orderID).Error
	})
	if err != nil {
		return nil, err
	}

	appendStatusLog(ctx, s.db, order.ID, previous, targetStatus, actor)
	s.publish(order.BranchID, EventOrderStatusChanged, order)
	return &order, nil
}

// loadOpenOrder locks the order row and verifies it still accepts item
// mutations.
func loadOpenOrder(tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, err
	}
	if order.Status == models.OrderStatusPaid || order.Status == models.OrderStatusClosed {
		return nil, &OrderClosedError{OrderID: order.ID, Status: order.Status}
	}
	if order.LockedAt != nil {
		return nil, &OrderLockedError{OrderID: order.ID}
	}
	return &order, nil
}

// recomputeTotals re-derives subtotal, tax and total from the order's
// current item set inside tx. discount overrides the stored discount when
// non-nil.
func (s *OrderService) recomputeTotals(tx *gorm.DB, order *models.Order, discount *float64) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return err
	}

	taxRate := s.defaultTaxRate
	var branch models.Branch
	if err := tx.First(&branch, "id = ?", order.BranchID).Error; err == nil && branch.TaxRate > 0 {
		taxRate = branch.TaxRate
	}

	applied := order.DiscountAmount
	if discount != nil {
		applied = *discount
	}
	subtotal, tax, clamped, total := computeTotals(items, taxRate, applied)

	return tx.Model(order).Updates(map[string]any{
		"subtotal":        subtotal,
		"tax_amount":      tax,
		"discount_amount": clamped,
		"total_amount":    total,
	}).Error
}

// AddItemInput describes a line to add to an order.
type AddItemInput struct {
	MenuItemID uuid.UUID
	Quantity   int
	Notes      string
	ActorID    uuid.UUID
}

// AddItem appends a line to an open order, capturing the current menu price,
// and recomputes the order totals in the same transaction.
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, input AddItemInput) (*models.OrderItem, error) {
	if input.Quantity <= 0 {
		return nil, validationf("quantity must be positive")
	}

	var item models.OrderItem
	var branchID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOpenOrder(tx, orderID)
		if err != nil {
			return err
		}
		branchID = order.BranchID

		var menuItem models.MenuItem
		if err := tx.First(&menuItem, "id = ?", input.MenuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "menu item", ID: input.MenuItemID}
			}
			return err
		}
		if menuItem.BranchID != order.BranchID {
			return validationf("menu item %s belongs to a different branch", menuItem.ID)
		}
		if !menuItem.IsAvailable {
			return validationf("menu item %q is not available", menuItem.Name)
		}

		item = models.OrderItem{
			OrderID:    order.ID,
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   input.Quantity,
			UnitPrice:  menuItem.Price,
			TotalPrice: utils.Round3(menuItem.Price * float64(input.Quantity)),
			Notes:      input.Notes,
			PrepStatus: models.PrepStatusPending,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, order, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(branchID, EventOrderUpdated, map[string]any{"order_id": orderID, "item": item})
	return &item, nil
}

// UpdateItemQuantity changes a line's quantity at its captured unit price.
func (s *OrderService) UpdateItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, quantity int, actor uuid.UUID) (*models.OrderItem, error) {
	if quantity <= 0 {
		return nil, validationf("quantity must be positive")
	}

	var item models.OrderItem
	var branchID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOpenOrder(tx, orderID)
		if err != nil {
			return err
		}
		branchID = order.BranchID

		if err := tx.First(&item, "id = ? AND order_id = ?", itemID, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order item", ID: itemID}
			}
			return err
		}

		item.Quantity = quantity
		item.TotalPrice = utils.Round3(item.UnitPrice * float64(quantity))
		if err := tx.Model(&item).Updates(map[string]any{
			"quantity":    item.Quantity,
			"total_price": item.TotalPrice,
		}).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, order, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(branchID, EventOrderUpdated, map[string]any{"order_id": orderID, "item": item})
	return &item, nil
}

// RemoveItem deletes a line and recomputes the totals.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, actor uuid.UUID) error {
	var branchID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOpenOrder(tx, orderID)
		if err != nil {
			return err
		}
		branchID = order.BranchID

		result := tx.Delete(&models.OrderItem{}, "id = ? AND order_id = ?", itemID, orderID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Resource: "order item", ID: itemID}
		}
		return s.recomputeTotals(tx, order, nil)
	})
	if err != nil {
		return err
	}

	s.publish(branchID, EventOrderUpdated, map[string]any{"order_id": orderID, "removed_item_id": itemID})
	return nil
}

// ApplyDiscount sets the order's flat discount. The discount is a mutation
// like any other and is gated by the same lock check.
func (s *OrderService) ApplyDiscount(ctx context.Context, orderID uuid.UUID, amount float64, actor uuid.UUID) (*models.Order, error) {
	if amount < 0 {
		return nil, validationf("discount must not be negative")
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = loadOpenOrder(tx, orderID)
		if err != nil {
			return err
		}
		if ceiling := utils.Round3(order.Subtotal + order.TaxAmount); amount > ceiling {
			return businessRulef("discount %.3f exceeds subtotal plus tax %.3f", amount, ceiling)
		}
		if err := s.recomputeTotals(tx, order, &amount); err != nil {
			return err
		}
		return tx.First(order, "id = ?", orderID).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(order.BranchID, EventOrderUpdated, order)
	return order, nil
}

// SetItemPrepStatus flips a line between pending and ready for the kitchen
// display. Preparation state is not a financial mutation, so a locked order
// still accepts it; a paid or closed one does not.
func (s *OrderService) SetItemPrepStatus(ctx context.Context, orderID, itemID uuid.UUID, prepStatus string) (*models.OrderItem, error) {
	if prepStatus != models.PrepStatusPending && prepStatus != models.PrepStatusReady {
		return nil, validationf("unknown preparation status %q", prepStatus)
	}

	var item models.OrderItem
	var branchID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}
		if order.Status == models.OrderStatusPaid || order.Status == models.OrderStatusClosed {
			return &OrderClosedError{OrderID: order.ID, Status: order.Status}
		}
		branchID = order.BranchID

		if err := tx.First(&item, "id = ? AND order_id = ?", itemID, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order item", ID: itemID}
			}
			return err
		}
		item.PrepStatus = prepStatus
		return tx.Model(&item).Update("prep_status", prepStatus).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(branchID, EventItemPrepChanged, map[string]any{"order_id": orderID, "item": item})
	return &item, nil
}
