package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/oryxpos/internal/database"
	"github.com/example/oryxpos/internal/models"
)

// testDB opens the database named by TEST_DATABASE_URL and migrates the
// schema. Tests that need Postgres row locking skip when the variable is
// unset.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func dateOnly(t *testing.T, value string) time.Time {
	t.Helper()
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return day
}

func seedBranch(t *testing.T, db *gorm.DB) models.Branch {
	t.Helper()
	branch := models.Branch{Name: "Test Branch " + uuid.NewString()[:8], TaxRate: 0.10, Currency: "OMR", IsActive: true}
	if err := db.Create(&branch).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	return branch
}

func seedStaff(t *testing.T, db *gorm.DB, branchID uuid.UUID) models.Staff {
	t.Helper()
	staff := models.Staff{
		BranchID: branchID,
		Name:     "Cashier",
		Phone:    uuid.NewString(),
		Role:     models.RoleCashier,
	}
	if err := db.Create(&staff).Error; err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	return staff
}

func seedTable(t *testing.T, db *gorm.DB, branchID uuid.UUID, capacity int) models.RestaurantTable {
	t.Helper()
	table := models.RestaurantTable{
		BranchID: branchID,
		Name:     "T-" + uuid.NewString()[:8],
		Capacity: capacity,
		Status:   models.TableStatusAvailable,
	}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("seed table: %v", err)
	}
	return table
}

func seedMenuItem(t *testing.T, db *gorm.DB, branchID uuid.UUID, name string, price float64) models.MenuItem {
	t.Helper()
	item := models.MenuItem{BranchID: branchID, Name: name, Price: price, IsAvailable: true}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed menu item: %v", err)
	}
	return item
}

// openBilledOrder drives a fresh order to BILL_REQUESTED with two menu lines
// totalling 6.600 (6.000 plus 10% tax).
func openBilledOrder(t *testing.T, db *gorm.DB, orders *OrderService) (*models.Order, models.Staff) {
	t.Helper()
	ctx := context.Background()
	branch := seedBranch(t, db)
	staff := seedStaff(t, db, branch.ID)
	table := seedTable(t, db, branch.ID, 4)
	tea := seedMenuItem(t, db, branch.ID, "Karak Tea", 1.500)
	shuwa := seedMenuItem(t, db, branch.ID, "Shuwa Plate", 3.000)

	order, err := orders.CreateOrder(ctx, CreateOrderInput{
		BranchID:  branch.ID,
		TableID:   &table.ID,
		CreatedBy: staff.ID,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := orders.AddItem(ctx, order.ID, AddItemInput{MenuItemID: tea.ID, Quantity: 2, ActorID: staff.ID}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := orders.AddItem(ctx, order.ID, AddItemInput{MenuItemID: shuwa.ID, Quantity: 1, ActorID: staff.ID}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	for _, status := range []string{
		models.OrderStatusSentToKitchen,
		models.OrderStatusServed,
		models.OrderStatusBillRequested,
	} {
		if _, err := orders.UpdateStatus(ctx, order.ID, status, staff.ID); err != nil {
			t.Fatalf("advance to %s: %v", status, err)
		}
	}

	order, err = orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order, staff
}

func TestOrderLifecycleTotalsAndLock(t *testing.T) {
	db := testDB(t)
	orders := NewOrderService(db, nil, 0.10)
	ctx := context.Background()

	order, staff := openBilledOrder(t, db, orders)

	checkAmount(t, "subtotal", order.Subtotal, 6.000)
	checkAmount(t, "tax", order.TaxAmount, 0.600)
	checkAmount(t, "total", order.TotalAmount, 6.600)
	if order.LockedAt == nil {
		t.Fatal("locked_at not set on BILL_REQUESTED")
	}

	// Locked orders refuse item mutations.
	item := seedMenuItem(t, db, order.BranchID, "Halwa", 2.000)
	_, err := orders.AddItem(ctx, order.ID, AddItemInput{MenuItemID: item.ID, Quantity: 1, ActorID: staff.ID})
	var locked *OrderLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected OrderLockedError, got %v", err)
	}

	// Another round reopens the order and clears the lock.
	reopened, err := orders.UpdateStatus(ctx, order.ID, models.OrderStatusSentToKitchen, staff.ID)
	if err != nil {
		t.Fatalf("reopen order: %v", err)
	}
	if reopened.LockedAt != nil {
		t.Fatal("locked_at still set after reopening")
	}
	if _, err := orders.AddItem(ctx, order.ID, AddItemInput{MenuItemID: item.ID, Quantity: 1, ActorID: staff.ID}); err != nil {
		t.Fatalf("add item after reopen: %v", err)
	}

	// Direct transition to PAID is not a status update.
	_, err = orders.UpdateStatus(ctx, order.ID, models.OrderStatusPaid, staff.ID)
	var invalid *InvalidStateTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
}

func TestFinalizePaymentIdempotentReplay(t *testing.T) {
	db := testDB(t)
	orders := NewOrderService(db, nil, 0.10)
	settlement := NewSettlementService(db, nil)
	ctx := context.Background()

	order, staff := openBilledOrder(t, db, orders)
	input := FinalizePaymentInput{
		Amount:         order.TotalAmount,
		Method:         models.PaymentMethodCash,
		IdempotencyKey: uuid.NewString(),
		ActorID:        staff.ID,
	}

	settled, payment, err := settlement.FinalizePayment(ctx, order.ID, input)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if settled.Status != models.OrderStatusPaid || settled.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("order not settled: %s/%s", settled.Status, settled.PaymentStatus)
	}

	// The table came back to the floor.
	var table models.RestaurantTable
	if err := db.First(&table, "id = ?", *order.TableID).Error; err != nil {
		t.Fatalf("reload table: %v", err)
	}
	if table.Status != models.TableStatusAvailable {
		t.Fatalf("table status = %s, want available", table.Status)
	}

	// Replay returns the recorded payment and books nothing new.
	_, replayed, err := settlement.FinalizePayment(ctx, order.ID, input)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed.ID != payment.ID {
		t.Fatalf("replay returned payment %s, want %s", replayed.ID, payment.ID)
	}
	var count int64
	if err := db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 1 {
		t.Fatalf("payment rows = %d, want 1", count)
	}

	// A different key against the settled order is a conflict.
	fresh := input
	fresh.IdempotencyKey = uuid.NewString()
	_, _, err = settlement.FinalizePayment(ctx, order.ID, fresh)
	var already *AlreadySettledError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadySettledError, got %v", err)
	}
}

func TestSplitPaymentAllOrNothing(t *testing.T) {
	db := testDB(t)
	orders := NewOrderService(db, nil, 0.10)
	settlement := NewSettlementService(db, nil)
	ctx := context.Background()

	order, staff := openBilledOrder(t, db, orders)

	short := []SplitLegInput{
		{Amount: 3.000, Method: models.PaymentMethodCash, IdempotencyKey: uuid.NewString()},
		{Amount: 3.000, Method: models.PaymentMethodCard, IdempotencyKey: uuid.NewString(), TransactionRef: "AUTH-1"},
	}
	_, _, err := settlement.ProcessSplitPayment(ctx, order.ID, short, staff.ID)
	var rule *BusinessRuleError
	if !errors.As(err, &rule) {
		t.Fatalf("expected BusinessRuleError for short legs, got %v", err)
	}

	// The failed attempt must leave no partial legs behind.
	var count int64
	if err := db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 0 {
		t.Fatalf("payment rows after failed split = %d, want 0", count)
	}

	legs := []SplitLegInput{
		{Amount: 3.300, Method: models.PaymentMethodCash, IdempotencyKey: uuid.NewString()},
		{Amount: 3.300, Method: models.PaymentMethodCard, IdempotencyKey: uuid.NewString(), TransactionRef: "AUTH-2"},
	}
	settled, payments, err := settlement.ProcessSplitPayment(ctx, order.ID, legs, staff.ID)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if settled.Status != models.OrderStatusPaid {
		t.Fatalf("order status = %s, want PAID", settled.Status)
	}
	if len(payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(payments))
	}

	// Replaying the full key set returns the recorded legs.
	_, replayed, err := settlement.ProcessSplitPayment(ctx, order.ID, legs, staff.ID)
	if err != nil {
		t.Fatalf("split replay: %v", err)
	}
	if len(replayed) != 2 {
		t.Fatalf("replayed legs = %d, want 2", len(replayed))
	}

	// Mixing a recorded key with a fresh one is rejected.
	mixed := []SplitLegInput{
		legs[0],
		{Amount: 3.300, Method: models.PaymentMethodCash, IdempotencyKey: uuid.NewString()},
	}
	_, _, err = settlement.ProcessSplitPayment(ctx, order.ID, mixed, staff.ID)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for mixed keys, got %v", err)
	}
}

func TestProcessRefundBounds(t *testing.T) {
	db := testDB(t)
	orders := NewOrderService(db, nil, 0.10)
	settlement := NewSettlementService(db, nil)
	ctx := context.Background()

	order, staff := openBilledOrder(t, db, orders)
	_, payment, err := settlement.FinalizePayment(ctx, order.ID, FinalizePaymentInput{
		Amount:         order.TotalAmount,
		Method:         models.PaymentMethodCash,
		IdempotencyKey: uuid.NewString(),
		ActorID:        staff.ID,
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if _, _, err := settlement.ProcessRefund(ctx, payment.ID, 2.600, "cold dish", staff.ID); err != nil {
		t.Fatalf("partial refund: %v", err)
	}

	// The remaining refundable amount is now 4.000.
	_, _, err = settlement.ProcessRefund(ctx, payment.ID, 5.000, "too much", staff.ID)
	var rule *BusinessRuleError
	if !errors.As(err, &rule) {
		t.Fatalf("expected BusinessRuleError for excess refund, got %v", err)
	}

	_, refunded, err := settlement.ProcessRefund(ctx, payment.ID, 4.000, "order cancelled", staff.ID)
	if err != nil {
		t.Fatalf("final refund: %v", err)
	}
	if refunded.Status != models.PaymentStatusRefunded {
		t.Fatalf("payment status = %s, want refunded", refunded.Status)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.PaymentStatus != models.PaymentStatusRefunded {
		t.Fatalf("order payment status = %s, want refunded", reloaded.PaymentStatus)
	}
}

func TestFreeOfCostSettlement(t *testing.T) {
	db := testDB(t)
	orders := NewOrderService(db, nil, 0.10)
	settlement := NewSettlementService(db, nil)
	ctx := context.Background()

	order, staff := openBilledOrder(t, db, orders)

	// FOC needs a zero total, so the order must be fully comped first.
	_, _, err := settlement.FinalizePayment(ctx, order.ID, FinalizePaymentInput{
		Method:         models.PaymentMethodFOC,
		IdempotencyKey: uuid.NewString(),
		RecipientName:  "Health Inspector",
		ActorID:        staff.ID,
	})
	var rule *BusinessRuleError
	if !errors.As(err, &rule) {
		t.Fatalf("expected BusinessRuleError on non-zero total, got %v", err)
	}

	if _, err := orders.UpdateStatus(ctx, order.ID, models.OrderStatusSentToKitchen, staff.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := orders.ApplyDiscount(ctx, order.ID, order.TotalAmount, staff.ID); err != nil {
		t.Fatalf("comp order: %v", err)
	}

	settled, payment, err := settlement.FinalizePayment(ctx, order.ID, FinalizePaymentInput{
		Method:         models.PaymentMethodFOC,
		IdempotencyKey: uuid.NewString(),
		RecipientName:  "Health Inspector",
		ActorID:        staff.ID,
	})
	if err != nil {
		t.Fatalf("foc settle: %v", err)
	}
	if settled.Status != models.OrderStatusPaid {
		t.Fatalf("order status = %s, want PAID", settled.Status)
	}
	if payment.Amount != 0 || payment.RecipientName == "" {
		t.Fatalf("foc payment recorded as %+v", payment)
	}
}

func TestMergeAndSplitTables(t *testing.T) {
	db := testDB(t)
	tables := NewTableService(db, nil)
	ctx := context.Background()

	branch := seedBranch(t, db)
	primary := seedTable(t, db, branch.ID, 4)
	second := seedTable(t, db, branch.ID, 2)
	third := seedTable(t, db, branch.ID, 4)

	merged, err := tables.MergeTables(ctx, primary.ID, []uuid.UUID{second.ID, third.ID})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.DisplayCapacity != 10 {
		t.Fatalf("display capacity = %d, want 10", merged.DisplayCapacity)
	}
	if merged.Capacity != 4 {
		t.Fatalf("base capacity changed to %d", merged.Capacity)
	}
	if len(merged.MergedWith) != 2 {
		t.Fatalf("merged_with = %v", merged.MergedWith)
	}

	var folded models.RestaurantTable
	if err := db.First(&folded, "id = ?", second.ID).Error; err != nil {
		t.Fatalf("reload secondary: %v", err)
	}
	if !folded.IsMerged || folded.Status != models.TableStatusOccupied {
		t.Fatalf("secondary not folded: merged=%v status=%s", folded.IsMerged, folded.Status)
	}

	// A folded table cannot join a second group.
	other := seedTable(t, db, branch.ID, 2)
	_, err = tables.MergeTables(ctx, other.ID, []uuid.UUID{second.ID})
	var unavailable *TableNotAvailableForMergeError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected TableNotAvailableForMergeError, got %v", err)
	}

	members, err := tables.SplitTables(ctx, primary.ID)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("split returned %d members, want 3", len(members))
	}
	for _, member := range members {
		if member.IsMerged {
			t.Errorf("table %s still merged after split", member.Name)
		}
		if member.Status != models.TableStatusAvailable {
			t.Errorf("table %s status = %s, want available", member.Name, member.Status)
		}
		if member.DisplayCapacity != member.Capacity {
			t.Errorf("table %s display capacity = %d, want %d", member.Name, member.DisplayCapacity, member.Capacity)
		}
	}
}

func TestRecordCountFlagsLargeVariance(t *testing.T) {
	db := testDB(t)
	drawer := NewCashDrawerService(db, 1.000)
	ctx := context.Background()

	branch := seedBranch(t, db)
	staff := seedStaff(t, db, branch.ID)

	count, err := drawer.RecordCount(ctx, RecordCountInput{
		BranchID:       branch.ID,
		StaffID:        staff.ID,
		BusinessDate:   dateOnly(t, "2026-08-31"),
		ExpectedAmount: 120.500,
		CountedAmount:  119.000,
	})
	if err != nil {
		t.Fatalf("record count: %v", err)
	}
	checkAmount(t, "variance", count.Variance, -1.500)
	if !count.FlaggedForReview {
		t.Fatal("variance beyond threshold not flagged")
	}

	ok, err := drawer.RecordCount(ctx, RecordCountInput{
		BranchID:       branch.ID,
		StaffID:        staff.ID,
		BusinessDate:   dateOnly(t, "2026-08-31"),
		ExpectedAmount: 120.500,
		CountedAmount:  120.250,
	})
	if err != nil {
		t.Fatalf("record count: %v", err)
	}
	if ok.FlaggedForReview {
		t.Fatalf("variance %.3f within threshold was flagged", ok.Variance)
	}
}
