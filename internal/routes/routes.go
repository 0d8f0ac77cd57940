package routes

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/example/oryxpos/internal/config"
	"github.com/example/oryxpos/internal/events"
	"github.com/example/oryxpos/internal/handlers"
	"github.com/example/oryxpos/internal/middleware"
	"github.com/example/oryxpos/internal/models"
	"github.com/example/oryxpos/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, hub *events.Hub) {
	orderService := services.NewOrderService(db, hub, cfg.DefaultTaxRate)
	settlementService := services.NewSettlementService(db, hub)
	tableService := services.NewTableService(db, hub)
	drawerService := services.NewCashDrawerService(db, cfg.DrawerReviewThreshold)

	authHandler := handlers.NewAuthHandler(db, cfg)
	branchHandler := handlers.NewBranchHandler(db)
	menuHandler := handlers.NewMenuHandler(db)
	tableHandler := handlers.NewTableHandler(db, tableService)
	orderHandler := handlers.NewOrderHandler(db, orderService)
	paymentHandler := handlers.NewPaymentHandler(settlementService)
	reservationHandler := handlers.NewReservationHandler(db)
	drawerHandler := handlers.NewCashDrawerHandler(db, drawerService)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Terminal fan-out stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/terminals/:branchId", websocket.New(hub.HandleTerminal))

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Everything below needs a signed-in staff member
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	manager := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	cashier := middleware.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleCashier)

	// Branches
	branches := protected.Group("/branches")
	branches.Get("/", branchHandler.ListBranches)
	branches.Get("/:id", branchHandler.GetBranch)
	branches.Post("/", manager, branchHandler.CreateBranch)
	branches.Put("/:id", manager, branchHandler.UpdateBranch)
	branches.Delete("/:id", manager, branchHandler.DeactivateBranch)

	// Catalog
	categories := protected.Group("/categories")
	categories.Get("/", menuHandler.ListCategories)
	categories.Post("/", manager, menuHandler.CreateCategory)
	categories.Put("/:id", manager, menuHandler.UpdateCategory)
	categories.Delete("/:id", manager, menuHandler.DeleteCategory)

	menuItems := protected.Group("/menu-items")
	menuItems.Get("/", menuHandler.ListMenuItems)
	menuItems.Post("/", manager, menuHandler.CreateMenuItem)
	menuItems.Put("/:id", manager, menuHandler.UpdateMenuItem)
	menuItems.Delete("/:id", manager, menuHandler.DeleteMenuItem)

	// Floor plan
	tables := protected.Group("/tables")
	tables.Get("/", tableHandler.ListTables)
	tables.Get("/:id", tableHandler.GetTable)
	tables.Post("/", manager, tableHandler.CreateTable)
	tables.Put("/:id", manager, tableHandler.UpdateTable)
	tables.Delete("/:id", manager, tableHandler.DeleteTable)
	tables.Post("/merge", tableHandler.MergeTables)
	tables.Post("/:id/split", tableHandler.SplitTables)

	// Orders
	orders := protected.Group("/orders")
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/", orderHandler.ListOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Get("/:id/audit-log", orderHandler.GetOrderAuditLog)
	orders.Patch("/:id/status", orderHandler.UpdateStatus)
	orders.Post("/:id/items", orderHandler.AddItem)
	orders.Put("/:id/items/:itemId", orderHandler.UpdateItemQuantity)
	orders.Delete("/:id/items/:itemId", orderHandler.RemoveItem)
	orders.Patch("/:id/items/:itemId/prep", orderHandler.SetItemPrepStatus)
	orders.Post("/:id/discount", manager, orderHandler.ApplyDiscount)

	// Settlement
	orders.Post("/:id/payments", cashier, paymentHandler.FinalizePayment)
	orders.Post("/:id/payments/split", cashier, paymentHandler.ProcessSplitPayment)
	protected.Post("/payments/:id/refund", manager, paymentHandler.ProcessRefund)

	// Reservations
	reservations := protected.Group("/reservations")
	reservations.Get("/", reservationHandler.ListReservations)
	reservations.Post("/", reservationHandler.CreateReservation)
	reservations.Patch("/:id/status", reservationHandler.UpdateReservationStatus)

	// Cash drawer
	drawer := protected.Group("/cash-drawer")
	drawer.Post("/counts", cashier, drawerHandler.RecordCount)
	drawer.Get("/counts", manager, drawerHandler.ListCounts)
}
