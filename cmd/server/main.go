package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/oryxpos/internal/config"
	"github.com/example/oryxpos/internal/database"
	"github.com/example/oryxpos/internal/events"
	"github.com/example/oryxpos/internal/middleware"
	"github.com/example/oryxpos/internal/routes"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	hub := events.NewHub()
	go hub.Run()

	app := fiber.New(fiber.Config{
		AppName: "OryxPOS",
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(middleware.Prometheus())

	routes.Register(app, db, cfg, hub)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
