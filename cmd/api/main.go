package main

import (
	"context"
	"log"
	"time"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/config"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/handlers"
	"github.com/01moynul/storefront-golang/internal/realtime"
	"github.com/01moynul/storefront-golang/internal/routes"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. --- Load Configuration (.env + environment) ---
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 1. --- Database Connection ---
	db, err := database.OpenDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to primary database: %v", err)
	}
	defer db.Close()

	// 2. --- Schema ---
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// --- Application Setup ---
	feed := realtime.NewHub(cfg.CORSOrigins)
	app := &handlers.Handlers{
		DB:     db,
		Tokens: auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL),
		Events: feed,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app, routes.Options{
		CORSOrigins: cfg.CORSOrigins,
		Feed:        feed.ServeWS,
	})

	// --- Start Server ---
	log.Printf("Starting storefront API server on port %s...", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
