package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jwkim/storefront-backend/config"
	"github.com/jwkim/storefront-backend/internal/app/controller"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/internal/app/service"
	"github.com/jwkim/storefront-backend/internal/db"
	"github.com/jwkim/storefront-backend/internal/middleware"
	"github.com/jwkim/storefront-backend/internal/router"
	"github.com/jwkim/storefront-backend/internal/scheduler"
	"github.com/jwkim/storefront-backend/internal/storage"
	"github.com/jwkim/storefront-backend/internal/websocket"
	"github.com/jwkim/storefront-backend/pkg/logger"
	"github.com/jwkim/storefront-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Storefront Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is optional; token revocation degrades gracefully without it.
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, token revocation disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer redis.Close()
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())

	// WebSocket hub for the admin order feed
	hub := websocket.NewHub()
	go hub.Run()

	// Services
	cartService := service.NewCartService(cartRepo, productRepo)
	authService := service.NewAuthService(
		userRepo,
		cartService,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	userService := service.NewUserService(userRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	productService := service.NewProductService(productRepo, categoryRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, productRepo, db.GetDB(), hub)

	if err := authService.EnsureAdminUser(cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Error("Failed to provision admin user", err)
	}

	// Storage
	s3 := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Controllers
	authController := controller.NewAuthController(authService, cfg.Guest.CookieName)
	userController := controller.NewUserController(userService)
	categoryController := controller.NewCategoryController(categoryService)
	productController := controller.NewProductController(productService, s3)
	cartController := controller.NewCartController(cartService)
	orderController := controller.NewOrderController(orderService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	identityMiddleware := middleware.NewIdentityMiddleware(&cfg.Guest)

	// Background sweep of abandoned guest carts
	sweeper := scheduler.NewCartSweeper(cartRepo, cfg.Guest.CartRetention)
	if err := sweeper.Start(); err != nil {
		logger.Error("Failed to start guest cart sweeper", err)
	}
	defer sweeper.Stop()

	r := router.NewRouter(
		authController,
		userController,
		categoryController,
		productController,
		cartController,
		orderController,
		authMiddleware,
		identityMiddleware,
		hub,
		cfg,
	)
	engine := r.Setup()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped")
}
