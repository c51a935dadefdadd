package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bike-market/config"
	"bike-market/internal/events"
	"bike-market/internal/handlers"
	"bike-market/internal/services"
	"bike-market/internal/services/gateway"
	"bike-market/internal/store"
	_ "bike-market/migrations"
	"bike-market/monitoring"
	"bike-market/security"
	"bike-market/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	// Load configuration
	cfg := config.LoadConfig()

	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: cfg.DataDir,
	})

	if cfg.TokenSecret == "" {
		if cfg.Environment != "development" {
			return errors.New("TOKEN_SECRET is required")
		}
		secret, err := utils.GenerateCode(32)
		if err != nil {
			return err
		}
		cfg.TokenSecret = secret
		slog.Warn("TOKEN_SECRET not set, using a random secret; credentials will not survive a restart")
	}

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("running without redis: no settlement guard or rate limiting", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Initialize PubNub
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.PubNubPublishKey != "" {
		code, _ := utils.GenerateCode(4)
		notifier = services.NewPubNubNotifier(cfg.PubNubPublishKey, cfg.PubNubSubscribeKey, cfg.PubNubSecretKey, "bike-market-"+code)
	}

	// Initialize payment gateway
	registry := gateway.NewRegistry()
	if cfg.OmiseSecretKey != "" {
		gw, err := gateway.NewFactory().Create(gateway.ProviderOmise, &gateway.OmiseConfig{
			PublicKey:  cfg.OmisePublicKey,
			SecretKey:  cfg.OmiseSecretKey,
			SourceType: cfg.PaymentSourceType,
		})
		if err != nil {
			return err
		}
		registry.Register(gw)
	} else {
		slog.Warn("OMISE_SECRET_KEY not set, payment intents will fail")
	}

	// Initialize settlement event publisher
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitURL != "" {
		p, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.SettlementExchange)
		if err != nil {
			slog.Error("rabbitmq unavailable, settlement events disabled", "error", err)
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	db := store.NewPocketBaseStore(app)
	tokens := services.NewTokenService(cfg.TokenSecret, cfg.TokenTTL)
	roleService := services.NewRoleService(db, tokens)
	listingService := services.NewListingService(db, roleService)
	bookingService := services.NewBookingService(db, roleService, listingService)

	var guard *services.SettlementGuard
	if redisClient != nil {
		guard = services.NewSettlementGuard(redisClient, cfg.SettlementLockTTL)
	}
	settlementService := services.NewSettlementService(db, guard, notifier, publisher)
	paymentService := services.NewPaymentService(db, roleService, registry, settlementService, cfg.PaymentCurrency)
	reconciler := services.NewReconciler(db, publisher)

	// Initialize handlers
	auth := handlers.NewAuthenticator(tokens)
	userHandler := handlers.NewUserHandler(auth, roleService)
	listingHandler := handlers.NewListingHandler(auth, listingService)
	bookingHandler := handlers.NewBookingHandler(auth, bookingService)
	paymentHandler := handlers.NewPaymentHandler(auth, paymentService)
	adminHandler := handlers.NewAdminHandler(auth, roleService, reconciler)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Setup graceful shutdown
	go handleShutdown(cancel)
	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		cancel()
		return e.Next()
	})

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Start background tasks once the database is bootstrapped
		go reconciler.Run(ctx, cfg.ReconcileInterval)
		go monitoring.NewMonitor(db, redisClient).Run(ctx, cfg.MonitorPeriod)
		if cfg.EnableMetrics {
			go monitoring.Serve(ctx, cfg.MetricsPort, redisClient)
		}

		limit := rateLimit(redisClient, cfg.RateLimitPerMinute)
		requireAuth := auth.RequireAuth()

		// User endpoints
		e.Router.PUT("/users/{email}", userHandler.UpsertUser).BindFunc(limit)
		e.Router.GET("/users/{email}/role", userHandler.GetRole).BindFunc(requireAuth)
		e.Router.PUT("/users/seller-request", userHandler.RequestSeller).BindFunc(requireAuth, limit)
		e.Router.PUT("/users/seller/{id}", userHandler.SetRole).BindFunc(requireAuth)
		e.Router.DELETE("/user/{id}", userHandler.DeleteUser).BindFunc(requireAuth)
		e.Router.GET("/users", userHandler.ListUsers).BindFunc(requireAuth)

		// Listing endpoints
		e.Router.POST("/bikes", listingHandler.CreateListing).BindFunc(requireAuth, limit)
		e.Router.GET("/bikes", listingHandler.AvailableByCategory)
		e.Router.GET("/advertised", listingHandler.Advertised)
		e.Router.PUT("/bikes/{id}/advertise", listingHandler.Advertise).BindFunc(requireAuth, limit)
		e.Router.GET("/my-bikes", listingHandler.MyListings).BindFunc(requireAuth)
		e.Router.DELETE("/bikes/{id}", listingHandler.DeleteListing).BindFunc(requireAuth)

		// Booking endpoints
		e.Router.POST("/booking", bookingHandler.CreateBooking).BindFunc(requireAuth, limit)
		e.Router.GET("/bookings", bookingHandler.BookingsByBuyer).BindFunc(requireAuth)
		e.Router.GET("/booking/{id}", bookingHandler.GetBooking).BindFunc(requireAuth)

		// Payment endpoints
		e.Router.POST("/create-payment-intent", paymentHandler.CreatePaymentIntent).BindFunc(requireAuth, limit)
		e.Router.POST("/payments", paymentHandler.SavePayment).BindFunc(requireAuth, limit)
		e.Router.POST("/webhooks/omise", paymentHandler.GatewayWebhook)

		// Admin endpoints
		e.Router.GET("/admin/reconcile", adminHandler.ReconcileReport).BindFunc(requireAuth)
		e.Router.POST("/admin/reconcile", adminHandler.Reconcile).BindFunc(requireAuth)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if redisClient != nil {
				if err := utils.RedisHealthCheck(redisClient); err != nil {
					return e.JSON(503, map[string]string{
						"status": "unhealthy",
						"error":  err.Error(),
					})
				}
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		slog.Info("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// rateLimit returns the Redis-backed limiter, or a pass-through when Redis
// is not connected.
func rateLimit(redisClient *redis.Client, perMinute int) func(e *core.RequestEvent) error {
	if redisClient == nil {
		return func(e *core.RequestEvent) error { return e.Next() }
	}
	return security.NewRateLimiter(redisClient, perMinute).Middleware()
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Shutdown signal received, cleaning up...")
	cancel()
}
