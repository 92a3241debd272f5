package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"venue-booking/config"
	"venue-booking/handlers"
	"venue-booking/internal/securestore"
	"venue-booking/internal/services/backend"
	"venue-booking/monitoring"
	"venue-booking/security"
	"venue-booking/services"
	"venue-booking/utils"
)

func Start() error {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Initialize the encrypted session store
	store, err := securestore.Open(cfg.SecureStorePath, cfg.SecureStorePassphrase)
	if err != nil {
		return err
	}

	// Initialize the backend client
	backendClient := backend.NewClient(&backend.ClientConfig{
		FunctionsBaseURL: cfg.FunctionsBaseURL,
		DataBaseURL:      cfg.DataBaseURL,
		AuthBaseURL:      cfg.AuthBaseURL,
		APIKey:           cfg.BackendAPIKey,
		CheckoutTimeout:  cfg.CheckoutTimeout,
		DataTimeout:      cfg.DataTimeout,
		Breaker: utils.BreakerSettings{
			MaxRequests:  uint32(cfg.DataBreakerMaxRequests),
			Interval:     cfg.DataBreakerInterval,
			Timeout:      cfg.DataBreakerTimeout,
			FailureRatio: cfg.DataBreakerFailureRatio,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	costService := services.NewCostService()
	sessionService := services.NewSessionService(cfg.OrderStaleAfter)
	authService := services.NewAuthService(backendClient, store)
	catalogService := services.NewCatalogService(backendClient, authService, redisClient, cfg.CatalogCacheTTL)
	checkoutService := services.NewCheckoutService(backendClient, sessionService, costService, authService, catalogService)
	confirmService := services.NewConfirmService(backendClient, services.ConfirmConfig{
		InitialDelay:  cfg.ConfirmInitialDelay,
		BackoffFactor: cfg.ConfirmBackoffFactor,
		MaxDelay:      cfg.ConfirmMaxDelay,
		MaxWait:       cfg.ConfirmMaxWait,
	})
	chatService := services.NewChatService(pn, backendClient, authService, cfg.ChatChannelType)
	defer chatService.Disconnect()

	go chatService.Listen(ctx, func(channel string, msg services.ChatMessage) {
		slog.Info("chat message received", "channel", channel, "sender", msg.Sender)
	})

	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient)
	}

	// Initialize handlers
	purchaseHandler := handlers.NewPurchaseHandler(checkoutService, confirmService, catalogService, sessionService)
	bookingHandler := handlers.NewBookingHandler(catalogService, checkoutService, costService)
	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	chatHandler := handlers.NewChatHandler(chatService)

	rateLimiter := security.NewRateLimiter(redisClient)
	checkoutLimit := rateLimiter.CheckoutRateLimit()
	verifyLimit := rateLimiter.VerificationRateLimit()

	e := echo.New()

	// Auth endpoints
	e.POST("/api/v1/auth/verification", authHandler.StartVerification, verifyLimit)
	e.POST("/api/v1/auth/sessions", authHandler.VerifyCode, verifyLimit)
	e.POST("/api/v1/auth/profile", authHandler.CompleteProfile)
	e.GET("/api/v1/auth/profile", authHandler.GetProfile)
	e.DELETE("/api/v1/auth/sessions", authHandler.SignOut)

	// Catalog endpoints
	e.GET("/api/v1/catalog/locations", catalogHandler.ListLocations)
	e.GET("/api/v1/catalog/venues", catalogHandler.ListVenues)
	e.GET("/api/v1/catalog/events", catalogHandler.ListEvents)
	e.GET("/api/v1/catalog/event", catalogHandler.GetEvent)
	e.GET("/api/v1/catalog/listings", catalogHandler.ListListings)
	e.GET("/api/v1/catalog/custom-listings", catalogHandler.ListCustomListings)
	e.GET("/api/v1/catalog/search", catalogHandler.Search)

	// Cart and checkout endpoints
	e.POST("/api/v1/cart/items", purchaseHandler.AddToCart, checkoutLimit)
	e.GET("/api/v1/cart", purchaseHandler.GetCart)
	e.POST("/api/v1/cart/empty", purchaseHandler.EmptyCart, checkoutLimit)
	e.DELETE("/api/v1/cart", purchaseHandler.AbandonCart)
	e.GET("/api/v1/cart/cost", purchaseHandler.GetCost)
	e.POST("/api/v1/checkout/payment", purchaseHandler.PreparePayment, checkoutLimit)
	e.POST("/api/v1/checkout/confirm", purchaseHandler.ConfirmOrder)

	// Booking endpoints
	e.GET("/api/v1/bookings", bookingHandler.ListBookings)
	e.GET("/api/v1/bookings/detail", bookingHandler.GetBooking)
	e.POST("/api/v1/bookings/refund", bookingHandler.RefundBooking, checkoutLimit)

	// Chat endpoints
	e.POST("/api/v1/chat/support", chatHandler.OpenSupportChat)
	e.POST("/api/v1/chat/messages", chatHandler.SendMessage)

	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"redis":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
