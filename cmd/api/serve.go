package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repairshop/internal/auth"
	"repairshop/internal/catalog"
	"repairshop/internal/config"
	"repairshop/internal/database"
	"repairshop/internal/handler"
	"repairshop/internal/notify"
	"repairshop/internal/payment"
	"repairshop/internal/repository"
	"repairshop/internal/router"
	"repairshop/internal/service"
	"repairshop/internal/telemetry"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func serve(migrate bool) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, cfg.OTEL.ServiceName)
	logger.Info().Msg("starting repairshop API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTEL.Endpoint, cfg.OTEL.ServiceName, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracer(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sender, closeSender := newSender(cfg.AMQP, logger)
	defer closeSender()
	notifier := notify.New(sender, logger)

	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, logger)

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	bookingRepo := repository.NewBookingRepository(pool, logger)
	storeRepo := repository.NewStoreRepository(pool, logger)

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	availabilityService := service.NewAvailabilityService(cat, bookingRepo, cfg.Booking.SlotCapacity, logger)
	bookingService := service.NewBookingService(cat, bookingRepo, notifier, cfg.Booking.SlotCapacity, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, cat, gateway, service.ShopSettings{
		Currency:              cfg.Shop.Currency,
		ShippingFlatRate:      cfg.Shop.ShippingFlatRate,
		ShippingFreeThreshold: cfg.Shop.ShippingFreeThreshold,
		SuccessURL:            cfg.Shop.SuccessURL,
		CancelURL:             cfg.Shop.CancelURL,
		RefundTimeout:         cfg.Stripe.RefundTimeout,
	}, logger)
	paymentService := service.NewPaymentService(orderRepo, gateway, notifier, logger)
	storeService := service.NewStoreService(cat, storeRepo, cfg.Stripe.Configured(), logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Product:      handler.NewProductHandler(productService, logger),
		Availability: handler.NewAvailabilityHandler(availabilityService, logger),
		Booking:      handler.NewBookingHandler(bookingService, logger),
		Order:        handler.NewOrderHandler(orderService, logger),
		Webhook:      handler.NewWebhookHandler(paymentService, logger),
		Store:        handler.NewStoreHandler(storeService, logger),
	}, auth.NewTokens(cfg.Auth.JWTSecret), logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      otelhttp.NewHandler(mux, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// loadCatalog reads the location catalog from S3 when enabled, falling back
// to the local file.
func loadCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*catalog.Catalog, error) {
	fileLoader := catalog.NewFileLoader(logger)

	var s3Loader catalog.Loader
	if cfg.S3.Enabled {
		l, err := catalog.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for the location catalog (S3 disabled)")
	}

	loader := catalog.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Key, cfg.S3.Enabled, logger)
	cat, err := loader.Load(ctx, cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load location catalog: %w", err)
	}

	logger.Info().Int("locations", len(cat.Locations())).Msg("location catalog loaded")
	return cat, nil
}

// newSender publishes notifications to RabbitMQ when configured, otherwise
// they are only logged.
func newSender(cfg config.AMQPConfig, logger zerolog.Logger) (notify.Sender, func()) {
	if cfg.URL == "" {
		logger.Info().Msg("AMQP not configured, notifications will be logged")
		return notify.NewLogSender(logger), func() {}
	}

	s, err := notify.NewAMQPSender(cfg.URL, cfg.Exchange)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to connect to AMQP broker, notifications will be logged")
		return notify.NewLogSender(logger), func() {}
	}

	return s, func() {
		if err := s.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close AMQP connection")
		}
	}
}
