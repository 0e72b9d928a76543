package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DB"`
	Logger   LoggerConfig   `envconfig:"LOG"`
	Auth     AuthConfig     `envconfig:"AUTH"`
	S3       S3Config       `envconfig:"S3"`
	Catalog  CatalogConfig  `envconfig:"CATALOG"`
	Booking  BookingConfig  `envconfig:"BOOKING"`
	Shop     ShopConfig     `envconfig:"SHOP"`
	Stripe   StripeConfig   `envconfig:"STRIPE"`
	AMQP     AMQPConfig     `envconfig:"AMQP"`
	OTEL     OTELConfig     `envconfig:"OTEL"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `split_words:"true" default:"0.0.0.0"`
	Port            int           `split_words:"true" default:"8080"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `split_words:"true" default:"localhost"`
	Port            int    `split_words:"true" default:"5432"`
	User            string `split_words:"true" default:"postgres"`
	Password        string `split_words:"true"`
	Name            string `split_words:"true" default:"repairshop"`
	MaxConnections  int    `split_words:"true" default:"25"`
	MinConnections  int    `split_words:"true" default:"5"`
	MaxConnLifetime int    `split_words:"true" default:"300"` // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `split_words:"true" default:"info"`
	Format string `split_words:"true" default:"json"` // "json" or "console"
}

// AuthConfig holds bearer-token configuration.
type AuthConfig struct {
	JWTSecret string `split_words:"true"`
}

// S3Config holds AWS S3 configuration for the location catalog.
type S3Config struct {
	Enabled bool   `split_words:"true" default:"false"`
	Bucket  string `split_words:"true"`
	Region  string `split_words:"true" default:"eu-central-1"`
	Key     string `split_words:"true" default:"catalog/locations.yaml"`
}

// CatalogConfig locates the local location catalog.
type CatalogConfig struct {
	Path string `split_words:"true" default:"data/locations.yaml"`
}

// BookingConfig holds repair booking policy.
type BookingConfig struct {
	SlotCapacity int `split_words:"true" default:"2"`
}

// ShopConfig holds storefront pricing and redirect settings.
type ShopConfig struct {
	Currency              string `split_words:"true" default:"eur"`
	ShippingFlatRate      int64  `split_words:"true" default:"1990"`
	ShippingFreeThreshold int64  `split_words:"true" default:"20000"`
	SuccessURL            string `split_words:"true" default:"http://localhost:5173/checkout/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL             string `split_words:"true" default:"http://localhost:5173/checkout/cancel"`
}

// StripeConfig holds payment gateway credentials.
type StripeConfig struct {
	SecretKey     string        `split_words:"true"`
	WebhookSecret string        `split_words:"true"`
	RefundTimeout time.Duration `split_words:"true" default:"10s"`
}

// Configured reports whether checkout can reach the gateway. The shop is
// reported as disabled without it.
func (c StripeConfig) Configured() bool {
	return c.SecretKey != "" && c.WebhookSecret != ""
}

// AMQPConfig holds the notification broker settings. Notifications are
// logged instead of published when URL is empty.
type AMQPConfig struct {
	URL      string `split_words:"true"`
	Exchange string `split_words:"true" default:"notifications"`
}

// OTELConfig holds tracing exporter settings. Tracing is disabled when
// Endpoint is empty.
type OTELConfig struct {
	Endpoint    string `split_words:"true"`
	ServiceName string `split_words:"true" default:"repairshop-api"`
}

// Load loads configuration from an optional .env file and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required")
	}

	if c.Stripe.RefundTimeout <= 0 {
		return fmt.Errorf("stripe refund timeout must be positive")
	}

	if c.Booking.SlotCapacity < 1 {
		return fmt.Errorf("booking slot capacity must be at least 1")
	}

	if c.Shop.ShippingFlatRate < 0 || c.Shop.ShippingFreeThreshold < 0 {
		return fmt.Errorf("shipping amounts must not be negative")
	}

	if c.Shop.Currency == "" {
		return fmt.Errorf("shop currency is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
