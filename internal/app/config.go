package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/combo-store/internal/domain/pos"
	"github.com/xenking/combo-store/internal/domain/pricing"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string `usage:"Redis connection URL (STORE_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	APIKeyPepper string `usage:"HMAC pepper for staff API key hashing" flag:"api-key-pepper"`
	Images       ImagesConfig
	Orders       OrdersConfig
	Shipping     ShippingConfig
	Sessions     SessionsConfig
	Receipt      ReceiptConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// ImagesConfig controls product image storage.
type ImagesConfig struct {
	Dir      string `default:"./uploads" usage:"Directory product images are written to"`
	BaseURL  string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com)" flag:"image-base-url"`
	MaxBytes int64  `default:"5242880" usage:"Maximum image upload size"`
}

// OrdersConfig controls order placement.
type OrdersConfig struct {
	ReserveStock bool `default:"true" usage:"Decrement stock when an order is placed" flag:"reserve-stock"`
}

// ShippingConfig selects the shipping policy. Amounts are decimal strings.
type ShippingConfig struct {
	Policy    string `default:"free" usage:"Shipping policy: free, flat or free_above"`
	Fee       string `default:"0" usage:"Shipping fee for flat and free_above"`
	Threshold string `default:"0" usage:"Subtotal at which free_above stops charging"`
}

// SessionsConfig controls Redis-held state lifetimes.
type SessionsConfig struct {
	CartTTL    time.Duration `default:"168h" usage:"Idle lifetime of a shopper cart"`
	POSTTL     time.Duration `default:"24h"  usage:"Idle lifetime of a POS terminal session"`
	CatalogTTL time.Duration `default:"5m"   usage:"Lifetime of the cached catalog listing"`
}

// ReceiptConfig is printed on POS receipts.
type ReceiptConfig struct {
	Title    string   `default:"Combo Store" usage:"Receipt heading"`
	Subtitle string   `default:"" usage:"Line under the heading"`
	Footer   []string `default:"Thank you for shopping with us!" usage:"Lines printed under the totals"`
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// Backend is "redis" (shared across replicas) or "memory" (per process).
	Backend string `default:"redis" usage:"Rate limit counter backend: redis or memory"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/store/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if c.RedisURL == "" {
		return errors.New("redis URL is required: set STORE_REDIS_URL or REDIS_URL")
	}
	if strings.TrimSpace(c.APIKeyPepper) == "" {
		return errors.New("api key pepper is required: set STORE_API_KEY_PEPPER")
	}
	switch c.RateLimit.Backend {
	case "redis", "memory":
	default:
		return errors.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
	}
	if _, err := c.ShippingPolicy(); err != nil {
		return err
	}
	return nil
}

// ShippingPolicy builds the configured pricing.ShippingPolicy.
func (c *Config) ShippingPolicy() (pricing.ShippingPolicy, error) {
	parse := func(name, v string) (decimal.Decimal, error) {
		if v == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "parse shipping %s", name)
		}
		return d, nil
	}
	fee, err := parse("fee", c.Shipping.Fee)
	if err != nil {
		return nil, err
	}
	threshold, err := parse("threshold", c.Shipping.Threshold)
	if err != nil {
		return nil, err
	}
	return pricing.FromConfig(c.Shipping.Policy, fee, threshold)
}

// Letterhead returns the receipt heading and footer.
func (c *Config) Letterhead() pos.Letterhead {
	return pos.Letterhead{
		Title:    c.Receipt.Title,
		Subtitle: c.Receipt.Subtitle,
		Footer:   c.Receipt.Footer,
	}
}
