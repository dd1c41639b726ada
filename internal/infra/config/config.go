package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	LLM     LLMConfig     `yaml:"llm"`
	Fortune FortuneConfig `yaml:"fortune"`
	Astro   AstroConfig   `yaml:"astro"`
	Billing BillingConfig `yaml:"billing"`
	Storage StorageConfig `yaml:"storage"`
	CoreKB  CoreKBConfig  `yaml:"coreKb"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// FortuneConfig controls the fortune answering domain.
type FortuneConfig struct {
	SystemPrompt       string `yaml:"systemPrompt"`
	ContextTokenBudget int    `yaml:"contextTokenBudget"`
	WarnBelow          int    `yaml:"warnBelow"`
}

// AstroConfig controls the natal chart calculator.
type AstroConfig struct {
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

// BillingConfig configures packages, checkout, and the payment provider.
type BillingConfig struct {
	StripeKey       string           `yaml:"stripeKey"`
	WebhookSecret   string           `yaml:"webhookSecret"`
	SuccessURL      string           `yaml:"successUrl"`
	CancelURL       string           `yaml:"cancelUrl"`
	ValidFor        time.Duration    `yaml:"validFor"`
	FallbackPackage string           `yaml:"fallbackPackage"`
	Packages        []PackageConfig  `yaml:"packages"`
	AmountToPackage map[int64]string `yaml:"amountToPackage"`
}

// PackageConfig is one purchasable tier.
type PackageConfig struct {
	Name        string `yaml:"name"`
	Label       string `yaml:"label"`
	PriceID     string `yaml:"priceId"`
	Quota       int    `yaml:"quota"`
	PaymentLink string `yaml:"paymentLink"`
}

// StorageConfig contains Postgres and Valkey connection settings.
type StorageConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for cache storage.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// CoreKBConfig locates the astrology knowledge core.
type CoreKBConfig struct {
	Path   string            `yaml:"path"`
	Object ObjectStoreConfig `yaml:"object"`
}

// ObjectStoreConfig points at an S3-compatible bucket.
type ObjectStoreConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSsl"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("FORTUNE_SYSTEM_PROMPT"); v != "" {
		cfg.Fortune.SystemPrompt = v
	}
	if v := os.Getenv("FORTUNE_CONTEXT_TOKEN_BUDGET"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Fortune.ContextTokenBudget = parsed
		}
	}
	if v := os.Getenv("ASTRO_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Astro.CacheTTL = parsed
		}
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Billing.StripeKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Billing.WebhookSecret = v
	}
	if v := os.Getenv("BILLING_SUCCESS_URL"); v != "" {
		cfg.Billing.SuccessURL = v
	}
	if v := os.Getenv("BILLING_CANCEL_URL"); v != "" {
		cfg.Billing.CancelURL = v
	}
	if v := os.Getenv("BILLING_VALID_FOR"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Billing.ValidFor = parsed
		}
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Storage.Valkey.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Storage.Valkey.Addr = v
	}
	if v := os.Getenv("COREKB_PATH"); v != "" {
		cfg.CoreKB.Path = v
	}
	if v := os.Getenv("COREKB_BUCKET"); v != "" {
		cfg.CoreKB.Object.Enabled = true
		cfg.CoreKB.Object.Bucket = v
	}
	if v := os.Getenv("COREKB_OBJECT_KEY"); v != "" {
		cfg.CoreKB.Object.Key = v
	}
	if v := os.Getenv("COREKB_ENDPOINT"); v != "" {
		cfg.CoreKB.Object.Endpoint = v
	}
	if v := os.Getenv("COREKB_ACCESS_KEY"); v != "" {
		cfg.CoreKB.Object.AccessKey = v
	}
	if v := os.Getenv("COREKB_SECRET_KEY"); v != "" {
		cfg.CoreKB.Object.SecretKey = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
		},
		Fortune: FortuneConfig{
			SystemPrompt:       "You are an experienced Thai astrologer. Use the provided reference material and the querent's natal chart to answer their question honestly and kindly.",
			ContextTokenBudget: 6000,
			WarnBelow:          3,
		},
		Astro: AstroConfig{
			CacheTTL: 24 * time.Hour,
		},
		Billing: BillingConfig{
			SuccessURL:      "https://astrowise.app/payment/success",
			CancelURL:       "https://astrowise.app/payment/cancel",
			ValidFor:        30 * 24 * time.Hour,
			FallbackPackage: "lite",
			Packages: []PackageConfig{
				{Name: "lite", Label: "Lite", Quota: 5},
				{Name: "standard", Label: "Standard", Quota: 10},
				{Name: "premium", Label: "Premium", Quota: 30},
			},
			AmountToPackage: map[int64]string{
				5900:  "lite",
				9900:  "standard",
				19900: "premium",
			},
		},
		Storage: StorageConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
				MinConns: 0,
			},
		},
		CoreKB: CoreKBConfig{
			Path: "data/core_knowledge.txt",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.HTTP,
		validation.Field(&c.HTTP.Address, validation.Required),
		validation.Field(&c.HTTP.ReadTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.HTTP.WriteTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if c.HTTP.RateLimit.Enabled {
		if err := validation.ValidateStruct(&c.HTTP.RateLimit,
			validation.Field(&c.HTTP.RateLimit.RequestsPerMinute, validation.Required, validation.Min(1)),
			validation.Field(&c.HTTP.RateLimit.Burst, validation.Required, validation.Min(1)),
		); err != nil {
			return fmt.Errorf("http.rateLimit: %w", err)
		}
	}
	if err := validation.ValidateStruct(&c.LLM,
		validation.Field(&c.LLM.Model, validation.Required),
	); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := validation.ValidateStruct(&c.Fortune,
		validation.Field(&c.Fortune.SystemPrompt, validation.Required),
		validation.Field(&c.Fortune.ContextTokenBudget, validation.Required, validation.Min(1)),
		validation.Field(&c.Fortune.WarnBelow, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("fortune: %w", err)
	}
	if c.Astro.CacheTTL < 0 {
		return fmt.Errorf("astro: cacheTtl cannot be negative")
	}
	if err := validation.ValidateStruct(&c.Billing,
		validation.Field(&c.Billing.ValidFor, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.Billing.FallbackPackage, validation.Required),
		validation.Field(&c.Billing.Packages, validation.Required),
	); err != nil {
		return fmt.Errorf("billing: %w", err)
	}
	names := make(map[string]bool, len(c.Billing.Packages))
	for _, p := range c.Billing.Packages {
		if err := validation.ValidateStruct(&p,
			validation.Field(&p.Name, validation.Required),
			validation.Field(&p.Quota, validation.Required, validation.Min(1)),
		); err != nil {
			return fmt.Errorf("billing.packages[%s]: %w", p.Name, err)
		}
		names[p.Name] = true
	}
	if !names[c.Billing.FallbackPackage] {
		return fmt.Errorf("billing: fallbackPackage %q is not a configured package", c.Billing.FallbackPackage)
	}
	if c.Storage.Valkey.Enabled && strings.TrimSpace(c.Storage.Valkey.Addr) == "" {
		return fmt.Errorf("storage.valkey: addr cannot be empty when enabled")
	}
	if c.CoreKB.Object.Enabled {
		if err := validation.ValidateStruct(&c.CoreKB.Object,
			validation.Field(&c.CoreKB.Object.Endpoint, validation.Required),
			validation.Field(&c.CoreKB.Object.Bucket, validation.Required),
			validation.Field(&c.CoreKB.Object.Key, validation.Required),
		); err != nil {
			return fmt.Errorf("coreKb.object: %w", err)
		}
	} else if strings.TrimSpace(c.CoreKB.Path) == "" {
		return fmt.Errorf("coreKb: path cannot be empty")
	}
	return nil
}
