package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/valkey-io/valkey-go"

	"github.com/astrowise/astrowise-api/internal/domain/astro"
	"github.com/astrowise/astrowise-api/internal/domain/billing"
	"github.com/astrowise/astrowise-api/internal/domain/fortune"
	"github.com/astrowise/astrowise-api/internal/domain/member"
	"github.com/astrowise/astrowise-api/internal/infra/chartcache"
	"github.com/astrowise/astrowise-api/internal/infra/config"
	"github.com/astrowise/astrowise-api/internal/infra/corekb"
	"github.com/astrowise/astrowise-api/internal/infra/llm/chatgpt"
	"github.com/astrowise/astrowise-api/internal/infra/memberrepo"
	stripegw "github.com/astrowise/astrowise-api/internal/infra/payments/stripe"
	"github.com/astrowise/astrowise-api/internal/infra/usagelog"
)

func provideAstroConfig(cfg *config.Config) astro.Config {
	return astro.Config{CacheTTL: cfg.Astro.CacheTTL}
}

func provideFortuneConfig(cfg *config.Config) fortune.Config {
	return fortune.Config{
		Model:              cfg.LLM.Model,
		Temperature:        cfg.LLM.Temperature,
		SystemPrompt:       cfg.Fortune.SystemPrompt,
		ContextTokenBudget: cfg.Fortune.ContextTokenBudget,
		WarnBelow:          cfg.Fortune.WarnBelow,
	}
}

func provideBillingConfig(cfg *config.Config) billing.Config {
	packages := make(map[string]billing.Package, len(cfg.Billing.Packages))
	for _, p := range cfg.Billing.Packages {
		packages[p.Name] = billing.Package{
			Name:        p.Name,
			Label:       p.Label,
			PriceID:     p.PriceID,
			Quota:       p.Quota,
			PaymentLink: p.PaymentLink,
		}
	}
	return billing.Config{
		Packages:        packages,
		AmountToPackage: cfg.Billing.AmountToPackage,
		FallbackPackage: cfg.Billing.FallbackPackage,
		SuccessURL:      cfg.Billing.SuccessURL,
		CancelURL:       cfg.Billing.CancelURL,
		ValidFor:        cfg.Billing.ValidFor,
	}
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func providePaymentGateway(cfg *config.Config, logger *slog.Logger) billing.Gateway {
	return stripegw.New(cfg.Billing.StripeKey, cfg.Billing.WebhookSecret, logger)
}

// providePostgresPool returns a ready pool, or nil when Postgres is not
// configured or unreachable so memory fallbacks take over.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.Storage.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory storage")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory storage", "error", err)
		return nil
	}
	if cfg.Storage.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Storage.Postgres.MaxConns
	}
	if cfg.Storage.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Storage.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory storage", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory storage", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres storage enabled")
	return pool
}

func provideMemberRepository(pool *pgxpool.Pool) member.Repository {
	if pool == nil {
		return memberrepo.NewMemoryRepository()
	}
	return memberrepo.NewPostgresRepository(pool)
}

func provideUsageRecorder(pool *pgxpool.Pool) fortune.UsageRecorder {
	if pool == nil {
		return usagelog.NewMemoryRecorder()
	}
	return usagelog.NewPostgresRecorder(pool)
}

func provideChartCache(cfg *config.Config, logger *slog.Logger) astro.Cache {
	if cfg.Storage.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return chartcache.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return chartcache.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		} else {
			logger.Info("valkey chart cache enabled", "addr", cfg.Storage.Valkey.Addr)
			return chartcache.NewValkeyStore(client, "chart")
		}
	}
	return chartcache.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Storage.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Storage.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Storage.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideKnowledgeSource(cfg *config.Config, logger *slog.Logger) (fortune.KnowledgeSource, error) {
	if cfg.CoreKB.Object.Enabled {
		client, err := minio.New(cfg.CoreKB.Object.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.CoreKB.Object.AccessKey, cfg.CoreKB.Object.SecretKey, ""),
			Secure: cfg.CoreKB.Object.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return corekb.NewObjectSource(client, cfg.CoreKB.Object.Bucket, cfg.CoreKB.Object.Key, logger), nil
	}
	return corekb.NewFileSource(cfg.CoreKB.Path, logger), nil
}
