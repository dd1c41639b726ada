//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/astrowise/astrowise-api/internal/bootstrap"
	"github.com/astrowise/astrowise-api/internal/domain/astro"
	"github.com/astrowise/astrowise-api/internal/domain/billing"
	"github.com/astrowise/astrowise-api/internal/domain/fortune"
	"github.com/astrowise/astrowise-api/internal/domain/member"
	"github.com/astrowise/astrowise-api/internal/infra/config"
	"github.com/astrowise/astrowise-api/internal/infra/llm/chatgpt"
	httpiface "github.com/astrowise/astrowise-api/internal/interface/http"
	"github.com/astrowise/astrowise-api/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAstroConfig,
		provideFortuneConfig,
		provideBillingConfig,
		provideChatGPTClient,
		providePostgresPool,
		provideChartCache,
		provideMemberRepository,
		provideUsageRecorder,
		provideKnowledgeSource,
		providePaymentGateway,
		astro.NewService,
		member.NewService,
		fortune.NewService,
		billing.NewService,
		wire.Bind(new(fortune.ChatClient), new(*chatgpt.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
