package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astrowise/astrowise-api/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
		corsMiddleware(nil),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
	)

	api := router.Group("/api/v1")
	{
		api.GET("/health", handler.Health)

		api.POST("/charts", handler.CalcChart)
		api.GET("/weekday", handler.Weekday)
		api.POST("/weekday", handler.Weekday)

		api.POST("/members", handler.RegisterMember)
		api.GET("/members/check", handler.CheckMember)

		api.POST("/fortunes", handler.AskFortune)

		api.GET("/packages", handler.PaymentLinks)
		api.POST("/checkout-sessions", handler.CreateCheckout)
		api.POST("/stripe/webhook", handler.StripeWebhook)
		api.GET("/payments/:paymentIntentID", handler.PaymentStatus)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
