package http

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/astrowise/astrowise-api/internal/domain/astro"
	"github.com/astrowise/astrowise-api/internal/domain/billing"
	"github.com/astrowise/astrowise-api/internal/domain/calendar"
	"github.com/astrowise/astrowise-api/internal/domain/fortune"
	"github.com/astrowise/astrowise-api/internal/domain/member"
	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Handler wires the HTTP transport to domain services.
type Handler struct {
	chartSvc   astro.Service
	memberSvc  member.Service
	fortuneSvc fortune.Service
	billingSvc billing.Service
	logger     *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chartSvc astro.Service, memberSvc member.Service, fortuneSvc fortune.Service, billingSvc billing.Service, logger *slog.Logger) *Handler {
	return &Handler{
		chartSvc:   chartSvc,
		memberSvc:  memberSvc,
		fortuneSvc: fortuneSvc,
		billingSvc: billingSvc,
		logger:     logger.With("component", "http.handler"),
	}
}

// CalcChart computes a natal chart. Failures keep the status envelope of
// the chart pipeline rather than the shared error shape, so chart clients
// always see {"status": ..., "message": ...}.
func (h *Handler) CalcChart(c *gin.Context) {
	var birth astro.BirthDescriptor
	if err := c.ShouldBindJSON(&birth); err != nil {
		c.JSON(http.StatusBadRequest, astro.ChartResult{Status: "error", Message: "invalid request body"})
		return
	}

	result := h.chartSvc.CalcChart(c.Request.Context(), birth)
	if result.Status == "error" {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

type weekdayRequest struct {
	Date string `json:"date" form:"date"`
}

// Weekday resolves a Thai or Gregorian date string to its weekday. The
// same handler serves GET (query) and POST (JSON body).
func (h *Handler) Weekday(c *gin.Context) {
	var req weekdayRequest
	if c.Request.Method == http.MethodGet {
		req.Date = c.Query("date")
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	result, err := calendar.Weekday(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": apperrors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterMember issues fresh trial credentials.
func (h *Handler) RegisterMember(c *gin.Context) {
	creds, err := h.memberSvc.Register(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "register_failed", apperrors.Message(err), err))
		return
	}
	c.JSON(http.StatusCreated, creds)
}

type memberCheckRequest struct {
	UserID string `form:"user_id" json:"user_id"`
	Token  string `form:"token" json:"token"`
}

// CheckMember reports the quota state for a credential pair.
func (h *Handler) CheckMember(c *gin.Context) {
	req := memberCheckRequest{UserID: c.Query("user_id"), Token: c.Query("token")}
	if req.UserID == "" || req.Token == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "user_id and token are required", nil))
		return
	}

	m, err := h.memberSvc.Verify(c.Request.Context(), req.UserID, req.Token)
	if err != nil {
		// Invalid credentials come back with the purchase links so the
		// client can send the user straight to checkout.
		if apperrors.IsCode(err, apperrors.CodeInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"valid":         false,
				"message":       apperrors.Message(err),
				"payment_links": h.billingSvc.PaymentLinks(),
			})
			return
		}
		abortWithError(c, memberError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"user_id":   m.UserID,
		"quota":     m.Quota,
		"used":      m.UsedCount,
		"remaining": m.Quota - m.UsedCount,
		"package":   m.Package,
		"expiry":    m.Expiry,
	})
}

// AskFortune answers a metered fortune question.
func (h *Handler) AskFortune(c *gin.Context) {
	var req fortune.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.fortuneSvc.Ask(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fortuneError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

type checkoutRequest struct {
	UserID  string `json:"user_id"`
	Token   string `json:"token"`
	Package string `json:"package"`
}

// CreateCheckout opens a payment session for an existing member.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	result, err := h.billingSvc.CreateCheckout(c.Request.Context(), req.UserID, req.Token, req.Package)
	if err != nil {
		status := http.StatusInternalServerError
		code := "checkout_failed"
		switch {
		case apperrors.IsCode(err, apperrors.CodeInvalidInput):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, apperrors.CodeInvalidCredentials):
			status = http.StatusUnauthorized
			code = apperrors.CodeInvalidCredentials
		case apperrors.IsCode(err, apperrors.CodePaymentError):
			status = http.StatusBadGateway
			code = apperrors.CodePaymentError
		}
		abortWithError(c, NewHTTPError(status, code, apperrors.Message(err), err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// StripeWebhook ingests payment provider events. Signature failures are
// rejected; events we do not care about are acknowledged and dropped.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "unreadable payload", err))
		return
	}

	result, err := h.billingSvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodePaymentError, apperrors.Message(err), err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// PaymentStatus is the poll endpoint for one payment intent.
func (h *Handler) PaymentStatus(c *gin.Context) {
	result, err := h.billingSvc.PaymentStatus(c.Request.Context(), c.Param("paymentIntentID"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, apperrors.CodeStoreError, apperrors.Message(err), err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// PaymentLinks lists the static purchase links per package.
func (h *Handler) PaymentLinks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"links": h.billingSvc.PaymentLinks()})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "astrowise-api",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func memberError(err error) *HTTPError {
	switch {
	case apperrors.IsCode(err, apperrors.CodeInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, apperrors.CodeInvalidCredentials, apperrors.Message(err), err)
	case apperrors.IsCode(err, apperrors.CodeNotFound):
		return NewHTTPError(http.StatusNotFound, apperrors.CodeNotFound, apperrors.Message(err), err)
	default:
		return NewHTTPError(http.StatusInternalServerError, apperrors.CodeStoreError, apperrors.Message(err), err)
	}
}

func fortuneError(err error) *HTTPError {
	status := http.StatusInternalServerError
	code := "fortune_failed"
	switch {
	case apperrors.IsCode(err, apperrors.CodeInvalidInput), apperrors.IsCode(err, apperrors.CodeMissingFields):
		status = http.StatusBadRequest
		code = "invalid_request"
	case apperrors.IsCode(err, apperrors.CodeInvalidCredentials):
		status = http.StatusUnauthorized
		code = apperrors.CodeInvalidCredentials
	case apperrors.IsCode(err, apperrors.CodeNoPackage):
		status = http.StatusPaymentRequired
		code = apperrors.CodeNoPackage
	case apperrors.IsCode(err, apperrors.CodeExpired):
		status = http.StatusPaymentRequired
		code = apperrors.CodeExpired
	case apperrors.IsCode(err, apperrors.CodeNoQuota):
		status = http.StatusPaymentRequired
		code = apperrors.CodeNoQuota
	case apperrors.IsCode(err, apperrors.CodeLLMError):
		status = http.StatusBadGateway
		code = apperrors.CodeLLMError
	}
	return NewHTTPError(status, code, apperrors.Message(err), err)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
