package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/astrowise/astrowise-api/internal/domain/member"
	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// Service exposes payment workflows.
type Service interface {
	// CreateCheckout opens a checkout session for an existing member.
	CreateCheckout(ctx context.Context, userID, token, packageName string) (CheckoutResult, error)
	// HandleWebhook verifies and applies a provider webhook.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
	// PaymentStatus reports paid/pending for a payment intent.
	PaymentStatus(ctx context.Context, paymentIntentID string) (PaymentStatusResult, error)
	// PaymentLinks lists the static purchase links per package.
	PaymentLinks() map[string]string
}

// CheckoutResult is returned to the client that asked for a session.
type CheckoutResult struct {
	CheckoutURL string  `json:"checkout_url"`
	Package     Package `json:"package"`
}

// WebhookResult acknowledges a webhook, carrying credentials when a new
// member was issued by the payment.
type WebhookResult struct {
	Received    bool                `json:"received"`
	Fulfilled   bool                `json:"fulfilled,omitempty"`
	Credentials *member.Credentials `json:"credentials,omitempty"`
}

// PaymentStatusResult is the poll answer for one payment intent.
type PaymentStatusResult struct {
	Status string         `json:"status"` // "paid" or "pending"
	Member *member.Member `json:"member,omitempty"`
}

type service struct {
	cfg     Config
	gateway Gateway
	members member.Service
	logger  *slog.Logger
}

// NewService constructs the billing service.
func NewService(cfg Config, gateway Gateway, members member.Service, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		gateway: gateway,
		members: members,
		logger:  logger.With("component", "billing.service"),
	}
}

func (s *service) CreateCheckout(ctx context.Context, userID, token, packageName string) (CheckoutResult, error) {
	pkg, ok := s.cfg.Packages[packageName]
	if !ok {
		return CheckoutResult{}, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("unknown package %q", packageName), nil)
	}
	if _, err := s.members.Verify(ctx, userID, token); err != nil {
		return CheckoutResult{}, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		PriceID:    pkg.PriceID,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata: map[string]string{
			"user_id":     userID,
			"packageName": pkg.Name,
			"quota":       strconv.Itoa(pkg.Quota),
			"createdAt":   time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return CheckoutResult{}, apperrors.Wrap(apperrors.CodePaymentError, "failed to create checkout session", err)
	}

	s.logger.Info("checkout session created", "userID", userID, "package", pkg.Name, "sessionID", session.ID)
	return CheckoutResult{CheckoutURL: session.URL, Package: pkg}, nil
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return WebhookResult{}, apperrors.Wrap(apperrors.CodePaymentError, "webhook verification failed", err)
	}
	if !event.Completed() {
		return WebhookResult{Received: true}, nil
	}

	pkg := s.resolvePackage(event)
	creds, err := s.members.Fulfill(ctx, member.Fulfillment{
		UserID:          event.Metadata["user_id"],
		Email:           event.Email,
		Package:         pkg.Name,
		Quota:           pkg.Quota,
		ValidFor:        s.cfg.ValidFor,
		PaymentIntentID: event.PaymentIntentID,
		ReceiptURL:      event.ReceiptURL,
	})
	if err != nil {
		return WebhookResult{}, err
	}

	s.logger.Info("payment fulfilled", "paymentIntentID", event.PaymentIntentID, "package", pkg.Name)
	return WebhookResult{Received: true, Fulfilled: true, Credentials: &creds}, nil
}

func (s *service) PaymentStatus(ctx context.Context, paymentIntentID string) (PaymentStatusResult, error) {
	m, found, err := s.members.PaymentStatus(ctx, paymentIntentID)
	if err != nil {
		return PaymentStatusResult{}, err
	}
	if !found {
		return PaymentStatusResult{Status: "pending"}, nil
	}
	return PaymentStatusResult{Status: "paid", Member: &m}, nil
}

func (s *service) PaymentLinks() map[string]string {
	links := make(map[string]string, len(s.cfg.Packages))
	for name, pkg := range s.cfg.Packages {
		if pkg.PaymentLink != "" {
			links[name] = pkg.PaymentLink
		}
	}
	return links
}

// resolvePackage prefers explicit metadata, then the paid amount, then the
// configured fallback.
func (s *service) resolvePackage(event PaymentEvent) Package {
	if name, ok := event.Metadata["packageName"]; ok {
		if pkg, ok := s.cfg.Packages[name]; ok {
			return pkg
		}
	}
	if name, ok := s.cfg.AmountToPackage[event.AmountReceived]; ok {
		if pkg, ok := s.cfg.Packages[name]; ok {
			return pkg
		}
	}
	s.logger.Warn("unknown payment amount, using fallback package", "amount", event.AmountReceived)
	return s.cfg.Packages[s.cfg.FallbackPackage]
}
