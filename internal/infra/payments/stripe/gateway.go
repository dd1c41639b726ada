package stripe

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/astrowise/astrowise-api/internal/domain/billing"
	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// Gateway implements billing.Gateway on top of the Stripe API.
type Gateway struct {
	webhookSecret string
	logger        *slog.Logger
}

// New configures the global Stripe client key and returns a gateway.
func New(apiKey, webhookSecret string, logger *slog.Logger) *Gateway {
	stripe.Key = apiKey
	return &Gateway{
		webhookSecret: webhookSecret,
		logger:        logger.With("component", "stripe"),
	}
}

var _ billing.Gateway = (*Gateway)(nil)

// CreateCheckoutSession opens a hosted checkout page for a single price.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, p billing.CheckoutParams) (billing.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
		if params.PaymentIntentData == nil {
			params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{}
		}
		params.PaymentIntentData.AddMetadata(k, v)
	}

	s, err := session.New(params)
	if err != nil {
		return billing.CheckoutSession{}, apperrors.Wrap(apperrors.CodePaymentError, "create checkout session", err)
	}
	g.logger.Info("checkout session created", "session_id", s.ID)
	return billing.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and normalizes the event.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (billing.PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return billing.PaymentEvent{}, apperrors.Wrap(apperrors.CodePaymentError, "verify webhook signature", err)
	}

	out := billing.PaymentEvent{Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return billing.PaymentEvent{}, apperrors.Wrap(apperrors.CodePaymentError, "decode payment intent", err)
		}
		out.PaymentIntentID = pi.ID
		out.AmountReceived = pi.AmountReceived
		out.Metadata = pi.Metadata
		if pi.ReceiptEmail != "" {
			out.Email = pi.ReceiptEmail
		}
		if pi.LatestCharge != nil {
			out.ReceiptURL = pi.LatestCharge.ReceiptURL
			if out.Email == "" && pi.LatestCharge.BillingDetails != nil {
				out.Email = pi.LatestCharge.BillingDetails.Email
			}
		}
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return billing.PaymentEvent{}, apperrors.Wrap(apperrors.CodePaymentError, "decode checkout session", err)
		}
		if cs.PaymentIntent != nil {
			out.PaymentIntentID = cs.PaymentIntent.ID
		}
		out.AmountReceived = cs.AmountTotal
		out.Metadata = cs.Metadata
		if cs.CustomerDetails != nil {
			out.Email = cs.CustomerDetails.Email
		}
	default:
		g.logger.Debug("unhandled webhook event", "type", event.Type)
	}
	return out, nil
}
