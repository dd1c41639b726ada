package billing

import (
	"context"
	"time"
)

// Package is one purchasable tier.
type Package struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	PriceID     string `json:"-"`
	Quota       int    `json:"quota"`
	PaymentLink string `json:"-"`
}

// Config drives checkout and fulfillment behavior.
type Config struct {
	Packages map[string]Package
	// AmountToPackage maps amount_received (minor units) onto a package
	// name for webhooks that carry no usable metadata.
	AmountToPackage map[int64]string
	FallbackPackage string
	SuccessURL      string
	CancelURL       string
	ValidFor        time.Duration
}

// CheckoutParams is what the payment gateway needs to open a session.
type CheckoutParams struct {
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the gateway's answer.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentEvent is a normalized webhook event.
type PaymentEvent struct {
	Type            string
	PaymentIntentID string
	Email           string
	ReceiptURL      string
	AmountReceived  int64
	Metadata        map[string]string
}

// Completed reports whether the event marks money received.
func (e PaymentEvent) Completed() bool {
	return e.Type == "payment_intent.succeeded" || e.Type == "checkout.session.completed"
}

// Gateway abstracts the payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
	// ParseWebhook verifies the signature and normalizes the event.
	ParseWebhook(payload []byte, signature string) (PaymentEvent, error)
}
