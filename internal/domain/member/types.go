package member

import "time"

// Member is one row of the membership store. TokenHash is a bcrypt hash of
// the shared secret; the plaintext exists only in the issue response.
type Member struct {
	UserID          string     `json:"user_id"`
	TokenHash       string     `json:"-"`
	Quota           int        `json:"quota"`
	UsedCount       int        `json:"used_count"`
	Package         string     `json:"package,omitempty"`
	Expiry          *time.Time `json:"expiry,omitempty"`
	Email           string     `json:"email,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	ReceiptURL      string     `json:"receipt_url,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

// Credentials are returned exactly once, when a member is issued.
type Credentials struct {
	UserID  string     `json:"user_id"`
	Token   string     `json:"token"`
	Quota   int        `json:"quota"`
	Package string     `json:"package,omitempty"`
	Expiry  *time.Time `json:"expiry,omitempty"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Quota           *int
	UsedCount       *int
	Package         *string
	Expiry          *time.Time
	Email           *string
	PaymentIntentID *string
	ReceiptURL      *string
	PaidAt          *time.Time
}

// Fulfillment describes a completed payment to apply to the store.
type Fulfillment struct {
	UserID          string // empty when the payment has no member attached
	Email           string
	Package         string
	Quota           int
	ValidFor        time.Duration
	PaymentIntentID string
	ReceiptURL      string
}
