package member

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// Service exposes membership workflows.
type Service interface {
	// Register issues a fresh member with zero quota and no package.
	Register(ctx context.Context) (Credentials, error)
	// Verify checks only that the (user_id, token) pair exists.
	Verify(ctx context.Context, userID, token string) (Member, error)
	// Authorize is Verify plus the package, expiry and quota gates a
	// fortune request must pass.
	Authorize(ctx context.Context, userID, token string) (Member, error)
	// SpendQuota burns one unit and returns (remaining, used).
	SpendQuota(ctx context.Context, userID string) (int, int, error)
	// Fulfill applies a completed payment: attaches the package to the
	// named member, or issues a new one when no member is attached.
	// Idempotent on payment intent id.
	Fulfill(ctx context.Context, f Fulfillment) (Credentials, error)
	// PaymentStatus reports the member attached to a payment intent.
	PaymentStatus(ctx context.Context, paymentIntentID string) (Member, bool, error)
	// SweepExpired deletes expired members that never bought a package.
	SweepExpired(ctx context.Context) (int, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the membership service.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With("component", "member.service"),
		now:    time.Now,
	}
}

func (s *service) Register(ctx context.Context) (Credentials, error) {
	userID, err := newUserID()
	if err != nil {
		return Credentials{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to generate user id", err)
	}
	token, err := newToken()
	if err != nil {
		return Credentials{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to generate token", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return Credentials{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to hash token", err)
	}

	m := Member{
		UserID:    userID,
		TokenHash: string(hash),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Credentials{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to store member", err)
	}

	s.logger.Info("member registered", "userID", userID)
	return Credentials{UserID: userID, Token: token, Quota: 0}, nil
}

func (s *service) Verify(ctx context.Context, userID, token string) (Member, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(token) == "" {
		return Member{}, apperrors.Wrap(apperrors.CodeInvalidCredentials, "user_id and token are required", nil)
	}
	m, found, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return Member{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to look up member", err)
	}
	if !found {
		return Member{}, apperrors.Wrap(apperrors.CodeInvalidCredentials, "unknown user_id or token", nil)
	}
	if bcrypt.CompareHashAndPassword([]byte(m.TokenHash), []byte(token)) != nil {
		return Member{}, apperrors.Wrap(apperrors.CodeInvalidCredentials, "unknown user_id or token", nil)
	}
	return m, nil
}

func (s *service) Authorize(ctx context.Context, userID, token string) (Member, error) {
	m, err := s.Verify(ctx, userID, token)
	if err != nil {
		return Member{}, err
	}
	if m.Package == "" {
		return Member{}, apperrors.Wrap(apperrors.CodeNoPackage, "no package purchased yet", nil)
	}
	if m.Expiry != nil && s.now().After(*m.Expiry) {
		return Member{}, apperrors.Wrap(apperrors.CodeExpired, "package expired", nil)
	}
	if m.Quota <= 0 {
		return Member{}, apperrors.Wrap(apperrors.CodeNoQuota, "quota exhausted", nil)
	}
	return m, nil
}

func (s *service) SpendQuota(ctx context.Context, userID string) (int, int, error) {
	m, found, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.CodeStoreError, "failed to look up member", err)
	}
	if !found {
		return 0, 0, apperrors.Wrap(apperrors.CodeNotFound, "member not found", nil)
	}
	if m.Quota <= 0 {
		return 0, 0, apperrors.Wrap(apperrors.CodeNoQuota, "quota exhausted", nil)
	}

	remaining := m.Quota - 1
	used := m.UsedCount + 1
	if _, ok, err := s.repo.Update(ctx, userID, Patch{Quota: &remaining, UsedCount: &used}); err != nil {
		return 0, 0, apperrors.Wrap(apperrors.CodeStoreError, "failed to update quota", err)
	} else if !ok {
		return 0, 0, apperrors.Wrap(apperrors.CodeNotFound, "member not found", nil)
	}
	return remaining, used, nil
}

func (s *service) Fulfill(ctx context.Context, f Fulfillment) (Credentials, error) {
	if f.PaymentIntentID != "" {
		if existing, found, err := s.repo.FindByPaymentIntent(ctx, f.PaymentIntentID); err != nil {
			return Credentials{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to check payment intent", err)
		} else if found {
			s.logger.Info("payment already fulfilled", "paymentIntentID", f.PaymentIntentID)
			return Credentials{UserID: existing.UserID, Quota: existing.Quota, Package: existing.Package, Expiry: existing.Expiry}, nil
		}
	}

	now := s.now().UTC()
	expiry := now.Add(f.ValidFor)
	paidAt := now

	if f.UserID != "" {
		patch := Patch{
			Quota:           &f.Quota,
			Package:         &f.Package,
			Expiry:          &expiry,
			PaymentIntentID: &f.PaymentIntentID,
			ReceiptURL:      &f.ReceiptURL,
			PaidAt:          &paidAt,
		}
		if f.Email != "" {
			patch.Email = &f.Email
		}
		if m, ok, err := s.repo.Update(ctx, f.UserID, patch); err != nil {
			return Credentials{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to apply package", err)
		} else if ok {
			s.logger.Info("package applied", "userID", f.UserID, "package", f.Package, "quota", f.Quota)
			return Credentials{UserID: m.UserID, Quota: m.Quota, Package: m.Package, Expiry: m.Expiry}, nil
		}
		s.logger.Warn("paid member not found, issuing a new one", "userID", f.UserID)
	}

	creds, err := s.Register(ctx)
	if err != nil {
		return Credentials{}, err
	}
	patch := Patch{
		Quota:           &f.Quota,
		Package:         &f.Package,
		Expiry:          &expiry,
		PaymentIntentID: &f.PaymentIntentID,
		ReceiptURL:      &f.ReceiptURL,
		PaidAt:          &paidAt,
	}
	if f.Email != "" {
		patch.Email = &f.Email
	}
	if _, ok, err := s.repo.Update(ctx, creds.UserID, patch); err != nil || !ok {
		return Credentials{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to apply package to new member", err)
	}

	creds.Quota = f.Quota
	creds.Package = f.Package
	creds.Expiry = &expiry
	s.logger.Info("member issued for payment", "userID", creds.UserID, "package", f.Package, "quota", f.Quota)
	return creds, nil
}

func (s *service) PaymentStatus(ctx context.Context, paymentIntentID string) (Member, bool, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return Member{}, false, apperrors.Wrap(apperrors.CodeInvalidInput, "paymentIntentId is required", nil)
	}
	m, found, err := s.repo.FindByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return Member{}, false, apperrors.Wrap(apperrors.CodeStoreError, "failed to look up payment", err)
	}
	return m, found, nil
}

func (s *service) SweepExpired(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteExpiredWithoutPackage(ctx, s.now().UTC())
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStoreError, "expiry sweep failed", err)
	}
	if removed > 0 {
		s.logger.Info("expired members removed", "count", removed)
	}
	return removed, nil
}

// newUserID draws a random 6-digit identifier.
func newUserID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// newToken draws the short shared secret, hex over 3 random bytes.
func newToken() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
