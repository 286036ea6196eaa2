package verificationcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	autherr "github.com/tienda-labs/storeauth/pkg/errors"
)

// Defaults for code issuance and validation
const (
	DefaultCodeTTL     = 3 * time.Minute
	DefaultMaxAttempts = 5

	codeMin  = 100000
	codeSpan = 900000 // codes are drawn from [100000, 999999]
)

// LockoutFunc is invoked by Validate when the attempt limit is reached,
// after the codes for the account and purpose have been purged. The engine
// never decides what a lockout means; the calling flow does (account
// deletion for email verification, code purge only for password reset).
type LockoutFunc func(ctx context.Context) error

// CodeService issues and validates short-lived 6-digit verification codes
type CodeService struct {
	repo        CodeRepository
	ttl         time.Duration
	maxAttempts int
	generate    func() (string, error)
	now         func() time.Time
}

// CodeServiceOption configures a CodeService
type CodeServiceOption func(*CodeService)

// WithCodeTTL sets how long an issued code stays valid
func WithCodeTTL(ttl time.Duration) CodeServiceOption {
	return func(s *CodeService) {
		s.ttl = ttl
	}
}

// WithMaxAttempts sets the failed-attempt count that triggers a lockout
func WithMaxAttempts(max int) CodeServiceOption {
	return func(s *CodeService) {
		s.maxAttempts = max
	}
}

// WithCodeGenerator replaces the random code source, for deterministic tests
func WithCodeGenerator(gen func() (string, error)) CodeServiceOption {
	return func(s *CodeService) {
		s.generate = gen
	}
}

// WithNowFunc replaces the clock, for deterministic tests
func WithNowFunc(now func() time.Time) CodeServiceOption {
	return func(s *CodeService) {
		s.now = now
	}
}

// NewCodeService creates a new verification code service
func NewCodeService(repo CodeRepository, opts ...CodeServiceOption) *CodeService {
	s := &CodeService{
		repo:        repo,
		ttl:         DefaultCodeTTL,
		maxAttempts: DefaultMaxAttempts,
		generate:    generateCode,
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// TTL returns how long issued codes stay valid
func (s *CodeService) TTL() time.Duration {
	return s.ttl
}

// generateCode draws a code uniformly from [100000, 999999]. Always exactly
// six digits, never a leading zero.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// Generate issues a new code for the account and purpose.
//
// While the most recent code for the same account and purpose is still
// active, Generate refuses with ErrCodeThrottled carrying the remaining
// seconds. The check and the insert are not atomic against the backing
// store: two concurrent calls can both observe no active code and both
// succeed, leaving two simultaneously valid codes. Accepted race.
func (s *CodeService) Generate(ctx context.Context, accountID uuid.UUID, purpose Purpose) (string, error) {
	now := s.now()

	latest, err := s.repo.GetLatestByAccountID(ctx, accountID, purpose)
	if err != nil && err != ErrNotFound {
		slog.Error("Failed to look up latest verification code", "account_id", accountID, "purpose", purpose, "err", err)
		return "", autherr.InternalWrap(err, "failed to look up verification code")
	}
	if err == nil && latest.Active(now) {
		remaining := int(latest.ExpiresAt.Sub(now).Seconds())
		if remaining < 1 {
			remaining = 1
		}
		slog.Warn("Verification code request throttled", "account_id", accountID, "purpose", purpose, "remaining_seconds", remaining)
		return "", autherr.Throttled(remaining)
	}

	code, err := s.generate()
	if err != nil {
		slog.Error("Failed to generate verification code", "account_id", accountID, "err", err)
		return "", autherr.InternalWrap(err, "failed to generate verification code")
	}

	_, err = s.repo.Create(ctx, CreateCodeParams{
		AccountID: accountID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		slog.Error("Failed to store verification code", "account_id", accountID, "purpose", purpose, "err", err)
		return "", autherr.InternalWrap(err, "failed to store verification code")
	}

	slog.Info("Verification code issued", "account_id", accountID, "purpose", purpose, "ttl", s.ttl)
	return code, nil
}

// Validate consumes the most recent code for the account and purpose.
//
// Outcomes, exactly one per call:
//   - no code on record: ErrCodeNotFound
//   - code expired: attempt counter incremented, ErrCodeExpired (the
//     submitted value is never compared against an expired code)
//   - mismatch: attempt counter incremented; when the counter reaches the
//     limit, all codes for the account and purpose are purged, onLockout
//     runs, and ErrCodeAttemptsExceeded is returned; otherwise
//     ErrCodeMismatch
//   - match: all codes for the account and purpose are purged, nil
//
// The increment-then-compare sequence is not guarded by a cross-request
// lock; under concurrency the counter can under-count. Deterrent, not a
// security guarantee.
func (s *CodeService) Validate(ctx context.Context, accountID uuid.UUID, purpose Purpose, submitted string, onLockout LockoutFunc) error {
	latest, err := s.repo.GetLatestByAccountID(ctx, accountID, purpose)
	if err == ErrNotFound {
		return autherr.New(autherr.ErrCodeNotFound, "verification code not found")
	}
	if err != nil {
		slog.Error("Failed to look up latest verification code", "account_id", accountID, "purpose", purpose, "err", err)
		return autherr.InternalWrap(err, "failed to look up verification code")
	}

	now := s.now()
	if !latest.Active(now) {
		if _, err := s.repo.IncrementAttempts(ctx, latest.ID); err != nil {
			slog.Error("Failed to increment attempts on expired code", "code_id", latest.ID, "err", err)
		}
		return autherr.New(autherr.ErrCodeExpired, "verification code has expired")
	}

	if submitted != latest.Code {
		attempts, err := s.repo.IncrementAttempts(ctx, latest.ID)
		if err != nil {
			slog.Error("Failed to increment attempts", "code_id", latest.ID, "err", err)
			return autherr.InternalWrap(err, "failed to record failed attempt")
		}
		if attempts >= s.maxAttempts {
			if err := s.repo.DeleteByAccountID(ctx, accountID, purpose); err != nil {
				slog.Error("Failed to purge codes after attempt limit", "account_id", accountID, "purpose", purpose, "err", err)
			}
			if onLockout != nil {
				if err := onLockout(ctx); err != nil {
					slog.Error("Lockout action failed", "account_id", accountID, "purpose", purpose, "err", err)
				}
			}
			slog.Warn("Verification attempt limit reached", "account_id", accountID, "purpose", purpose, "attempts", attempts)
			return autherr.New(autherr.ErrCodeAttemptsExceeded, "too many failed attempts")
		}
		return autherr.New(autherr.ErrCodeMismatch, "invalid verification code")
	}

	if err := s.repo.DeleteByAccountID(ctx, accountID, purpose); err != nil {
		slog.Error("Failed to purge codes after successful validation", "account_id", accountID, "purpose", purpose, "err", err)
		return autherr.InternalWrap(err, "failed to consume verification code")
	}

	slog.Info("Verification code consumed", "account_id", accountID, "purpose", purpose)
	return nil
}

// PurgeCodes removes every code for the account and purpose. Flows use it
// as the password-reset lockout action and for post-reset cleanup.
func (s *CodeService) PurgeCodes(ctx context.Context, accountID uuid.UUID, purpose Purpose) error {
	return s.repo.DeleteByAccountID(ctx, accountID, purpose)
}
