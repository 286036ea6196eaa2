package verificationcode

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Purpose distinguishes what a verification code may be consumed for.
// Codes are scoped per purpose: an email verification code can never
// satisfy a password reset and vice versa.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// ErrNotFound is returned when no code exists for an account and purpose
var ErrNotFound = errors.New("verification code not found")

// VerificationCode represents a short-lived 6-digit code
type VerificationCode struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Purpose      Purpose
	Code         string
	AttemptCount int
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Active reports whether the code is still consumable at the given instant
func (c VerificationCode) Active(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// CreateCodeParams holds the fields for persisting a new code
type CreateCodeParams struct {
	AccountID uuid.UUID
	Purpose   Purpose
	Code      string
	ExpiresAt time.Time
}
