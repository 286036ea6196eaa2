package verificationcode

import (
	"context"

	"github.com/google/uuid"
)

// CodeRepository defines the persistence operations for verification codes.
// Several codes may exist per account and purpose at once; "latest" means
// the most recently created one.
type CodeRepository interface {
	Create(ctx context.Context, params CreateCodeParams) (VerificationCode, error)

	// GetLatestByAccountID returns the most recently created code for the
	// account and purpose, or ErrNotFound.
	GetLatestByAccountID(ctx context.Context, accountID uuid.UUID, purpose Purpose) (VerificationCode, error)

	// IncrementAttempts bumps the attempt counter of a code and returns the
	// post-increment value.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)

	// DeleteByAccountID removes every code for the account and purpose
	DeleteByAccountID(ctx context.Context, accountID uuid.UUID, purpose Purpose) error

	// DeleteAllByAccountID removes every code for the account, any purpose
	DeleteAllByAccountID(ctx context.Context, accountID uuid.UUID) error
}
