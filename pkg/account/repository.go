package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrRoleNotFound    = errors.New("role not found")
)

// AccountRepository defines the persistence operations the account flows need.
// Email lookups are case-insensitive. Deleting an account also removes its
// verification codes (FK cascade in postgres, explicit in memory).
type AccountRepository interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNationalID(ctx context.Context, nationalID string) (bool, error)
	SetConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	// DeleteUnconfirmedBefore removes all unconfirmed accounts registered
	// before the cutoff and returns the number deleted.
	DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// EnsureRole returns the role with the given name, creating it if absent
	EnsureRole(ctx context.Context, name string) (Role, error)
	AssignRole(ctx context.Context, accountID, roleID uuid.UUID) error

	// GetPrimaryRole returns the account's first assigned role name,
	// falling back to DefaultRole when the account holds none.
	GetPrimaryRole(ctx context.Context, accountID uuid.UUID) (string, error)
}
