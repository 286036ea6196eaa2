package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAccountRepository implements AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new PostgreSQL account repository
func NewPostgresAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountColumns = `id, email, national_id, first_name, last_name, gender, birth_date, phone_number, confirmed, registered_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.NationalID,
		&a.FirstName,
		&a.LastName,
		&a.Gender,
		&a.BirthDate,
		&a.PhoneNumber,
		&a.Confirmed,
		&a.RegisteredAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// CreateAccount creates a new account row
func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	query := `
		INSERT INTO accounts (email, national_id, first_name, last_name, gender, birth_date, phone_number, confirmed)
		VALUES (LOWER($1), $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + accountColumns

	return scanAccount(r.db.QueryRow(ctx, query,
		params.Email,
		params.NationalID,
		params.FirstName,
		params.LastName,
		params.Gender,
		params.BirthDate,
		params.PhoneNumber,
		params.Confirmed,
	))
}

// GetAccountByID retrieves an account by id
func (r *PostgresAccountRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// GetAccountByEmail retrieves an account by email, case-insensitively
func (r *PostgresAccountRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = LOWER($1)`
	return scanAccount(r.db.QueryRow(ctx, query, email))
}

// ExistsByEmail reports whether an account with the email exists
func (r *PostgresAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = LOWER($1))`, email).Scan(&exists)
	return exists, err
}

// ExistsByNationalID reports whether an account with the national id exists
func (r *PostgresAccountRepository) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE national_id = $1)`, nationalID).Scan(&exists)
	return exists, err
}

// SetConfirmed updates the confirmed flag of an account
func (r *PostgresAccountRepository) SetConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET confirmed = $2, updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, confirmed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeleteAccount deletes an account. Verification codes and role assignments
// are removed by ON DELETE CASCADE.
func (r *PostgresAccountRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeleteUnconfirmedBefore deletes unconfirmed accounts registered before the cutoff
func (r *PostgresAccountRepository) DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM accounts
		WHERE confirmed = FALSE
		AND registered_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// EnsureRole returns the named role, creating it when missing
func (r *PostgresAccountRepository) EnsureRole(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.db.QueryRow(ctx, `
		INSERT INTO roles (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`, name).Scan(&role.ID, &role.Name)
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// AssignRole links a role to an account
func (r *PostgresAccountRepository) AssignRole(ctx context.Context, accountID, roleID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO account_roles (account_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, accountID, roleID)
	return err
}

// GetPrimaryRole returns the first role assigned to the account
func (r *PostgresAccountRepository) GetPrimaryRole(ctx context.Context, accountID uuid.UUID) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `
		SELECT r.name
		FROM roles r
		JOIN account_roles ar ON ar.role_id = r.id
		WHERE ar.account_id = $1
		ORDER BY ar.assigned_at ASC
		LIMIT 1
	`, accountID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultRole, nil
		}
		return "", err
	}
	return name, nil
}
