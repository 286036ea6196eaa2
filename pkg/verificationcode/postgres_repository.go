package verificationcode

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCodeRepository implements CodeRepository using PostgreSQL
type PostgresCodeRepository struct {
	db *pgxpool.Pool
}

// NewPostgresCodeRepository creates a new PostgreSQL code repository
func NewPostgresCodeRepository(db *pgxpool.Pool) *PostgresCodeRepository {
	return &PostgresCodeRepository{db: db}
}

// Create persists a new verification code with attempt count 0
func (r *PostgresCodeRepository) Create(ctx context.Context, params CreateCodeParams) (VerificationCode, error) {
	query := `
		INSERT INTO verification_codes (account_id, purpose, code, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, account_id, purpose, code, attempt_count, created_at, expires_at
	`

	var vc VerificationCode
	err := r.db.QueryRow(ctx, query, params.AccountID, string(params.Purpose), params.Code, params.ExpiresAt).Scan(
		&vc.ID,
		&vc.AccountID,
		&vc.Purpose,
		&vc.Code,
		&vc.AttemptCount,
		&vc.CreatedAt,
		&vc.ExpiresAt,
	)
	if err != nil {
		return VerificationCode{}, err
	}
	return vc, nil
}

// GetLatestByAccountID returns the most recently created code for the account and purpose
func (r *PostgresCodeRepository) GetLatestByAccountID(ctx context.Context, accountID uuid.UUID, purpose Purpose) (VerificationCode, error) {
	query := `
		SELECT id, account_id, purpose, code, attempt_count, created_at, expires_at
		FROM verification_codes
		WHERE account_id = $1
		AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var vc VerificationCode
	err := r.db.QueryRow(ctx, query, accountID, string(purpose)).Scan(
		&vc.ID,
		&vc.AccountID,
		&vc.Purpose,
		&vc.Code,
		&vc.AttemptCount,
		&vc.CreatedAt,
		&vc.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VerificationCode{}, ErrNotFound
		}
		return VerificationCode{}, err
	}
	return vc, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value
func (r *PostgresCodeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		UPDATE verification_codes
		SET attempt_count = attempt_count + 1
		WHERE id = $1
		RETURNING attempt_count
	`, id).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

// DeleteByAccountID removes every code for the account and purpose
func (r *PostgresCodeRepository) DeleteByAccountID(ctx context.Context, accountID uuid.UUID, purpose Purpose) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM verification_codes
		WHERE account_id = $1
		AND purpose = $2
	`, accountID, string(purpose))
	return err
}

// DeleteAllByAccountID removes every code for the account
func (r *PostgresCodeRepository) DeleteAllByAccountID(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE account_id = $1`, accountID)
	return err
}
