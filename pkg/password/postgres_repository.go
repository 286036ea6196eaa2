package password

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCredentialRepository implements CredentialRepository using PostgreSQL
type PostgresCredentialRepository struct {
	db *pgxpool.Pool
}

// NewPostgresCredentialRepository creates a new PostgreSQL credential repository
func NewPostgresCredentialRepository(db *pgxpool.Pool) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: db}
}

// SetCredential stores a password hash, clearing any pending reset artifact
func (r *PostgresCredentialRepository) SetCredential(ctx context.Context, accountID uuid.UUID, hash string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO credentials (account_id, password_hash, reset_artifact, updated_at)
		VALUES ($1, $2, NULL, NOW() AT TIME ZONE 'UTC')
		ON CONFLICT (account_id)
		DO UPDATE SET password_hash = EXCLUDED.password_hash,
		              reset_artifact = NULL,
		              updated_at = NOW() AT TIME ZONE 'UTC'
	`, accountID, hash)
	return err
}

// GetCredential returns the stored credential for the account
func (r *PostgresCredentialRepository) GetCredential(ctx context.Context, accountID uuid.UUID) (Credential, error) {
	var c Credential
	var artifact *string
	err := r.db.QueryRow(ctx, `
		SELECT account_id, password_hash, reset_artifact, updated_at
		FROM credentials
		WHERE account_id = $1
	`, accountID).Scan(&c.AccountID, &c.Hash, &artifact, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrCredentialNotFound
		}
		return Credential{}, err
	}
	if artifact != nil {
		c.ResetArtifact = *artifact
	}
	return c, nil
}

// SetResetArtifact records a pending reset artifact on the credential
func (r *PostgresCredentialRepository) SetResetArtifact(ctx context.Context, accountID uuid.UUID, artifact string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE credentials
		SET reset_artifact = $2, updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE account_id = $1
	`, accountID, artifact)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// DeleteCredential removes the credential for the account
func (r *PostgresCredentialRepository) DeleteCredential(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE account_id = $1`, accountID)
	return err
}
