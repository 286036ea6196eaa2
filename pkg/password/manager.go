package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// PasswordManager owns password hashing, comparison, and rotation. Flows
// never see hashes or compare raw passwords; they hold an account id and,
// for resets, an opaque one-time artifact.
type PasswordManager struct {
	repo   CredentialRepository
	hasher PasswordHasher
	policy *PasswordPolicy
}

// PasswordManagerOption configures a PasswordManager
type PasswordManagerOption func(*PasswordManager)

// WithHasher sets the password hasher
func WithHasher(h PasswordHasher) PasswordManagerOption {
	return func(pm *PasswordManager) {
		pm.hasher = h
	}
}

// WithPolicy sets the complexity policy
func WithPolicy(p *PasswordPolicy) PasswordManagerOption {
	return func(pm *PasswordManager) {
		pm.policy = p
	}
}

// NewPasswordManager creates a new PasswordManager
func NewPasswordManager(repo CredentialRepository, opts ...PasswordManagerOption) *PasswordManager {
	pm := &PasswordManager{
		repo:   repo,
		hasher: NewBcryptHasher(0),
		policy: DefaultPasswordPolicy(),
	}

	for _, opt := range opts {
		opt(pm)
	}

	return pm
}

// CheckPolicy validates a candidate password against the complexity
// policy without touching any stored credential
func (pm *PasswordManager) CheckPolicy(password string) error {
	return pm.policy.Check(password)
}

// CreatePassword validates the password against the policy, hashes it, and
// stores the credential for the account
func (pm *PasswordManager) CreatePassword(ctx context.Context, accountID uuid.UUID, password string) error {
	if err := pm.policy.Check(password); err != nil {
		return err
	}
	hash, err := pm.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return pm.repo.SetCredential(ctx, accountID, hash)
}

// CheckPassword reports whether the password matches the stored credential
func (pm *PasswordManager) CheckPassword(ctx context.Context, accountID uuid.UUID, password string) (bool, error) {
	c, err := pm.repo.GetCredential(ctx, accountID)
	if err != nil {
		if err == ErrCredentialNotFound {
			return false, nil
		}
		return false, err
	}
	return pm.hasher.Verify(password, c.Hash)
}

// GenerateResetArtifact issues a one-time artifact bound to the account's
// credential. The artifact authorizes exactly one ResetPassword call.
func (pm *PasswordManager) GenerateResetArtifact(ctx context.Context, accountID uuid.UUID) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset artifact: %w", err)
	}
	artifact := base64.URLEncoding.EncodeToString(b)

	if err := pm.repo.SetResetArtifact(ctx, accountID, artifact); err != nil {
		return "", err
	}
	return artifact, nil
}

// ResetPassword rotates the credential. The artifact must match the pending
// one issued by GenerateResetArtifact; storing the new hash clears it.
func (pm *PasswordManager) ResetPassword(ctx context.Context, accountID uuid.UUID, artifact, newPassword string) error {
	c, err := pm.repo.GetCredential(ctx, accountID)
	if err != nil {
		return err
	}
	if c.ResetArtifact == "" ||
		subtle.ConstantTimeCompare([]byte(c.ResetArtifact), []byte(artifact)) != 1 {
		slog.Warn("Password reset with stale or mismatched artifact", "account_id", accountID)
		return ErrArtifactMismatch
	}

	if err := pm.policy.Check(newPassword); err != nil {
		return err
	}
	hash, err := pm.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return pm.repo.SetCredential(ctx, accountID, hash)
}

// DeleteCredential removes the stored credential for the account
func (pm *PasswordManager) DeleteCredential(ctx context.Context, accountID uuid.UUID) error {
	return pm.repo.DeleteCredential(ctx, accountID)
}
