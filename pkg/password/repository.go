package password

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrArtifactMismatch   = errors.New("reset artifact does not match")
)

// Credential is a stored password hash plus an optional pending reset artifact
type Credential struct {
	AccountID     uuid.UUID
	Hash          string
	ResetArtifact string
	UpdatedAt     time.Time
}

// CredentialRepository stores password hashes keyed by account id.
// Hashes never leave this package; flows only see boolean check results
// and opaque reset artifacts.
type CredentialRepository interface {
	SetCredential(ctx context.Context, accountID uuid.UUID, hash string) error
	GetCredential(ctx context.Context, accountID uuid.UUID) (Credential, error)
	SetResetArtifact(ctx context.Context, accountID uuid.UUID, artifact string) error
	DeleteCredential(ctx context.Context, accountID uuid.UUID) error
}

// InMemoryCredentialRepository implements CredentialRepository in memory
type InMemoryCredentialRepository struct {
	mu          sync.RWMutex
	credentials map[uuid.UUID]Credential
}

// NewInMemoryCredentialRepository creates a new in-memory credential repository
func NewInMemoryCredentialRepository() *InMemoryCredentialRepository {
	return &InMemoryCredentialRepository{
		credentials: make(map[uuid.UUID]Credential),
	}
}

// SetCredential stores a password hash, clearing any pending reset artifact
func (r *InMemoryCredentialRepository) SetCredential(ctx context.Context, accountID uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.credentials[accountID] = Credential{
		AccountID: accountID,
		Hash:      hash,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// GetCredential returns the stored credential for the account
func (r *InMemoryCredentialRepository) GetCredential(ctx context.Context, accountID uuid.UUID) (Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.credentials[accountID]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return c, nil
}

// SetResetArtifact records a pending reset artifact on the credential
func (r *InMemoryCredentialRepository) SetResetArtifact(ctx context.Context, accountID uuid.UUID, artifact string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.credentials[accountID]
	if !ok {
		return ErrCredentialNotFound
	}
	c.ResetArtifact = artifact
	r.credentials[accountID] = c
	return nil
}

// DeleteCredential removes the credential for the account
func (r *InMemoryCredentialRepository) DeleteCredential(ctx context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.credentials, accountID)
	return nil
}
