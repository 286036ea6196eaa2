package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CodePurger removes all verification codes belonging to an account.
// The in-memory account repository calls it when deleting an account to
// mirror the FK cascade the postgres schema provides.
type CodePurger interface {
	DeleteAllByAccountID(ctx context.Context, accountID uuid.UUID) error
}

// InMemoryAccountRepository implements AccountRepository using in-memory storage
type InMemoryAccountRepository struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]Account
	roles        map[string]Role
	accountRoles map[uuid.UUID][]uuid.UUID // accountID -> []roleID ordered by assignment
	purger       CodePurger
}

// NewInMemoryAccountRepository creates a new in-memory account repository
func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{
		accounts:     make(map[uuid.UUID]Account),
		roles:        make(map[string]Role),
		accountRoles: make(map[uuid.UUID][]uuid.UUID),
	}
}

// SetCodePurger wires the verification code store so account deletion
// cascades to codes, as the postgres schema does
func (r *InMemoryAccountRepository) SetCodePurger(p CodePurger) {
	r.purger = p
}

// CreateAccount creates a new account
func (r *InMemoryAccountRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	a := Account{
		ID:           uuid.New(),
		Email:        strings.ToLower(params.Email),
		NationalID:   params.NationalID,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Gender:       params.Gender,
		BirthDate:    params.BirthDate,
		PhoneNumber:  params.PhoneNumber,
		Confirmed:    params.Confirmed,
		RegisteredAt: now,
		UpdatedAt:    now,
	}

	r.accounts[a.ID] = a
	r.accountRoles[a.ID] = []uuid.UUID{}
	return a, nil
}

// GetAccountByID gets an account by id
func (r *InMemoryAccountRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

// GetAccountByEmail gets an account by email, case-insensitively
func (r *InMemoryAccountRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

// ExistsByEmail reports whether an account with the email exists
func (r *InMemoryAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetAccountByEmail(ctx, email)
	if err == ErrAccountNotFound {
		return false, nil
	}
	return err == nil, err
}

// ExistsByNationalID reports whether an account with the national id exists
func (r *InMemoryAccountRepository) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.NationalID == nationalID {
			return true, nil
		}
	}
	return false, nil
}

// SetConfirmed updates the confirmed flag
func (r *InMemoryAccountRepository) SetConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.Confirmed = confirmed
	a.UpdatedAt = time.Now().UTC()
	r.accounts[id] = a
	return nil
}

// DeleteAccount deletes an account, its role assignments and its codes
func (r *InMemoryAccountRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	if _, ok := r.accounts[id]; !ok {
		r.mu.Unlock()
		return ErrAccountNotFound
	}
	delete(r.accounts, id)
	delete(r.accountRoles, id)
	purger := r.purger
	r.mu.Unlock()

	if purger != nil {
		return purger.DeleteAllByAccountID(ctx, id)
	}
	return nil
}

// DeleteUnconfirmedBefore deletes unconfirmed accounts registered before the cutoff
func (r *InMemoryAccountRepository) DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	var ids []uuid.UUID
	for id, a := range r.accounts {
		if !a.Confirmed && a.RegisteredAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(r.accounts, id)
		delete(r.accountRoles, id)
	}
	purger := r.purger
	r.mu.Unlock()

	if purger != nil {
		for _, id := range ids {
			if err := purger.DeleteAllByAccountID(ctx, id); err != nil {
				return int64(len(ids)), err
			}
		}
	}
	return int64(len(ids)), nil
}

// SetRegisteredAt backdates an account's registration time, for tests
func (r *InMemoryAccountRepository) SetRegisteredAt(id uuid.UUID, registeredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.RegisteredAt = registeredAt
	r.accounts[id] = a
	return nil
}

// EnsureRole returns the named role, creating it when missing
func (r *InMemoryAccountRepository) EnsureRole(ctx context.Context, name string) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if role, ok := r.roles[name]; ok {
		return role, nil
	}
	role := Role{ID: uuid.New(), Name: name}
	r.roles[name] = role
	return role, nil
}

// AssignRole links a role to an account
func (r *InMemoryAccountRepository) AssignRole(ctx context.Context, accountID, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[accountID]; !ok {
		return ErrAccountNotFound
	}
	for _, assigned := range r.accountRoles[accountID] {
		if assigned == roleID {
			return nil
		}
	}
	r.accountRoles[accountID] = append(r.accountRoles[accountID], roleID)
	return nil
}

// GetPrimaryRole returns the first role assigned to the account
func (r *InMemoryAccountRepository) GetPrimaryRole(ctx context.Context, accountID uuid.UUID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roleIDs := r.accountRoles[accountID]
	if len(roleIDs) == 0 {
		return DefaultRole, nil
	}
	for _, role := range r.roles {
		if role.ID == roleIDs[0] {
			return role.Name, nil
		}
	}
	return DefaultRole, nil
}
