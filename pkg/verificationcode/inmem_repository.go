package verificationcode

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCodeRepository implements CodeRepository using in-memory storage
type InMemoryCodeRepository struct {
	mu    sync.RWMutex
	codes map[uuid.UUID]VerificationCode
	seq   int64 // creation order tiebreaker for equal timestamps
	order map[uuid.UUID]int64
}

// NewInMemoryCodeRepository creates a new in-memory code repository
func NewInMemoryCodeRepository() *InMemoryCodeRepository {
	return &InMemoryCodeRepository{
		codes: make(map[uuid.UUID]VerificationCode),
		order: make(map[uuid.UUID]int64),
	}
}

// Create persists a new verification code with attempt count 0
func (r *InMemoryCodeRepository) Create(ctx context.Context, params CreateCodeParams) (VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vc := VerificationCode{
		ID:           uuid.New(),
		AccountID:    params.AccountID,
		Purpose:      params.Purpose,
		Code:         params.Code,
		AttemptCount: 0,
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    params.ExpiresAt,
	}
	r.seq++
	r.codes[vc.ID] = vc
	r.order[vc.ID] = r.seq
	return vc, nil
}

// GetLatestByAccountID returns the most recently created code for the account and purpose
func (r *InMemoryCodeRepository) GetLatestByAccountID(ctx context.Context, accountID uuid.UUID, purpose Purpose) (VerificationCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest VerificationCode
	var latestSeq int64 = -1
	for id, vc := range r.codes {
		if vc.AccountID != accountID || vc.Purpose != purpose {
			continue
		}
		if r.order[id] > latestSeq {
			latest = vc
			latestSeq = r.order[id]
		}
	}
	if latestSeq < 0 {
		return VerificationCode{}, ErrNotFound
	}
	return latest, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value
func (r *InMemoryCodeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vc, ok := r.codes[id]
	if !ok {
		return 0, ErrNotFound
	}
	vc.AttemptCount++
	r.codes[id] = vc
	return vc.AttemptCount, nil
}

// DeleteByAccountID removes every code for the account and purpose
func (r *InMemoryCodeRepository) DeleteByAccountID(ctx context.Context, accountID uuid.UUID, purpose Purpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, vc := range r.codes {
		if vc.AccountID == accountID && vc.Purpose == purpose {
			delete(r.codes, id)
			delete(r.order, id)
		}
	}
	return nil
}

// DeleteAllByAccountID removes every code for the account
func (r *InMemoryCodeRepository) DeleteAllByAccountID(ctx context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, vc := range r.codes {
		if vc.AccountID == accountID {
			delete(r.codes, id)
			delete(r.order, id)
		}
	}
	return nil
}

// CountByAccountID reports how many codes exist for the account and purpose.
// Test helper; not part of CodeRepository.
func (r *InMemoryCodeRepository) CountByAccountID(accountID uuid.UUID, purpose Purpose) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, vc := range r.codes {
		if vc.AccountID == accountID && vc.Purpose == purpose {
			n++
		}
	}
	return n
}
