package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/tienda-labs/storeauth/pkg/account"
)

// DefaultOffsetDays is added to the current date to form the deletion
// cutoff. Negative values look back: the default removes unconfirmed
// accounts older than 30 days.
const DefaultOffsetDays = -30

// ReaperService removes unconfirmed accounts that never verified their
// email within the grace window.
type ReaperService struct {
	accountRepo account.AccountRepository
	offsetDays  int
	now         func() time.Time
}

// ReaperServiceOption configures a ReaperService
type ReaperServiceOption func(*ReaperService)

// WithOffsetDays sets the cutoff offset in days. The offset keeps its
// sign: -30 deletes accounts registered more than 30 days ago, while a
// positive offset places the cutoff in the future and reaps every
// unconfirmed account.
func WithOffsetDays(days int) ReaperServiceOption {
	return func(s *ReaperService) {
		s.offsetDays = days
	}
}

// WithNowFunc replaces the clock, for tests
func WithNowFunc(now func() time.Time) ReaperServiceOption {
	return func(s *ReaperService) {
		s.now = now
	}
}

// NewReaperService creates a new ReaperService
func NewReaperService(accountRepo account.AccountRepository, opts ...ReaperServiceOption) *ReaperService {
	s := &ReaperService{
		accountRepo: accountRepo,
		offsetDays:  DefaultOffsetDays,
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Reap deletes unconfirmed accounts registered before the cutoff and
// returns the number deleted.
func (s *ReaperService) Reap(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, s.offsetDays)
	deleted, err := s.accountRepo.DeleteUnconfirmedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("Reaped unconfirmed accounts", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// DeleteUnconfirmed runs one reap and reports the count. Failures are
// logged and reported as zero deletions; the next scheduled run picks
// the backlog up.
func (s *ReaperService) DeleteUnconfirmed(ctx context.Context) int64 {
	deleted, err := s.Reap(ctx)
	if err != nil {
		slog.Error("Failed to reap unconfirmed accounts", "err", err)
		return 0
	}
	return deleted
}
