package verificationcode

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherr "github.com/tienda-labs/storeauth/pkg/errors"
)

// testClock is a manually advanced clock for deterministic expiry tests
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func fixedCode(code string) func() (string, error) {
	return func() (string, error) { return code, nil }
}

func TestGenerateCode_Shape(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestGenerate_ReturnsIssuedCode(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithNowFunc(clock.Now), WithCodeGenerator(fixedCode("123456")))
	accountID := uuid.New()

	code, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	stored, err := repo.GetLatestByAccountID(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "123456", stored.Code)
	assert.Equal(t, 0, stored.AttemptCount)
	assert.Equal(t, clock.Now().Add(DefaultCodeTTL), stored.ExpiresAt)
}

func TestGenerate_ThrottledWhileCodeActive(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithNowFunc(clock.Now))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	_, err = svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.Error(t, err)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeThrottled))
	assert.Greater(t, autherr.RemainingSeconds(err), 0)
}

func TestGenerate_ThrottleReportsRemainingWait(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithNowFunc(clock.Now))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposePasswordReset)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)

	_, err = svc.Generate(ctx, accountID, PurposePasswordReset)
	require.Error(t, err)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeThrottled))
	assert.Equal(t, 150, autherr.RemainingSeconds(err))
}

func TestGenerate_AllowedAfterExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithNowFunc(clock.Now))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	clock.Advance(DefaultCodeTTL + time.Second)

	_, err = svc.Generate(ctx, accountID, PurposeEmailVerification)
	assert.NoError(t, err)
}

func TestGenerate_PurposesThrottledIndependently(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo)
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	// A fresh password reset code is not blocked by the active email code
	_, err = svc.Generate(ctx, accountID, PurposePasswordReset)
	assert.NoError(t, err)
}

func TestValidate_SuccessPurgesCodes(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithCodeGenerator(fixedCode("654321")))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	err = svc.Validate(ctx, accountID, PurposeEmailVerification, "654321", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.CountByAccountID(accountID, PurposeEmailVerification))

	// Consumed: a second validation finds nothing
	err = svc.Validate(ctx, accountID, PurposeEmailVerification, "654321", nil)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeNotFound))
}

func TestValidate_NoCodeOnRecord(t *testing.T) {
	ctx := context.Background()
	svc := NewCodeService(NewInMemoryCodeRepository())

	err := svc.Validate(ctx, uuid.New(), PurposeEmailVerification, "123456", nil)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeNotFound))
}

func TestValidate_PurposeScoping(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithCodeGenerator(fixedCode("111222")))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	// The email verification code must not satisfy a password reset
	err = svc.Validate(ctx, accountID, PurposePasswordReset, "111222", nil)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeNotFound))
}

func TestValidate_MismatchIncrementsAttempts(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithCodeGenerator(fixedCode("999999")))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	err = svc.Validate(ctx, accountID, PurposeEmailVerification, "000000", nil)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeMismatch))

	stored, err := repo.GetLatestByAccountID(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AttemptCount)
}

func TestValidate_AttemptLimitTriggersLockout(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithCodeGenerator(fixedCode("999999")))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	lockouts := 0
	onLockout := func(ctx context.Context) error {
		lockouts++
		return nil
	}

	for i := 1; i <= 4; i++ {
		err = svc.Validate(ctx, accountID, PurposeEmailVerification, "000000", onLockout)
		assert.True(t, autherr.IsCode(err, autherr.ErrCodeMismatch), "attempt %d", i)
	}
	assert.Equal(t, 0, lockouts)

	// Fifth wrong attempt reaches the limit
	err = svc.Validate(ctx, accountID, PurposeEmailVerification, "000000", onLockout)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeAttemptsExceeded))
	assert.Equal(t, 1, lockouts)
	assert.Equal(t, 0, repo.CountByAccountID(accountID, PurposeEmailVerification))
}

func TestValidate_ExpiredEvenWhenValueMatches(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	repo := NewInMemoryCodeRepository()
	svc := NewCodeService(repo, WithNowFunc(clock.Now), WithCodeGenerator(fixedCode("424242")))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposePasswordReset)
	require.NoError(t, err)

	clock.Advance(DefaultCodeTTL)

	err = svc.Validate(ctx, accountID, PurposePasswordReset, "424242", nil)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeExpired))

	stored, err := repo.GetLatestByAccountID(ctx, accountID, PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AttemptCount)
}

func TestValidate_LatestCodeWins(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	repo := NewInMemoryCodeRepository()

	next := "111111"
	gen := func() (string, error) { return next, nil }
	svc := NewCodeService(repo, WithNowFunc(clock.Now), WithCodeGenerator(gen))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	clock.Advance(DefaultCodeTTL + time.Second)
	next = "222222"
	_, err = svc.Generate(ctx, accountID, PurposeEmailVerification)
	require.NoError(t, err)

	// Only the most recent code is consulted; the first one is stale
	err = svc.Validate(ctx, accountID, PurposeEmailVerification, "111111", nil)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeMismatch))

	err = svc.Validate(ctx, accountID, PurposeEmailVerification, "222222", nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, repo.CountByAccountID(accountID, PurposeEmailVerification))
}

func TestPurgeCodes(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCodeRepository()
	clock := newTestClock()
	svc := NewCodeService(repo, WithNowFunc(clock.Now))
	accountID := uuid.New()

	_, err := svc.Generate(ctx, accountID, PurposePasswordReset)
	require.NoError(t, err)
	clock.Advance(DefaultCodeTTL + time.Second)
	_, err = svc.Generate(ctx, accountID, PurposePasswordReset)
	require.NoError(t, err)

	require.Equal(t, 2, repo.CountByAccountID(accountID, PurposePasswordReset))
	require.NoError(t, svc.PurgeCodes(ctx, accountID, PurposePasswordReset))
	assert.Equal(t, 0, repo.CountByAccountID(accountID, PurposePasswordReset))
}
