// Package verificationcode issues and validates the short-lived 6-digit
// codes used for email confirmation and password recovery.
//
// Codes are scoped by purpose (email verification vs password reset),
// expire after a configurable TTL (3 minutes by default), and carry an
// attempt counter. Issuing a new code while the previous one is still
// active is refused with a throttle error that reports the remaining wait.
// Five failed attempts purge the codes and trigger a caller-supplied
// lockout action; the engine itself never touches accounts.
//
// Basic usage:
//
//	repo := verificationcode.NewPostgresCodeRepository(pool)
//	svc := verificationcode.NewCodeService(repo,
//		verificationcode.WithCodeTTL(3*time.Minute),
//	)
//
//	code, err := svc.Generate(ctx, accountID, verificationcode.PurposeEmailVerification)
//	// deliver code by email ...
//
//	err = svc.Validate(ctx, accountID, verificationcode.PurposeEmailVerification, submitted,
//		func(ctx context.Context) error { return accounts.DeleteAccount(ctx, accountID) })
//
// The random source and clock are injectable through WithCodeGenerator and
// WithNowFunc so generation and expiry are deterministic under test.
package verificationcode
