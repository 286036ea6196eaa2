package emailverification

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/tienda-labs/storeauth/pkg/account"
	autherr "github.com/tienda-labs/storeauth/pkg/errors"
	"github.com/tienda-labs/storeauth/pkg/notice"
	"github.com/tienda-labs/storeauth/pkg/notification"
	"github.com/tienda-labs/storeauth/pkg/verificationcode"
)

// EmailVerificationService confirms account email addresses with
// short-lived 6-digit codes.
type EmailVerificationService struct {
	accountRepo         account.AccountRepository
	codeService         *verificationcode.CodeService
	notificationManager *notification.NotificationManager
}

// NewEmailVerificationService creates a new EmailVerificationService
func NewEmailVerificationService(
	accountRepo account.AccountRepository,
	codeService *verificationcode.CodeService,
	notificationManager *notification.NotificationManager,
) *EmailVerificationService {
	return &EmailVerificationService{
		accountRepo:         accountRepo,
		codeService:         codeService,
		notificationManager: notificationManager,
	}
}

// VerifyEmail confirms the account when the submitted code matches the
// most recent active verification code.
//
// Exhausting the attempt limit deletes the account outright: an
// unconfirmed account that cannot prove its email has no business
// persisting, and deleting it frees the email for a fresh registration.
func (s *EmailVerificationService) VerifyEmail(ctx context.Context, email, code string) error {
	acct, err := s.accountRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == account.ErrAccountNotFound {
			return autherr.New(autherr.ErrCodeAccountNotFound, "no account with this email")
		}
		slog.Error("Failed to look up account", "err", err)
		return autherr.InternalWrap(err, "failed to look up account")
	}
	if acct.Confirmed {
		return autherr.New(autherr.ErrCodeAlreadyConfirmed, "email is already verified")
	}

	onLockout := func(ctx context.Context) error {
		slog.Warn("Verification attempts exhausted, deleting unconfirmed account", "account_id", acct.ID)
		return s.accountRepo.DeleteAccount(ctx, acct.ID)
	}

	err = s.codeService.Validate(ctx, acct.ID, verificationcode.PurposeEmailVerification, code, onLockout)
	if err != nil {
		return err
	}

	if err := s.accountRepo.SetConfirmed(ctx, acct.ID, true); err != nil {
		slog.Error("Failed to confirm account", "account_id", acct.ID, "err", err)
		return autherr.InternalWrap(err, "failed to confirm account")
	}

	s.sendWelcome(ctx, acct)

	slog.Info("Email verified", "account_id", acct.ID)
	return nil
}

// ResendVerificationCode issues a fresh code and mails it. Unlike the
// best-effort send at registration, a delivery failure here is surfaced:
// the caller asked for exactly this email.
func (s *EmailVerificationService) ResendVerificationCode(ctx context.Context, email string) error {
	acct, err := s.accountRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == account.ErrAccountNotFound {
			return autherr.New(autherr.ErrCodeAccountNotFound, "no account with this email")
		}
		slog.Error("Failed to look up account", "err", err)
		return autherr.InternalWrap(err, "failed to look up account")
	}
	if acct.Confirmed {
		return autherr.New(autherr.ErrCodeAlreadyConfirmed, "email is already verified")
	}

	code, err := s.codeService.Generate(ctx, acct.ID, verificationcode.PurposeEmailVerification)
	if err != nil {
		return err
	}

	err = s.notificationManager.Send(notice.EmailVerificationCodeNotice, notification.EmailSystem, notification.NotificationData{
		To: acct.Email,
		Data: map[string]string{
			"Name":       acct.DisplayName(),
			"Code":       code,
			"TTLMinutes": strconv.Itoa(int(s.codeService.TTL().Minutes())),
		},
	})
	if err != nil {
		slog.Error("Failed to send verification code email", "account_id", acct.ID, "err", err)
		return autherr.Wrap(err, autherr.ErrCodeDeliveryFailure, "failed to send verification email")
	}

	return nil
}

func (s *EmailVerificationService) sendWelcome(ctx context.Context, acct account.Account) {
	err := s.notificationManager.Send(notice.WelcomeNotice, notification.EmailSystem, notification.NotificationData{
		To: acct.Email,
		Data: map[string]string{
			"Name": acct.DisplayName(),
		},
	})
	if err != nil {
		slog.Error("Failed to send welcome email", "account_id", acct.ID, "err", err)
	}
}
