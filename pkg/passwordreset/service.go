package passwordreset

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/tienda-labs/storeauth/pkg/account"
	autherr "github.com/tienda-labs/storeauth/pkg/errors"
	"github.com/tienda-labs/storeauth/pkg/notice"
	"github.com/tienda-labs/storeauth/pkg/notification"
	"github.com/tienda-labs/storeauth/pkg/password"
	"github.com/tienda-labs/storeauth/pkg/verificationcode"
)

// RecoveryMessage is returned for every recovery request, whether or not
// the email maps to an account that received a code. It keeps the
// endpoint from confirming which emails are registered.
const RecoveryMessage = "If an account with this email exists, a recovery code has been sent."

// PasswordResetService runs the recover-then-reset flow: a 6-digit code
// is mailed to the account and, once validated, authorizes one credential
// rotation.
type PasswordResetService struct {
	accountRepo         account.AccountRepository
	codeService         *verificationcode.CodeService
	passwordManager     *password.PasswordManager
	notificationManager *notification.NotificationManager
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(
	accountRepo account.AccountRepository,
	codeService *verificationcode.CodeService,
	passwordManager *password.PasswordManager,
	notificationManager *notification.NotificationManager,
) *PasswordResetService {
	return &PasswordResetService{
		accountRepo:         accountRepo,
		codeService:         codeService,
		passwordManager:     passwordManager,
		notificationManager: notificationManager,
	}
}

// RecoverPassword issues a password reset code and mails it.
//
// Unknown emails and unconfirmed accounts get the generic message with
// no code issued. Throttling and delivery failures are surfaced: both
// concern a caller who does control the email.
func (s *PasswordResetService) RecoverPassword(ctx context.Context, email string) (string, error) {
	acct, err := s.accountRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == account.ErrAccountNotFound {
			slog.Info("Password recovery for unknown email")
			return RecoveryMessage, nil
		}
		slog.Error("Failed to look up account", "err", err)
		return "", autherr.InternalWrap(err, "failed to look up account")
	}
	if !acct.Confirmed {
		slog.Info("Password recovery for unconfirmed account", "account_id", acct.ID)
		return RecoveryMessage, nil
	}

	code, err := s.codeService.Generate(ctx, acct.ID, verificationcode.PurposePasswordReset)
	if err != nil {
		return "", err
	}

	err = s.notificationManager.Send(notice.PasswordRecoveryCodeNotice, notification.EmailSystem, notification.NotificationData{
		To: acct.Email,
		Data: map[string]string{
			"Name":       acct.DisplayName(),
			"Code":       code,
			"TTLMinutes": strconv.Itoa(int(s.codeService.TTL().Minutes())),
		},
	})
	if err != nil {
		slog.Error("Failed to send password recovery email", "account_id", acct.ID, "err", err)
		return "", autherr.Wrap(err, autherr.ErrCodeDeliveryFailure, "failed to send recovery email")
	}

	return RecoveryMessage, nil
}

// ResetPassword validates the recovery code and rotates the credential.
//
// Exhausting the attempt limit purges the outstanding reset codes and
// nothing else; unlike email verification, a confirmed account is never
// deleted over a failed reset.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	acct, err := s.accountRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == account.ErrAccountNotFound {
			return autherr.New(autherr.ErrCodeAccountNotFound, "no account with this email")
		}
		slog.Error("Failed to look up account", "err", err)
		return autherr.InternalWrap(err, "failed to look up account")
	}
	if !acct.Confirmed {
		return autherr.New(autherr.ErrCodeNotConfirmed, "email must be verified before resetting the password")
	}

	// Policy first: a rejected password must not consume the code
	if err := s.passwordManager.CheckPolicy(newPassword); err != nil {
		return err
	}

	// Validate already purges the reset codes when the attempt limit is
	// hit, so no extra lockout action is needed here.
	if err := s.codeService.Validate(ctx, acct.ID, verificationcode.PurposePasswordReset, code, nil); err != nil {
		return err
	}

	artifact, err := s.passwordManager.GenerateResetArtifact(ctx, acct.ID)
	if err != nil {
		slog.Error("Failed to authorize password rotation", "account_id", acct.ID, "err", err)
		return autherr.InternalWrap(err, "failed to reset password")
	}

	if err := s.passwordManager.ResetPassword(ctx, acct.ID, artifact, newPassword); err != nil {
		slog.Error("Failed to rotate credential", "account_id", acct.ID, "err", err)
		return autherr.InternalWrap(err, "failed to reset password")
	}

	slog.Info("Password reset", "account_id", acct.ID)
	return nil
}
