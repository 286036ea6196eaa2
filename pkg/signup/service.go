package signup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tienda-labs/storeauth/pkg/account"
	autherr "github.com/tienda-labs/storeauth/pkg/errors"
	"github.com/tienda-labs/storeauth/pkg/notice"
	"github.com/tienda-labs/storeauth/pkg/notification"
	"github.com/tienda-labs/storeauth/pkg/password"
	"github.com/tienda-labs/storeauth/pkg/verificationcode"
)

// RegistrationMessage is returned to every successful registration.
// It never reveals whether the verification email was delivered.
const RegistrationMessage = "Account created. Check your email for a verification code."

// RegistrationService handles account registration business logic
type RegistrationService struct {
	accountRepo              account.AccountRepository
	passwordManager          *password.PasswordManager
	codeService              *verificationcode.CodeService
	notificationManager      *notification.NotificationManager
	requireEmailVerification bool
	defaultRole              string
}

// RegistrationServiceOption is a functional option for configuring RegistrationService
type RegistrationServiceOption func(*RegistrationService)

// WithRequireEmailVerification controls whether new accounts start
// unconfirmed and receive a verification code. When disabled, accounts
// are created confirmed and no code is issued.
func WithRequireEmailVerification(required bool) RegistrationServiceOption {
	return func(s *RegistrationService) {
		s.requireEmailVerification = required
	}
}

// WithDefaultRole sets the role assigned to new accounts
func WithDefaultRole(role string) RegistrationServiceOption {
	return func(s *RegistrationService) {
		s.defaultRole = role
	}
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	accountRepo account.AccountRepository,
	passwordManager *password.PasswordManager,
	codeService *verificationcode.CodeService,
	notificationManager *notification.NotificationManager,
	opts ...RegistrationServiceOption,
) *RegistrationService {
	s := &RegistrationService{
		accountRepo:              accountRepo,
		passwordManager:          passwordManager,
		codeService:              codeService,
		notificationManager:      notificationManager,
		requireEmailVerification: true,
		defaultRole:              account.DefaultRole,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RegisterAccountRequest represents an account registration request
type RegisterAccountRequest struct {
	Email       string
	Password    string
	NationalID  string
	FirstName   string
	LastName    string
	Gender      string
	BirthDate   string
	PhoneNumber string
}

// RegisterAccountResult represents the result of account registration
type RegisterAccountResult struct {
	AccountID uuid.UUID
	Email     string
	Confirmed bool
	Message   string
}

// RegisterAccount creates a new account with the default role, stores the
// credential, and, when email verification is required, issues a
// verification code and mails it. Delivery failures are logged and
// swallowed; the account keeps existing and the code can be resent.
func (s *RegistrationService) RegisterAccount(ctx context.Context, req RegisterAccountRequest) (RegisterAccountResult, error) {
	exists, err := s.accountRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		slog.Error("Failed to check email uniqueness", "err", err)
		return RegisterAccountResult{}, autherr.InternalWrap(err, "failed to check email")
	}
	if exists {
		return RegisterAccountResult{}, autherr.New(autherr.ErrCodeAlreadyExists, "an account with this email already exists")
	}

	if req.NationalID != "" {
		exists, err = s.accountRepo.ExistsByNationalID(ctx, req.NationalID)
		if err != nil {
			slog.Error("Failed to check national id uniqueness", "err", err)
			return RegisterAccountResult{}, autherr.InternalWrap(err, "failed to check national id")
		}
		if exists {
			return RegisterAccountResult{}, autherr.New(autherr.ErrCodeAlreadyExists, "an account with this national id already exists")
		}
	}

	birthDate, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return RegisterAccountResult{}, autherr.New(autherr.ErrCodeValidation, "birth date must be in YYYY-MM-DD format")
	}

	acct, err := s.accountRepo.CreateAccount(ctx, account.CreateAccountParams{
		Email:       req.Email,
		NationalID:  req.NationalID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      req.Gender,
		BirthDate:   birthDate,
		PhoneNumber: req.PhoneNumber,
		Confirmed:   !s.requireEmailVerification,
	})
	if err != nil {
		slog.Error("Failed to create account", "err", err)
		return RegisterAccountResult{}, autherr.InternalWrap(err, "failed to create account")
	}

	// The credential is stored after the account row so the foreign key
	// holds. A policy rejection rolls the account back.
	if err := s.passwordManager.CreatePassword(ctx, acct.ID, req.Password); err != nil {
		if delErr := s.accountRepo.DeleteAccount(ctx, acct.ID); delErr != nil {
			slog.Error("Failed to roll back account after password rejection", "account_id", acct.ID, "err", delErr)
		}
		return RegisterAccountResult{}, err
	}

	role, err := s.accountRepo.EnsureRole(ctx, s.defaultRole)
	if err != nil {
		slog.Error("Failed to ensure default role", "role", s.defaultRole, "err", err)
		return RegisterAccountResult{}, autherr.InternalWrap(err, "failed to assign role")
	}
	if err := s.accountRepo.AssignRole(ctx, acct.ID, role.ID); err != nil {
		slog.Error("Failed to assign default role", "account_id", acct.ID, "role", s.defaultRole, "err", err)
		return RegisterAccountResult{}, autherr.InternalWrap(err, "failed to assign role")
	}

	if s.requireEmailVerification {
		s.issueAndSendVerificationCode(ctx, acct)
	}

	slog.Info("Account registered", "account_id", acct.ID, "confirmed", acct.Confirmed)
	return RegisterAccountResult{
		AccountID: acct.ID,
		Email:     acct.Email,
		Confirmed: acct.Confirmed,
		Message:   RegistrationMessage,
	}, nil
}

// issueAndSendVerificationCode is best effort: a throttled or failed
// issue, or a failed send, never fails the registration.
func (s *RegistrationService) issueAndSendVerificationCode(ctx context.Context, acct account.Account) {
	code, err := s.codeService.Generate(ctx, acct.ID, verificationcode.PurposeEmailVerification)
	if err != nil {
		slog.Error("Failed to issue verification code on registration", "account_id", acct.ID, "err", err)
		return
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
	}
}

func parseBirthDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid birth date: %w", err)
	}
	return t, nil
}
