package loginflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tienda-labs/storeauth/pkg/account"
	autherr "github.com/tienda-labs/storeauth/pkg/errors"
	"github.com/tienda-labs/storeauth/pkg/password"
	"github.com/tienda-labs/storeauth/pkg/tokengenerator"
)

// LoginFlowService authenticates accounts and issues session tokens
type LoginFlowService struct {
	accountRepo     account.AccountRepository
	passwordManager *password.PasswordManager
	tokenService    *tokengenerator.TokenService
}

// NewLoginFlowService creates a new LoginFlowService
func NewLoginFlowService(
	accountRepo account.AccountRepository,
	passwordManager *password.PasswordManager,
	tokenService *tokengenerator.TokenService,
) *LoginFlowService {
	return &LoginFlowService{
		accountRepo:     accountRepo,
		passwordManager: passwordManager,
		tokenService:    tokenService,
	}
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string
	Password string
	Remember bool
}

// LoginResult is the issued session plus the claims it carries
type LoginResult struct {
	AccountID uuid.UUID
	Email     string
	Name      string
	Role      string
	Token     string
	ExpiresAt time.Time
}

// Login checks the credentials and issues a session token.
//
// Unknown emails and wrong passwords get the same answer, so the
// endpoint never confirms which emails are registered. Unconfirmed
// accounts are told to verify first.
func (s *LoginFlowService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	acct, err := s.accountRepo.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		if err == account.ErrAccountNotFound {
			return LoginResult{}, autherr.New(autherr.ErrCodeInvalidCredentials, "invalid email or password")
		}
		slog.Error("Failed to look up account", "err", err)
		return LoginResult{}, autherr.InternalWrap(err, "failed to look up account")
	}

	ok, err := s.passwordManager.CheckPassword(ctx, acct.ID, req.Password)
	if err != nil {
		slog.Error("Failed to check password", "account_id", acct.ID, "err", err)
		return LoginResult{}, autherr.InternalWrap(err, "failed to check password")
	}
	if !ok {
		slog.Warn("Login with wrong password", "account_id", acct.ID)
		return LoginResult{}, autherr.New(autherr.ErrCodeInvalidCredentials, "invalid email or password")
	}

	if !acct.Confirmed {
		return LoginResult{}, autherr.New(autherr.ErrCodeNotConfirmed, "verify your email before signing in")
	}

	role, err := s.accountRepo.GetPrimaryRole(ctx, acct.ID)
	if err != nil {
		slog.Error("Failed to resolve role", "account_id", acct.ID, "err", err)
		return LoginResult{}, autherr.InternalWrap(err, "failed to resolve role")
	}

	session, err := s.tokenService.IssueSessionToken(acct.ID.String(), acct.DisplayName(), acct.Email, role, req.Remember)
	if err != nil {
		slog.Error("Failed to issue session token", "account_id", acct.ID, "err", err)
		return LoginResult{}, autherr.InternalWrap(err, "failed to issue session token")
	}

	slog.Info("Login succeeded", "account_id", acct.ID, "remember", req.Remember)
	return LoginResult{
		AccountID: acct.ID,
		Email:     acct.Email,
		Name:      acct.DisplayName(),
		Role:      role,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}
