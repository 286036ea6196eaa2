package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-labs/storeauth/pkg/account"
	"github.com/tienda-labs/storeauth/pkg/emailverification"
	autherr "github.com/tienda-labs/storeauth/pkg/errors"
	"github.com/tienda-labs/storeauth/pkg/loginflow"
	"github.com/tienda-labs/storeauth/pkg/notice"
	"github.com/tienda-labs/storeauth/pkg/notification"
	"github.com/tienda-labs/storeauth/pkg/password"
	"github.com/tienda-labs/storeauth/pkg/passwordreset"
	"github.com/tienda-labs/storeauth/pkg/signup"
	"github.com/tienda-labs/storeauth/pkg/tokengenerator"
	"github.com/tienda-labs/storeauth/pkg/verificationcode"
)

const testSecret = "test-secret-key-for-unit-tests"

type testServer struct {
	router      http.Handler
	accountRepo *account.InMemoryAccountRepository
	codeRepo    *verificationcode.InMemoryCodeRepository
	codeService *verificationcode.CodeService
	mock        *notification.MockNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	accountRepo := account.NewInMemoryAccountRepository()
	codeRepo := verificationcode.NewInMemoryCodeRepository()
	accountRepo.SetCodePurger(codeRepo)
	codeService := verificationcode.NewCodeService(codeRepo)

	passwords := password.NewPasswordManager(
		password.NewInMemoryCredentialRepository(),
		password.WithHasher(password.NewBcryptHasher(4)),
	)

	mock := &notification.MockNotifier{}
	nm := notification.NewNotificationManager()
	nm.RegisterNotifier(notification.EmailSystem, mock)
	require.NoError(t, notice.RegisterNotices(nm))

	generator, err := tokengenerator.NewJwtTokenGenerator(testSecret)
	require.NoError(t, err)
	tokenService := tokengenerator.NewTokenService(generator)

	handle := NewHandle(
		signup.NewRegistrationService(accountRepo, passwords, codeService, nm),
		loginflow.NewLoginFlowService(accountRepo, passwords, tokenService),
		emailverification.NewEmailVerificationService(accountRepo, codeService, nm),
		passwordreset.NewPasswordResetService(accountRepo, codeService, passwords, nm),
	)

	tokenAuth := jwtauth.New("HS256", []byte(testSecret), nil)

	return &testServer{
		router:      Routes(handle, tokenAuth),
		accountRepo: accountRepo,
		codeRepo:    codeRepo,
		codeService: codeService,
		mock:        mock,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(t *testing.T, email string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/register", RegisterRequest{
		Email:           email,
		Password:        "Valid1!pass",
		ConfirmPassword: "Valid1!pass",
		FirstName:       "Ana",
		LastName:        "Torres",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (ts *testServer) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, ts.mock.SentNotifications)
	code := ts.mock.SentNotifications[len(ts.mock.SentNotifications)-1].Data["Code"]
	require.Regexp(t, `^\d{6}$`, code)
	return code
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/register", RegisterRequest{
		Email:           "ana@example.com",
		Password:        "Valid1!pass",
		ConfirmPassword: "Valid1!pass",
		FirstName:       "Ana",
		LastName:        "Torres",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp GenericResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, signup.RegistrationMessage, resp.Message)
}

func TestRegisterEndpoint_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "Valid1!pass", ConfirmPassword: "Valid1!pass", FirstName: "Ana", LastName: "Torres"}},
		{"password mismatch", RegisterRequest{Email: "ana@example.com", Password: "Valid1!pass", ConfirmPassword: "Other1!pass", FirstName: "Ana", LastName: "Torres"}},
		{"missing name", RegisterRequest{Email: "ana@example.com", Password: "Valid1!pass", ConfirmPassword: "Valid1!pass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/register", tt.req, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterEndpoint_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/register", RegisterRequest{
		Email:           "ana@example.com",
		Password:        "Valid1!pass",
		ConfirmPassword: "Valid1!pass",
		FirstName:       "Ana",
		LastName:        "Torres",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(autherr.ErrCodeAlreadyExists), decodeError(t, rec).Code)
}

func TestVerifyEmailEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")
	code := ts.lastCode(t)

	rec := ts.do(t, http.MethodPost, "/verify-email", VerifyEmailRequest{Email: "ana@example.com", Code: code}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	acct, err := ts.accountRepo.GetAccountByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.True(t, acct.Confirmed)
}

func TestVerifyEmailEndpoint_BadCodeShape(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")

	for _, code := range []string{"", "12345", "1234567", "12345a"} {
		rec := ts.do(t, http.MethodPost, "/verify-email", VerifyEmailRequest{Email: "ana@example.com", Code: code}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestVerifyEmailEndpoint_WrongCode(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")
	code := ts.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	rec := ts.do(t, http.MethodPost, "/verify-email", VerifyEmailRequest{Email: "ana@example.com", Code: wrong}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(autherr.ErrCodeMismatch), decodeError(t, rec).Code)
}

func TestResendEndpoint_Throttled(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")

	// registration already issued an active code
	rec := ts.do(t, http.MethodPost, "/resend-email-verification-code", ResendCodeRequest{Email: "ana@example.com"}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, string(autherr.ErrCodeThrottled), resp.Code)
	assert.Contains(t, resp.Details, "remaining_seconds")
}

func TestLoginEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")
	code := ts.lastCode(t)
	rec := ts.do(t, http.MethodPost, "/verify-email", VerifyEmailRequest{Email: "ana@example.com", Code: code}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/login", LoginRequest{Email: "ana@example.com", Password: "Valid1!pass"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string    `json:"message"`
		Data    LoginData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, "Ana Torres", resp.Data.Name)
	assert.Equal(t, account.DefaultRole, resp.Data.Role)

	// the token opens /me
	rec = ts.do(t, http.MethodGet, "/me", nil, map[string]string{"Authorization": "Bearer " + resp.Data.Token})
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		Data MeData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "ana@example.com", me.Data.Email)
	assert.Equal(t, account.DefaultRole, me.Data.Role)
}

func TestLoginEndpoint_UnconfirmedAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/login", LoginRequest{Email: "ana@example.com", Password: "Valid1!pass"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(autherr.ErrCodeNotConfirmed), decodeError(t, rec).Code)
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")
	code := ts.lastCode(t)
	ts.do(t, http.MethodPost, "/verify-email", VerifyEmailRequest{Email: "ana@example.com", Code: code}, nil)

	rec := ts.do(t, http.MethodPost, "/login", LoginRequest{Email: "ana@example.com", Password: "Wrong1!pass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint_NoToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoverAndResetPasswordEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")
	code := ts.lastCode(t)
	rec := ts.do(t, http.MethodPost, "/verify-email", VerifyEmailRequest{Email: "ana@example.com", Code: code}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/recover-password", RecoverPasswordRequest{Email: "ana@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenericResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, passwordreset.RecoveryMessage, resp.Message)

	resetCode := ts.lastCode(t)
	rec = ts.do(t, http.MethodPatch, "/reset-password", ResetPasswordRequest{
		Email:           "ana@example.com",
		Code:            resetCode,
		NewPassword:     "Rotated2@",
		ConfirmPassword: "Rotated2@",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the new password logs in
	rec = ts.do(t, http.MethodPost, "/login", LoginRequest{Email: "ana@example.com", Password: "Rotated2@"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the old one does not
	rec = ts.do(t, http.MethodPost, "/login", LoginRequest{Email: "ana@example.com", Password: "Valid1!pass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoverPasswordEndpoint_UnknownEmailGenericMessage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/recover-password", RecoverPasswordRequest{Email: "nobody@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenericResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, passwordreset.RecoveryMessage, resp.Message)
	assert.Empty(t, ts.mock.SentNotifications)
}

func TestResetPasswordEndpoint_PasswordMismatch(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPatch, "/reset-password", ResetPasswordRequest{
		Email:           "ana@example.com",
		Code:            "123456",
		NewPassword:     "Rotated2@",
		ConfirmPassword: "Other2@xx",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyEmailEndpoint_LockoutReturnsGone(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com")
	code := ts.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	var rec *httptest.ResponseRecorder
	for i := 0; i < verificationcode.DefaultMaxAttempts; i++ {
		rec = ts.do(t, http.MethodPost, "/verify-email", VerifyEmailRequest{Email: "ana@example.com", Code: wrong}, nil)
	}
	assert.Equal(t, http.StatusGone, rec.Code)

	// the unconfirmed account was deleted with the lockout
	exists, err := ts.accountRepo.ExistsByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}
