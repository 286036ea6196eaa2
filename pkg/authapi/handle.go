package authapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"regexp"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/tienda-labs/storeauth/pkg/emailverification"
	autherr "github.com/tienda-labs/storeauth/pkg/errors"
	"github.com/tienda-labs/storeauth/pkg/loginflow"
	"github.com/tienda-labs/storeauth/pkg/passwordreset"
	"github.com/tienda-labs/storeauth/pkg/signup"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Handle carries the services behind the auth endpoints
type Handle struct {
	registrationService      *signup.RegistrationService
	loginFlowService         *loginflow.LoginFlowService
	emailVerificationService *emailverification.EmailVerificationService
	passwordResetService     *passwordreset.PasswordResetService
}

// NewHandle creates a new Handle
func NewHandle(
	registrationService *signup.RegistrationService,
	loginFlowService *loginflow.LoginFlowService,
	emailVerificationService *emailverification.EmailVerificationService,
	passwordResetService *passwordreset.PasswordResetService,
) *Handle {
	return &Handle{
		registrationService:      registrationService,
		loginFlowService:         loginFlowService,
		emailVerificationService: emailVerificationService,
		passwordResetService:     passwordResetService,
	}
}

// Register handles POST /register
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		renderBadRequest(w, r, "a valid email is required")
		return
	}
	if req.Password != req.ConfirmPassword {
		renderBadRequest(w, r, "passwords do not match")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		renderBadRequest(w, r, "first and last name are required")
		return
	}

	result, err := h.registrationService.RegisterAccount(r.Context(), signup.RegisterAccountRequest{
		Email:       req.Email,
		Password:    req.Password,
		NationalID:  req.NationalID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      req.Gender,
		BirthDate:   req.BirthDate,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, GenericResponse{Message: result.Message})
}

// Login handles POST /login
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}
	if !validEmail(req.Email) || req.Password == "" {
		renderBadRequest(w, r, "email and password are required")
		return
	}

	result, err := h.loginFlowService.Login(r.Context(), loginflow.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		Remember: req.Remember,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, GenericResponse{
		Message: "login successful",
		Data: LoginData{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
			Name:      result.Name,
			Email:     result.Email,
			Role:      result.Role,
		},
	})
}

// VerifyEmail handles POST /verify-email
func (h *Handle) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		renderBadRequest(w, r, "a valid email is required")
		return
	}
	if !codePattern.MatchString(req.Code) {
		renderBadRequest(w, r, "code must be 6 digits")
		return
	}

	if err := h.emailVerificationService.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, GenericResponse{Message: "email verified"})
}

// ResendVerificationCode handles POST /resend-email-verification-code
func (h *Handle) ResendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req ResendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		renderBadRequest(w, r, "a valid email is required")
		return
	}

	if err := h.emailVerificationService.ResendVerificationCode(r.Context(), req.Email); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, GenericResponse{Message: "verification code sent"})
}

// RecoverPassword handles POST /recover-password
func (h *Handle) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	var req RecoverPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		renderBadRequest(w, r, "a valid email is required")
		return
	}

	message, err := h.passwordResetService.RecoverPassword(r.Context(), req.Email)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, GenericResponse{Message: message})
}

// ResetPassword handles PATCH /reset-password
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		renderBadRequest(w, r, "a valid email is required")
		return
	}
	if !codePattern.MatchString(req.Code) {
		renderBadRequest(w, r, "code must be 6 digits")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		renderBadRequest(w, r, "passwords do not match")
		return
	}

	if err := h.passwordResetService.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, GenericResponse{Message: "password reset"})
}

// Me handles GET /me. The verifier middleware has already checked the
// token; this just echoes its claims.
func (h *Handle) Me(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "unauthorized"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, GenericResponse{
		Message: "ok",
		Data: MeData{
			AccountID: stringClaim(claims, "sub"),
			Email:     stringClaim(claims, "email"),
			Name:      stringClaim(claims, "name"),
			Role:      stringClaim(claims, "role"),
		},
	})
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func renderBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: message, Code: string(autherr.ErrCodeValidation)})
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *autherr.Error
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: "internal error"}

	if errors.As(err, &appErr) {
		status = appErr.HTTPStatusCode()
		resp = ErrorResponse{
			Error:   appErr.Message,
			Code:    string(appErr.Code),
			Details: appErr.Details,
		}
	} else {
		slog.Error("Unclassified error reached the API layer", "err", err)
	}

	if status >= http.StatusInternalServerError {
		// never leak internals
		resp = ErrorResponse{Error: "internal error", Code: string(autherr.ErrCodeInternal)}
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
