package authapi

// GenericResponse is the envelope for every successful response
type GenericResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope for every error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RegisterRequest is the body of POST /register
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	NationalID      string `json:"national_id,omitempty"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Gender          string `json:"gender,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// LoginData is the payload of a successful login
type LoginData struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// VerifyEmailRequest is the body of POST /verify-email
type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResendCodeRequest is the body of POST /resend-email-verification-code
type ResendCodeRequest struct {
	Email string `json:"email"`
}

// RecoverPasswordRequest is the body of POST /recover-password
type RecoverPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of PATCH /reset-password
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Code            string `json:"code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// MeData is the payload of GET /me
type MeData struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}
