package authapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

// Routes mounts the auth endpoints. Everything is public except /me,
// which sits behind the JWT verifier.
func Routes(handle *Handle, tokenAuth *jwtauth.JWTAuth) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", handle.Register)
	r.Post("/login", handle.Login)
	r.Post("/verify-email", handle.VerifyEmail)
	r.Post("/resend-email-verification-code", handle.ResendVerificationCode)
	r.Post("/recover-password", handle.RecoverPassword)
	r.Patch("/reset-password", handle.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Get("/me", handle.Me)
	})

	return r
}
