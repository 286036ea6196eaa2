package password

import (
	"strings"
	"unicode"

	autherr "github.com/tienda-labs/storeauth/pkg/errors"
)

// PasswordPolicy defines the requirements for password complexity
type PasswordPolicy struct {
	MinLength          int
	MaxLength          int
	RequireUppercase   bool
	RequireDigit       bool
	RequireSpecialChar bool
}

// DefaultPasswordPolicy returns the registration password policy: 8-20
// characters with at least one uppercase letter, one digit, and one
// special character.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:          8,
		MaxLength:          20,
		RequireUppercase:   true,
		RequireDigit:       true,
		RequireSpecialChar: true,
	}
}

const specialChars = `!@#$%^&*()_+[]{};':"\|,.<>/?-`

// Check validates a password against the policy
func (p *PasswordPolicy) Check(password string) error {
	if len(password) < p.MinLength {
		return autherr.Newf(autherr.ErrCodePasswordComplexity, "password must be at least %d characters", p.MinLength)
	}
	if p.MaxLength > 0 && len(password) > p.MaxLength {
		return autherr.Newf(autherr.ErrCodePasswordComplexity, "password must be at most %d characters", p.MaxLength)
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if p.RequireUppercase && !hasUpper {
		return autherr.New(autherr.ErrCodePasswordComplexity, "password must contain an uppercase letter")
	}
	if p.RequireDigit && !hasDigit {
		return autherr.New(autherr.ErrCodePasswordComplexity, "password must contain a digit")
	}
	if p.RequireSpecialChar && !hasSpecial {
		return autherr.New(autherr.ErrCodePasswordComplexity, "password must contain a special character")
	}
	return nil
}
