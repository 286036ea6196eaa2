package tokengenerator

import "time"

// Session lifetimes. A remembered session outlives the default browser
// session by a day, not indefinitely.
const (
	DefaultSessionExpiry    = 1 * time.Hour
	RememberedSessionExpiry = 24 * time.Hour
)

// SessionToken is a signed token plus its expiry
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenService issues session tokens for authenticated accounts
type TokenService struct {
	generator TokenGenerator
}

// NewTokenService creates a new TokenService
func NewTokenService(generator TokenGenerator) *TokenService {
	return &TokenService{generator: generator}
}

// IssueSessionToken signs a session token for the account. Remembered
// sessions get the extended lifetime.
func (s *TokenService) IssueSessionToken(accountID, displayName, email, role string, remember bool) (SessionToken, error) {
	expiry := DefaultSessionExpiry
	if remember {
		expiry = RememberedSessionExpiry
	}

	token, expiresAt, err := s.generator.GenerateToken(accountID, expiry, email, displayName, role)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: token, ExpiresAt: expiresAt}, nil
}
