package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by a session token. Subject holds the account id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenGenerator signs and parses session tokens
type TokenGenerator interface {
	GenerateToken(subject string, expiry time.Duration, email, name, role string) (string, time.Time, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// JwtTokenGenerator implements the TokenGenerator interface with
// HS256 symmetric signing
type JwtTokenGenerator struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// JwtTokenGeneratorOption configures a JwtTokenGenerator
type JwtTokenGeneratorOption func(*JwtTokenGenerator)

// WithIssuer sets the iss claim on generated tokens
func WithIssuer(issuer string) JwtTokenGeneratorOption {
	return func(g *JwtTokenGenerator) {
		g.issuer = issuer
	}
}

// WithAudience sets the aud claim on generated tokens
func WithAudience(audience string) JwtTokenGeneratorOption {
	return func(g *JwtTokenGenerator) {
		g.audience = audience
	}
}

// WithNowFunc overrides the clock, for tests
func WithNowFunc(now func() time.Time) JwtTokenGeneratorOption {
	return func(g *JwtTokenGenerator) {
		g.now = now
	}
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator. The secret must
// not be empty; a service started without one cannot issue or verify
// sessions.
func NewJwtTokenGenerator(secret string, opts ...JwtTokenGeneratorOption) (*JwtTokenGenerator, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	g := &JwtTokenGenerator{
		secret: []byte(secret),
		now:    func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// GenerateToken creates a signed token for the subject with the given lifetime
func (g *JwtTokenGenerator) GenerateToken(subject string, expiry time.Duration, email, name, role string) (string, time.Time, error) {
	now := g.now()
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    g.issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
		},
	}
	if g.audience != "" {
		claims.Audience = jwt.ClaimStrings{g.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(g.secret)
	if err != nil {
		slog.Error("Failed to sign session token", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a token string
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		slog.Error("Failed to parse session token", "err", err)
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}
