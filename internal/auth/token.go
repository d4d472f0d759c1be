package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is where the HTTP middleware stores the verified Identity.
const ContextKey = "identity"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

type identityClaims struct {
	Email  string   `json:"email"`
	Emails []string `json:"emails,omitempty"`
	Name   string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenParser verifies HS256 tokens issued by the identity provider.
type TokenParser struct {
	secret []byte
	issuer string
}

func NewTokenParser(secret, issuer string) *TokenParser {
	return &TokenParser{secret: []byte(secret), issuer: issuer}
}

// FromHeader strips the "Bearer " prefix of an Authorization header value.
func FromHeader(header string) (string, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return "", ErrMissingToken
	}
	return raw, nil
}

func (p *TokenParser) Parse(raw string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	var c identityClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return Identity{
		ID:             c.Subject,
		PrimaryEmail:   c.Email,
		FallbackEmails: c.Emails,
		DisplayName:    c.Name,
	}, nil
}

// Issue signs a token for id. Used by local tooling and tests in place of the
// hosted provider.
func (p *TokenParser) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := identityClaims{
		Email:  id.PrimaryEmail,
		Emails: id.FallbackEmails,
		Name:   id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
}
