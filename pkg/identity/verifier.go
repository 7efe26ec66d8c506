package identity

import (
	"fmt"
	"strings"

	"linguabridge-gateway/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the gateway needs from a verified access token.
type Claims struct {
	UserID    string
	Email     string
	SessionID string
}

type tokenClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 access tokens locally with the provider's JWT secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, apperr.ErrAuthRequired
	}

	var tc tokenClaims
	token, err := jwt.ParseWithClaims(raw, &tc, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrAuthRequired, err)
	}
	if !token.Valid || tc.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", apperr.ErrAuthRequired)
	}

	c := &Claims{UserID: tc.Subject, Email: tc.Email, SessionID: tc.SessionID}
	if c.SessionID == "" {
		c.SessionID = tc.Subject
	}
	return c, nil
}
