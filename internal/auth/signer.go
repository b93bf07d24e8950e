package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ectows/ectows/pkg/protocol"
)

var (
	ErrNoSigningSecret = errors.New("signing secret is empty")
	ErrInvalidToken    = errors.New("invalid token")
)

// Claims are the JWT claims of a signed role token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 role tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a signer using secret as the HMAC key.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSigningSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign mints a token granting role to subject. A zero ttl never expires.
func (s *Signer) Sign(role protocol.Role, subject string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.New().String(),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates token and returns the role it grants.
func (s *Signer) Verify(tokenStr string) (protocol.Role, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuedAt())
	if err != nil {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}
	role, err := protocol.ParseRole(claims.Role)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return role, nil
}
