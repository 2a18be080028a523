package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"groupchat/domain"
	"groupchat/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues opaque identity tokens and resolves them back.
// The signing secret comes from configuration, never from source.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed JWT for the identity using HS256.
func (m *TokenManager) Issue(identity domain.Identity) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:   uint64(identity.UserID),
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "groupchat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Resolve parses and validates the signature and expiration of a token
// and returns the identity it carries. Callers treat failure as
// "proceed unauthenticated", never as a hard rejection.
func (m *TokenManager) Resolve(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return domain.Identity{}, errors.ErrInvalidToken
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, errors.ErrInvalidToken
	}
	return domain.Identity{
		UserID:   domain.UserID(claims.UserID),
		Username: claims.Username,
	}, nil
}
