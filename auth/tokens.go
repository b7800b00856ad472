package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by the remember-me cookie.
type Claims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies remember-me cookies.
type TokenIssuer struct {
	key    []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenIssuer(key string, expiryDays float64) *TokenIssuer {
	return &TokenIssuer{
		key:    []byte(key),
		expiry: time.Duration(expiryDays * float64(24*time.Hour)),
		now:    time.Now,
	}
}

// Expiry is how long an issued cookie stays valid.
func (t *TokenIssuer) Expiry() time.Duration {
	return t.expiry
}

func (t *TokenIssuer) Issue(username, name string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.expiry)

	claims := Claims{
		Username: username,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign cookie token: %w", err)
	}
	return signed, exp, nil
}

func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid cookie token: %w", err)
	}
	if !token.Valid || claims.Username == "" {
		return nil, errors.New("invalid cookie token claims")
	}
	return claims, nil
}
