// Package identity carries the authenticated user handed out by the
// backend's token issuance. It never refreshes or stores credentials.
package identity

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
)

var (
	ErrMissing = errors.New("identity is missing a user id or credential")
	ErrExpired = errors.New("credential has expired")
)

type User struct {
	ID       domain.ID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type Identity struct {
	UserID     domain.ID
	Credential string
}

func New(user User, credential string) Identity {
	return Identity{UserID: user.ID, Credential: credential}
}

// Check reports whether the identity can be used for an authenticated write
// at the given time. Credentials that are not JWTs, or carry no exp claim,
// are left for the backend to judge.
func (i Identity) Check(now time.Time) error {
	if i.UserID.IsZero() || i.Credential == "" {
		return ErrMissing
	}

	if exp, ok := ExpiresAt(i.Credential); ok && !now.Before(exp) {
		return ErrExpired
	}

	return nil
}

// ExpiresAt reads the exp claim without verifying the signature; only the
// backend holds the signing key.
func ExpiresAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(exp), 0), true
}
