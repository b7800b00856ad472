// Package auth checks usernames and passwords against the credentials file
// and issues the remember-me cookie token.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/1rvyn/movie-tier-predictor/models"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("username/password is incorrect")
)

// Authenticator holds the allowed users.
type Authenticator struct {
	users map[string]models.User
}

func NewAuthenticator(users map[string]models.User) *Authenticator {
	return &Authenticator{users: users}
}

// Login returns the user when the password matches its hash.
func (a *Authenticator) Login(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, ErrMissingCredentials
	}

	u, ok := a.users[username]
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}

	match, err := VerifyPassword(u.Password, password)
	if err != nil {
		return models.User{}, fmt.Errorf("user %q: %w", username, err)
	}
	if !match {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup finds a user still present in the credentials file.
func (a *Authenticator) Lookup(username string) (models.User, bool) {
	u, ok := a.users[username]
	return u, ok
}
