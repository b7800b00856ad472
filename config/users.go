package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/1rvyn/movie-tier-predictor/models"
	"gopkg.in/yaml.v3"
)

const (
	defaultCookieName       = "movie_app_cookie"
	defaultCookieExpiryDays = 7
)

// CookieConfig controls the remember-me cookie.
type CookieConfig struct {
	Name       string  `yaml:"name"`
	Key        string  `yaml:"key"`
	ExpiryDays float64 `yaml:"expiry_days"`
}

// UsersFile is the allowed_users.yaml layout.
type UsersFile struct {
	Credentials struct {
		Usernames map[string]models.User `yaml:"usernames"`
	} `yaml:"credentials"`
	Cookie CookieConfig `yaml:"cookie"`
}

// LoadUsers parses the credentials file. keyOverride, when set, replaces the
// cookie signing key from the file.
func LoadUsers(path, keyOverride string) (*UsersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	return ParseUsers(data, keyOverride)
}

func ParseUsers(data []byte, keyOverride string) (*UsersFile, error) {
	var f UsersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}

	if len(f.Credentials.Usernames) == 0 {
		return nil, errors.New("users file has no credentials.usernames entries")
	}
	for username, u := range f.Credentials.Usernames {
		if u.Password == "" {
			return nil, fmt.Errorf("user %q has no password hash", username)
		}
		u.Username = username
		f.Credentials.Usernames[username] = u
	}

	if keyOverride != "" {
		f.Cookie.Key = keyOverride
	}
	if f.Cookie.Key == "" {
		return nil, errors.New("cookie signing key is not set (cookie.key or COOKIE_KEY)")
	}
	if f.Cookie.Name == "" {
		f.Cookie.Name = defaultCookieName
	}
	if f.Cookie.ExpiryDays <= 0 {
		f.Cookie.ExpiryDays = defaultCookieExpiryDays
	}
	return &f, nil
}
