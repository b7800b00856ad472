package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersYAML = `
credentials:
  usernames:
    jsmith:
      email: jsmith@example.com
      name: John Smith
      password: $2b$12$abcdefghijklmnopqrstuuN7bV8y1q1u7cQ0w2sNf3H6o4x9bLxS
    rbriggs:
      email: rbriggs@example.com
      name: Rebecca Briggs
      password: $2b$12$abcdefghijklmnopqrstuuN7bV8y1q1u7cQ0w2sNf3H6o4x9bLxS
cookie:
  name: news_app_cookie_test
  key: abc123
  expiry_days: 7
`

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOGIN_SHEET_TAB", "")
	t.Setenv("LOGIN_RATE_LIMIT", "")
	t.Setenv("LOGIN_SHEET_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "movie_app", cfg.LoginSheetTab)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.False(t, cfg.SheetsEnabled())
}

func TestLoadRejectsBadRateLimit(t *testing.T) {
	t.Setenv("LOGIN_RATE_LIMIT", "lots")

	_, err := Load()
	assert.Error(t, err)
}

func TestSheetsEnabled(t *testing.T) {
	cfg := &Config{ServiceAccountFile: "sa.json", LoginSheetID: "sheet"}
	assert.True(t, cfg.SheetsEnabled())

	cfg.LoginSheetID = ""
	assert.False(t, cfg.SheetsEnabled())
}

func TestParseUsers(t *testing.T) {
	f, err := ParseUsers([]byte(usersYAML), "")
	require.NoError(t, err)

	require.Len(t, f.Credentials.Usernames, 2)
	u := f.Credentials.Usernames["jsmith"]
	assert.Equal(t, "jsmith", u.Username)
	assert.Equal(t, "John Smith", u.Name)
	assert.Equal(t, "news_app_cookie_test", f.Cookie.Name)
	assert.Equal(t, "abc123", f.Cookie.Key)
	assert.Equal(t, 7.0, f.Cookie.ExpiryDays)
}

func TestParseUsersCookieDefaults(t *testing.T) {
	data := `
credentials:
  usernames:
    jsmith:
      name: John Smith
      password: hash
`
	f, err := ParseUsers([]byte(data), "from-env")
	require.NoError(t, err)

	assert.Equal(t, defaultCookieName, f.Cookie.Name)
	assert.Equal(t, "from-env", f.Cookie.Key)
	assert.Equal(t, float64(defaultCookieExpiryDays), f.Cookie.ExpiryDays)
}

func TestParseUsersErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "credentials: {}\ncookie: {key: k}\n"},
		{"no password", "credentials:\n  usernames:\n    a:\n      name: A\ncookie: {key: k}\n"},
		{"no key", "credentials:\n  usernames:\n    a:\n      password: h\n"},
		{"not yaml", "credentials: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUsers([]byte(tt.data), "")
			assert.Error(t, err)
		})
	}
}

func TestLoadUsersFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(usersYAML), 0o600))

	f, err := LoadUsers(path, "")
	require.NoError(t, err)
	assert.Contains(t, f.Credentials.Usernames, "rbriggs")

	_, err = LoadUsers(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}
