package api

import (
	"crypto/subtle"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const expiryLayout = "2006-01-02"

// User is an account allowed to fetch the playlist.
type User struct {
	Username string `mapstructure:"username"`
	// Password is either plain text or a bcrypt hash ("$2...").
	Password string `mapstructure:"password"`
	// Expires is the last valid day, YYYY-MM-DD. Empty means the account never expires.
	Expires        string `mapstructure:"expires"`
	MaxConnections int    `mapstructure:"max-connections"`
}

// CheckPassword reports whether password matches the account.
func (u User) CheckPassword(password string) bool {
	if password == "" {
		return false
	}
	if strings.HasPrefix(u.Password, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// ExpiresAt returns the instant the account stops being valid, the zero time for accounts without expiry.
func (u User) ExpiresAt() time.Time {
	if u.Expires == "" {
		return time.Time{}
	}
	day, err := time.Parse(expiryLayout, u.Expires)
	if err != nil {
		// Unreadable dates count as already expired.
		return time.Unix(0, 0)
	}
	return day.AddDate(0, 0, 1)
}

// Expired reports whether the account is no longer valid at now.
func (u User) Expired(now time.Time) bool {
	expiresAt := u.ExpiresAt()
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}

type userDirectory map[string]User

func newUserDirectory(users []User) userDirectory {
	dir := make(userDirectory, len(users))
	for _, user := range users {
		if user.Username == "" {
			continue
		}
		if user.MaxConnections <= 0 {
			user.MaxConnections = 1
		}
		dir[user.Username] = user
	}
	return dir
}

// authenticate returns the account for valid credentials.
func (d userDirectory) authenticate(username, password string) (User, bool) {
	if username == "" {
		return User{}, false
	}
	user, ok := d[username]
	if !ok || !user.CheckPassword(password) {
		return User{}, false
	}
	return user, true
}
