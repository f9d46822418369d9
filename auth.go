package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"kaspku/models"
)

// Login-attempt lockout policy.
const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

// loginGuard is the session gate's explicit state: consecutive failure
// count and the lockout deadline, owned by the application shell instead of
// ambient globals. The clock is injectable for tests.
type loginGuard struct {
	mu          sync.Mutex
	failures    int
	lockedUntil time.Time
	now         func() time.Time
}

func newLoginGuard() *loginGuard {
	return &loginGuard{now: time.Now}
}

// Locked reports whether attempts are currently blocked and, if so, how
// long until the cooldown ends. A lapsed lockout also clears the counter.
func (g *loginGuard) Locked() (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if now.Before(g.lockedUntil) {
		return true, g.lockedUntil.Sub(now)
	}
	if !g.lockedUntil.IsZero() {
		g.lockedUntil = time.Time{}
		g.failures = 0
	}
	return false, 0
}

// Fail records one failed attempt and returns the remaining attempts before
// lockout (0 means the lockout just engaged).
func (g *loginGuard) Fail() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	if g.failures >= maxLoginAttempts {
		g.lockedUntil = g.now().Add(lockoutDuration)
		return 0
	}
	return maxLoginAttempts - g.failures
}

// Reset clears the failure counter after a successful login.
func (g *loginGuard) Reset() {
	g.mu.Lock()
	g.failures = 0
	g.lockedUntil = time.Time{}
	g.mu.Unlock()
}

// Authenticate checks the shared admin credential against the seeded user.
func Authenticate(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("username atau password salah")
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return models.User{}, fmt.Errorf("username atau password salah")
	}
	return user, nil
}

// issueToken signs a 24h HS256 access token for the admin session.
func issueToken(username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"role":     "administrator",
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(jwtSecret)
}
