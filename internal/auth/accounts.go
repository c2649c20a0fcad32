// Package auth handles accounts: signup rules, password hashing, session
// tokens and ID generation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/rankedle/internal/store"
)

var (
	ErrInvalidSignup      = errors.New("invalid signup")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// NewID returns a URL-safe random identifier.
func NewID() string {
	return gonanoid.Must()
}

// NormalizeUsername trims whitespace.
func NormalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// ValidateSignup enforces username and password rules.
func ValidateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return fmt.Errorf("%w: username must be 3-24 chars", ErrInvalidSignup)
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: username: letters, numbers, underscore only", ErrInvalidSignup)
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return fmt.Errorf("%w: password must be 8-100 chars", ErrInvalidSignup)
	}
	return nil
}

func HashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Accounts registers and authenticates users against a UserStore.
type Accounts struct {
	users store.UserStore
	cost  int
	now   func() time.Time
}

func NewAccounts(users store.UserStore) *Accounts {
	return &Accounts{users: users, cost: bcrypt.DefaultCost, now: time.Now}
}

// Register validates and stores a new account.
// Returns ErrInvalidSignup or store.ErrUsernameTaken.
func (a *Accounts) Register(ctx context.Context, username, password string) (*store.User, error) {
	username = NormalizeUsername(username)
	if err := ValidateSignup(username, password); err != nil {
		return nil, err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, err
	}
	u := store.User{
		ID:           NewID(),
		Username:     username,
		PasswordHash: string(h),
		CreatedAt:    a.now().UTC(),
	}
	if err := a.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate returns the account for valid credentials, else ErrInvalidCredentials.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	u, err := a.users.UserByUsername(ctx, NormalizeUsername(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup returns the account for id.
func (a *Accounts) Lookup(ctx context.Context, id string) (*store.User, error) {
	return a.users.UserByID(ctx, id)
}
