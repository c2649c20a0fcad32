package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// GuestPrefix starts every guest player ID. Account IDs are nanoids and
// never contain ':'.
const GuestPrefix = "guest:"

const guestAudience = "rankedle-guest"

// Claims carries the account identity; "id" and "username" match the
// token shape issued to existing clients.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, expiry time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Sign returns a token for the account and its expiry time.
func (i *Issuer) Sign(id, username string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.expiry)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:       id,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return ss, exp, nil
}

// Parse verifies a token and returns its claims. Any failure wraps ErrInvalidToken.
func (i *Issuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || claims.ID == "" || claims.Username == "" || IsGuest(claims.ID) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsGuest reports whether id belongs to the guest namespace.
func IsGuest(id string) bool { return strings.HasPrefix(id, GuestPrefix) }

// SignGuest mints a new guest identity valid for ttl and returns its
// player ID, token and expiry.
func (i *Issuer) SignGuest(ttl time.Duration) (string, string, time.Time, error) {
	id := GuestPrefix + NewID()
	now := i.now()
	exp := now.Add(ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{guestAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString(i.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign guest token: %w", err)
	}
	return id, ss, exp, nil
}

// ParseGuest verifies a guest token and returns the guest player ID.
// Account tokens are rejected.
func (i *Issuer) ParseGuest(token string) (string, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithAudience(guestAudience))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || !IsGuest(claims.ID) {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
