// Package auth issues and verifies session tokens and hashes passwords.
//
// Users and admins are signed with separate secrets so a leaked user secret
// can never mint an admin token:
//
//	issuer := auth.NewIssuer(userSecret, adminSecret, 24*time.Hour)
//	token, _ := issuer.Issue(auth.RoleAdmin, admin.ID)
//	claims, err := issuer.Verify(token, auth.RoleAdmin)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Role selects the secret a token is signed with.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// PasswordCost is the bcrypt work factor for stored hashes.
const PasswordCost = 10

var (
	// ErrInvalidToken covers bad signatures, malformed and expired tokens.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
	// ErrNotAdmin is returned when a validly signed admin-secret token lacks
	// the isAdmin claim.
	ErrNotAdmin = errors.New("auth: token has no admin privilege")
)

// Claims is the typed JWT payload.
type Claims struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens for both roles.
type Issuer struct {
	userSecret  []byte
	adminSecret []byte
	ttl         time.Duration
	now         func() time.Time
}

func NewIssuer(userSecret, adminSecret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{
		userSecret:  []byte(userSecret),
		adminSecret: []byte(adminSecret),
		ttl:         ttl,
		now:         time.Now,
	}
}

// TTL is how long issued tokens stay valid; cookies use the same lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for principal id.
func (i *Issuer) Issue(role Role, id string) (string, error) {
	now := i.now()
	claims := Claims{
		ID:      id,
		IsAdmin: role == RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret(role))
	if err != nil {
		return "", fmt.Errorf("auth: sign: %w", err)
	}
	return signed, nil
}

// Verify parses token with role's secret. Admin verification additionally
// requires the isAdmin claim.
func (i *Issuer) Verify(token string, role Role) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return i.secret(role), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if role == RoleAdmin && !claims.IsAdmin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

func (i *Issuer) secret(role Role) []byte {
	if role == RoleAdmin {
		return i.adminSecret
	}
	return i.userSecret
}

// HashPassword returns a bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
