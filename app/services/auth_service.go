package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/repositories"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
	"github.com/shashiranjanraj/coursemart/pkg/validate"
)

// SignupInput is the body of POST /user/signup and /admin/signup.
type SignupInput struct {
	FirstName string `json:"firstName" validate:"required,min=3"`
	LastName  string `json:"lastName" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

// LoginInput is the body of POST /user/login and /admin/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Account is the public view of a user or admin. It never carries the
// password hash.
type Account struct {
	ID        string    `json:"_id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a successful login.
type Session struct {
	Token   string
	Account *Account
}

// account is the stored shape shared by users and admins.
type account struct {
	Account
	Hash string
}

// accountStore hides the User/Admin split from the auth flow.
type accountStore interface {
	create(ctx context.Context, in SignupInput, hash string) (*Account, error)
	findByEmail(ctx context.Context, email string) (*account, error)
}

type userAccounts struct{ repo repositories.UserRepository }

func (s userAccounts) create(ctx context.Context, in SignupInput, hash string) (*Account, error) {
	u := &models.User{FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Password: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return &Account{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, CreatedAt: u.CreatedAt}, nil
}

func (s userAccounts) findByEmail(ctx context.Context, email string) (*account, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &account{
		Account: Account{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, CreatedAt: u.CreatedAt},
		Hash:    u.Password,
	}, nil
}

type adminAccounts struct{ repo repositories.AdminRepository }

func (s adminAccounts) create(ctx context.Context, in SignupInput, hash string) (*Account, error) {
	a := &models.Admin{FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Password: hash}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return &Account{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, Email: a.Email, CreatedAt: a.CreatedAt}, nil
}

func (s adminAccounts) findByEmail(ctx context.Context, email string) (*account, error) {
	a, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &account{
		Account: Account{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, Email: a.Email, CreatedAt: a.CreatedAt},
		Hash:    a.Password,
	}, nil
}

// AuthService signs principals up and in. Users and admins share the flow
// but live in separate collections and are signed with separate secrets.
type AuthService struct {
	store  repositories.Store
	issuer *auth.Issuer
	// dummyHash is compared against when the email is unknown so both login
	// failures cost one bcrypt comparison.
	dummyHash string
}

func NewAuthService(store repositories.Store, issuer *auth.Issuer) *AuthService {
	dummy, _ := auth.HashPassword("coursemart-dummy-password")
	return &AuthService{store: store, issuer: issuer, dummyHash: dummy}
}

func (s *AuthService) accounts(role auth.Role) accountStore {
	if role == auth.RoleAdmin {
		return adminAccounts{repo: s.store.Admins()}
	}
	return userAccounts{repo: s.store.Users()}
}

func roleTitle(role auth.Role) string {
	if role == auth.RoleAdmin {
		return "Admin"
	}
	return "User"
}

// Signup validates in, stores a bcrypt hash and returns the new account.
func (s *AuthService) Signup(ctx context.Context, role auth.Role, in SignupInput) (*Account, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)

	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, Validation("Validation failed", errs)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, Internal("Error in signup", err)
	}

	acc, err := s.accounts(role).create(ctx, in, hash)
	if errors.Is(err, repositories.ErrDuplicate) {
		e := Conflict(roleTitle(role) + " already exists")
		e.Status = http.StatusBadRequest
		return nil, e
	}
	if err != nil {
		return nil, Internal("Error in signup", err)
	}

	logger.WithCtx(ctx).Info("auth: signup", "role", role, "id", acc.ID)
	return acc, nil
}

// Login checks the credentials and issues a token. An unknown email and a
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, role auth.Role, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, Validation("Validation failed", errs)
	}

	acc, err := s.accounts(role).findByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		auth.CheckPassword(s.dummyHash, in.Password)
		return nil, Auth("Invalid credentials")
	case err != nil:
		return nil, Internal("Error in login", err)
	}

	if !auth.CheckPassword(acc.Hash, in.Password) {
		return nil, Auth("Invalid credentials")
	}

	token, err := s.issuer.Issue(role, acc.ID)
	if err != nil {
		return nil, Internal("Error in login", err)
	}

	logger.WithCtx(ctx).Info("auth: login", "role", role, "id", acc.ID)
	return &Session{Token: token, Account: &acc.Account}, nil
}

// Verify resolves a token to its principal id.
func (s *AuthService) Verify(token string, role auth.Role) (string, error) {
	if token == "" {
		return "", Auth("Unauthorized")
	}
	claims, err := s.issuer.Verify(token, role)
	if errors.Is(err, auth.ErrNotAdmin) {
		return "", Forbidden("You are not an admin")
	}
	if err != nil {
		return "", Auth("Invalid token or expired")
	}
	return claims.ID, nil
}

// TokenTTL is the lifetime of issued tokens and their cookies.
func (s *AuthService) TokenTTL() time.Duration { return s.issuer.TTL() }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
