package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/ctx"
	"github.com/shashiranjanraj/coursemart/pkg/middleware"
)

// AuthController serves signup, login and logout for one role. The response
// key is "user" or "admin" after the role.
type AuthController struct {
	role          auth.Role
	service       *services.AuthService
	secureCookie  bool
	signupEnabled bool
}

func NewAuthController(role auth.Role, service *services.AuthService, secureCookie, signupEnabled bool) *AuthController {
	return &AuthController{
		role:          role,
		service:       service,
		secureCookie:  secureCookie,
		signupEnabled: signupEnabled,
	}
}

func (h *AuthController) key() string { return string(h.role) }

func (h *AuthController) Signup(c *ctx.Context) {
	if !h.signupEnabled {
		c.Error(http.StatusForbidden, string(services.AuthError), "Signup is disabled")
		return
	}

	var input services.SignupInput
	if !c.DecodeJSON(&input) {
		return
	}

	acc, err := h.service.Signup(c.Context(), h.role, input)
	if err != nil {
		c.Fail(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]any{
		"message": "Signup successful",
		h.key():   acc,
	})
}

func (h *AuthController) Login(c *ctx.Context) {
	var input services.LoginInput
	if !c.DecodeJSON(&input) {
		return
	}

	session, err := h.service.Login(c.Context(), h.role, input)
	if err != nil {
		c.Fail(err)
		return
	}

	c.SetCookie(middleware.CookieName, session.Token, h.service.TokenTTL(), h.secureCookie)
	c.JSON(http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   session.Token,
		h.key():   session.Account,
	})
}

// Logout clears the session cookie. Tokens are stateless and stay valid
// until they expire.
func (h *AuthController) Logout(c *ctx.Context) {
	if middleware.TokenFrom(c.R) == "" {
		c.Fail(services.Auth("Kindly login first"))
		return
	}

	c.ClearCookie(middleware.CookieName, h.secureCookie)
	c.JSON(http.StatusOK, map[string]any{"message": "Logged out successfully"})
}
