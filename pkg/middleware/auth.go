package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/response"
)

// CookieName is the session cookie set at login.
const CookieName = "jwt"

// TokenFrom reads the session token from the Authorization header first and
// falls back to the jwt cookie.
func TokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireUser admits requests carrying a valid user token and stores the
// principal in the request context.
func RequireUser(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return require(issuer, auth.RoleUser)
}

// RequireAdmin admits requests carrying a valid admin token with the
// isAdmin claim.
func RequireAdmin(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return require(issuer, auth.RoleAdmin)
}

func require(issuer *auth.Issuer, role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFrom(r)
			if token == "" {
				response.Unauthorized(w, "No token provided")
				return
			}

			claims, err := issuer.Verify(token, role)
			switch {
			case errors.Is(err, auth.ErrNotAdmin):
				response.Forbidden(w, "You are not an admin")
				return
			case err != nil:
				response.Unauthorized(w, "Invalid token or expired")
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.Principal{ID: claims.ID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
