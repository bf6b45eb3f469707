package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("user-secret", "admin-secret", time.Hour)

	tok, err := iss.Issue(RoleUser, "u1")
	require.NoError(t, err)

	claims, err := iss.Verify(tok, RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.ID)
	assert.False(t, claims.IsAdmin)
}

func TestUserTokenRejectedOnAdminSecret(t *testing.T) {
	iss := NewIssuer("user-secret", "admin-secret", time.Hour)

	tok, err := iss.Issue(RoleUser, "u1")
	require.NoError(t, err)

	_, err = iss.Verify(tok, RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAdminTokenWithoutFlag(t *testing.T) {
	// Same secret for both roles: the signature passes but the claim check
	// still refuses a user token on an admin route.
	iss := NewIssuer("shared", "shared", time.Hour)

	tok, err := iss.Issue(RoleUser, "u1")
	require.NoError(t, err)

	_, err = iss.Verify(tok, RoleAdmin)
	assert.ErrorIs(t, err, ErrNotAdmin)

	admin, err := iss.Issue(RoleAdmin, "a1")
	require.NoError(t, err)
	claims, err := iss.Verify(admin, RoleAdmin)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestExpiredToken(t *testing.T) {
	iss := NewIssuer("user-secret", "admin-secret", time.Hour)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := iss.Issue(RoleUser, "u1")
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Verify(tok, RoleUser)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{ID: "u1", Role: RoleUser})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.ID)
}
