package auth

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret")

	signed, err := tokens.Issue(Identity{ID: "user-1", Email: "ada@example.com", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	id, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "user-1", Email: "ada@example.com", Role: RoleAdmin}, id)
	assert.True(t, id.IsAdmin())
}

func TestTokens_Parse_Rejects(t *testing.T) {
	tokens := NewTokens("secret")

	expired, err := tokens.Issue(Identity{ID: "user-1"}, -time.Minute)
	require.NoError(t, err)

	foreign, err := NewTokens("other").Issue(Identity{ID: "user-1"}, time.Hour)
	require.NoError(t, err)

	noSubject, err := tokens.Issue(Identity{Email: "x@example.com"}, time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "wrong secret", token: foreign},
		{name: "missing subject", token: noSubject},
		{name: "alg none", token: unsigned},
		{name: "garbage", token: "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{ID: "u", Role: "customer"})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", id.ID)
	assert.False(t, id.IsAdmin())
}
