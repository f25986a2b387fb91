package auth_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-admin-auth"
	"github.com/stretchr/testify/assert"
)

func TestGetClaims(t *testing.T) {
	claims := &auth.AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user123"},
		Username:         "alice",
		UserRole:         auth.RoleAdmin,
	}

	tests := []struct {
		name   string
		ctx    context.Context
		wantOK bool
	}{
		{name: "present", ctx: auth.WithClaimsContext(context.Background(), claims), wantOK: true},
		{name: "absent", ctx: context.Background()},
		{name: "nil claims", ctx: auth.WithClaimsContext(context.Background(), nil)},
		{name: "foreign value under a string key", ctx: context.WithValue(context.Background(), "claims", claims)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := auth.GetClaims(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Same(t, claims, got)
			}
		})
	}
}

func TestActingAdmin(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.AdminClaims
		want   string
	}{
		{
			name:   "username preferred",
			claims: &auth.AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "id-1"}, Username: "alice"},
			want:   "alice",
		},
		{
			name:   "falls back to subject",
			claims: &auth.AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "id-1"}},
			want:   "id-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := auth.WithClaimsContext(context.Background(), tt.claims)
			assert.Equal(t, tt.want, auth.ActingAdmin(ctx))
		})
	}

	assert.Empty(t, auth.ActingAdmin(context.Background()))
}
