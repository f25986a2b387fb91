package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-admin-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierStub struct {
	kinds  []auth.TokenKind
	claims *auth.AdminClaims
	err    error
}

func (v *verifierStub) Verify(kind auth.TokenKind, token string) (*auth.AdminClaims, error) {
	v.kinds = append(v.kinds, kind)
	return v.claims, v.err
}

func TestKindValidator_BindsKind(t *testing.T) {
	stub := &verifierStub{claims: &auth.AdminClaims{Username: "alice"}}

	claims, err := auth.KindValidator(stub, auth.TokenKindRefresh).Validate("tok")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []auth.TokenKind{auth.TokenKindRefresh}, stub.kinds)
}

func TestKindValidator_PropagatesErrors(t *testing.T) {
	stub := &verifierStub{err: auth.ErrTokenExpired}

	_, err := auth.KindValidator(stub, auth.TokenKindAccess).Validate("tok")
	assert.Equal(t, auth.ErrTokenExpired, err)
}

func TestKindValidator_NilVerifier(t *testing.T) {
	_, err := auth.KindValidator(nil, auth.TokenKindAccess).Validate("tok")
	assert.Equal(t, auth.ErrTokenMalformed, err)
}

func TestTokenValidatorFunc_Nil(t *testing.T) {
	var fn auth.TokenValidatorFunc
	_, err := fn.Validate("tok")
	assert.Equal(t, auth.ErrTokenMalformed, err)
}

func TestAccessValidator_RejectsRefresh(t *testing.T) {
	ts, err := auth.NewTokenService(testConfig())
	require.NoError(t, err)

	account := testAccount()
	access, _, err := ts.Issue(auth.TokenKindAccess, account)
	require.NoError(t, err)
	refresh, _, err := ts.Issue(auth.TokenKindRefresh, account)
	require.NoError(t, err)

	validator := ts.AccessValidator()

	claims, err := validator.Validate(access)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.UserID())

	_, err = validator.Validate(refresh)
	assert.True(t, auth.IsUnauthorized(err))
}
