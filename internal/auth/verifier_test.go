package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/bottled/internal/auth"
)

const secret = "test-secret-at-least-32-bytes-long!!"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims auth.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func claimsFor(email string, exp time.Time) auth.Claims {
	return auth.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestVerify_Valid(t *testing.T) {
	v, err := auth.NewVerifier(secret, "authenticated")
	require.NoError(t, err)

	id, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("ada@example.com", time.Now().Add(time.Hour))))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "user-1", id.Subject)
}

func TestVerify_Rejects(t *testing.T) {
	v, err := auth.NewVerifier(secret, "authenticated")
	require.NoError(t, err)
	future := time.Now().Add(time.Hour)

	wrongAud := claimsFor("ada@example.com", future)
	wrongAud.Audience = jwt.ClaimStrings{"anon"}

	noExp := claimsFor("ada@example.com", future)
	noExp.ExpiresAt = nil

	cases := map[string]string{
		"wrong secret":   sign(t, jwt.SigningMethodHS256, []byte("other-secret"), claimsFor("ada@example.com", future)),
		"hs512":          sign(t, jwt.SigningMethodHS512, []byte(secret), claimsFor("ada@example.com", future)),
		"no email":       sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("", future)),
		"wrong audience": sign(t, jwt.SigningMethodHS256, []byte(secret), wrongAud),
		"no exp":         sign(t, jwt.SigningMethodHS256, []byte(secret), noExp),
		"garbage":        "not.a.jwt",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	v, err := auth.NewVerifier(secret, "")
	require.NoError(t, err)

	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("ada@example.com", time.Now().Add(-time.Minute))))
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestBearerToken(t *testing.T) {
	tok, err := auth.BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	tok, err = auth.BearerToken("bearer   xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc"} {
		_, err := auth.BearerToken(h)
		assert.ErrorIs(t, err, auth.ErrMissingToken, h)
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := auth.NewVerifier("", "")
	assert.Error(t, err)
}
