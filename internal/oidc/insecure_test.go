package oidc

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeJWT(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"RS256"}`)) + "." + enc.EncodeToString([]byte(payload)) + ".sig"
}

func TestInsecureVerifier_DecodesClaims(t *testing.T) {
	tok, err := NewInsecureVerifier().Verify(context.Background(), fakeJWT(`{"sub":"user_1","email":"a@b.co"}`))
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "user_1", claims["sub"])
	require.Equal(t, "a@b.co", claims["email"])
}

func TestInsecureVerifier_Rejects(t *testing.T) {
	v := NewInsecureVerifier()
	_, err := v.Verify(context.Background(), "garbage")
	require.Error(t, err)
	_, err = v.Verify(context.Background(), fakeJWT(`{"email":"no-sub@b.co"}`))
	require.Error(t, err)
	_, err = v.Verify(context.Background(), "a.!!!.c")
	require.Error(t, err)
}
