package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestDecodeClaims(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                "f47ac10b",
		"preferred_username": "alice",
		"azp":                "kctoken",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	claims, err := decodeClaims(signed)
	require.NoError(t, err)
	require.Equal(t, "alice", claims["preferred_username"])
	require.Equal(t, "kctoken", claims["azp"])
}

func TestDecodeClaimsRejectsGarbage(t *testing.T) {
	_, err := decodeClaims("not-a-jwt")
	require.Error(t, err)
}

func TestPrintClaimsIndentsJSON(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": "openid profile",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, printClaims(&buf, signed))
	require.Contains(t, buf.String(), "\"scope\": \"openid profile\"")
}

func TestTOTPCodeMatchesReferenceVector(t *testing.T) {
	// RFC 6238 appendix B vector for T=59s, truncated to six digits.
	secret := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	code, err := totpCode(secret, time.Unix(59, 0))
	require.NoError(t, err)
	require.Equal(t, "287082", code)
}

func TestTOTPCodeRejectsBadSecret(t *testing.T) {
	_, err := totpCode("!!!not-base32!!!", time.Now())
	require.Error(t, err)
}
