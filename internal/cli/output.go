package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
)

// printClaims decodes the access token without verifying its signature
// and writes the claims as indented JSON. Verification is deliberately
// skipped: the token came straight from the server over TLS, and this
// output exists for humans inspecting what they were issued.
func printClaims(w io.Writer, accessToken string) error {
	claims, err := decodeClaims(accessToken)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}

	fmt.Fprintln(w, string(out))
	return nil
}

// decodeClaims extracts the claim set from a JWT without verification.
func decodeClaims(accessToken string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return claims, nil
}

// totpCode derives the one-time code for a base32 TOTP secret at the
// given instant, using Keycloak's default OTP policy (SHA1, 6 digits,
// 30 second period).
func totpCode(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCode(secret, at)
	if err != nil {
		return "", fmt.Errorf("failed to generate one-time code: %w", err)
	}
	return code, nil
}
