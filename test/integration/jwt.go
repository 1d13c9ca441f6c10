package integration

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestClaims describes the identity baked into a generated test token.
type TestClaims struct {
	SubjectID string
	TenantID  string
	Email     string
	Roles     []string
}

// tokenIssuer signs HMAC test tokens the way the configured identity
// provider would.
type tokenIssuer struct {
	issuer string
	secret string
}

func newTokenIssuer() *tokenIssuer {
	return &tokenIssuer{
		issuer: "https://test-issuer.example.com",
		secret: "integration-test-secret",
	}
}

func (i *tokenIssuer) Issuer() string { return i.issuer }
func (i *tokenIssuer) Secret() string { return i.secret }

// GenerateToken signs a token valid for one hour.
func (i *tokenIssuer) GenerateToken(t *testing.T, claims TestClaims) string {
	return i.sign(t, claims, time.Now().Add(time.Hour))
}

// GenerateExpiredToken signs a token that expired an hour ago.
func (i *tokenIssuer) GenerateExpiredToken(t *testing.T, claims TestClaims) string {
	return i.sign(t, claims, time.Now().Add(-time.Hour))
}

func (i *tokenIssuer) sign(t *testing.T, claims TestClaims, expiry time.Time) string {
	t.Helper()

	roles := make([]any, len(claims.Roles))
	for idx, r := range claims.Roles {
		roles[idx] = r
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":       i.issuer,
		"sub":       claims.SubjectID,
		"tenant_id": claims.TenantID,
		"email":     claims.Email,
		"roles":     roles,
		"iat":       time.Now().Add(-time.Minute).Unix(),
		"exp":       expiry.Unix(),
	})
	signed, err := token.SignedString([]byte(i.secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}
