package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	req := require.New(t)
	svc := NewTokenService([]byte("unit-test-secret"), time.Hour)

	token, err := svc.Issue("alice")
	req.NoError(err)
	req.NotEmpty(token)

	subject, ok := svc.Validate(token)
	req.True(ok)
	req.Equal("alice", subject)
}

func TestValidateTamperedSignature(t *testing.T) {
	req := require.New(t)
	svc := NewTokenService([]byte("unit-test-secret"), time.Hour)

	token, err := svc.Issue("alice")
	req.NoError(err)

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	req.Len(parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, ok := svc.Validate(tampered)
	req.False(ok)
}

func TestValidateWrongSecret(t *testing.T) {
	req := require.New(t)

	token, err := NewTokenService([]byte("secret-one"), time.Hour).Issue("alice")
	req.NoError(err)

	_, ok := NewTokenService([]byte("secret-two"), time.Hour).Validate(token)
	req.False(ok)
}

func TestValidateExpired(t *testing.T) {
	req := require.New(t)
	svc := NewTokenService([]byte("unit-test-secret"), -time.Minute)

	token, err := svc.Issue("alice")
	req.NoError(err)

	_, ok := svc.Validate(token)
	req.False(ok)
}

func TestValidateRejectsUnexpectedAlgorithm(t *testing.T) {
	req := require.New(t)
	secret := []byte("unit-test-secret")
	svc := NewTokenService(secret, time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	req.NoError(err)

	_, ok := svc.Validate(token)
	req.False(ok)
}

func TestValidateGarbage(t *testing.T) {
	req := require.New(t)
	svc := NewTokenService([]byte("unit-test-secret"), time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, ok := svc.Validate(token)
		req.False(ok)
	}
}

func TestValidateMissingSubject(t *testing.T) {
	req := require.New(t)
	secret := []byte("unit-test-secret")
	svc := NewTokenService(secret, time.Hour)

	// A structurally valid token with no subject must not authenticate.
	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := anonymous.SignedString(secret)
	req.NoError(err)

	_, ok := svc.Validate(token)
	req.False(ok)
}
