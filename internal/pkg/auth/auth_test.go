package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/notifyevents/internal/config"
)

func hsConfig() *config.Config {
	return &config.Config{
		JWTAlg:        "HS256",
		JWTPrivateKey: "test-secret",
		JWTIssuer:     "notifyevents",
		JWTAudience:   "notifyevents-api",
		JWTAccessTTL:  "5m",
	}
}

func TestIssueAndVerifyHS256(t *testing.T) {
	cfg := hsConfig()
	token, err := IssueAccessToken(cfg, "ops@example.com", []string{"admin"})
	require.NoError(t, err)

	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.True(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole("viewer"))
}

func TestVerifyRejects(t *testing.T) {
	cfg := hsConfig()
	token, err := IssueAccessToken(cfg, "ops", []string{"admin"})
	require.NoError(t, err)

	other := hsConfig()
	other.JWTPrivateKey = "another-secret"
	v, err := NewVerifier(other)
	require.NoError(t, err)
	_, err = v.Verify(token)
	assert.Error(t, err, "wrong key")

	wrongAud := hsConfig()
	wrongAud.JWTAudience = "someone-else"
	v, err = NewVerifier(wrongAud)
	require.NoError(t, err)
	_, err = v.Verify(token)
	assert.Error(t, err, "wrong audience")

	v, err = NewVerifier(cfg)
	require.NoError(t, err)
	v.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = v.Verify(token)
	assert.Error(t, err, "expired")

	_, err = v.Verify("not-a-jwt")
	assert.Error(t, err)
}

func TestIssueAndVerifyES256(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	privDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	cfg := hsConfig()
	cfg.JWTAlg = "ES256"
	cfg.JWTPrivateKey = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER}))
	cfg.JWTPublicKey = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))

	token, err := IssueAccessToken(cfg, "ops", []string{"admin"})
	require.NoError(t, err)
	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.HasRole("admin"))
}

func TestNewVerifierConfigErrors(t *testing.T) {
	cfg := hsConfig()
	cfg.JWTAlg = "none"
	_, err := NewVerifier(cfg)
	assert.Error(t, err)

	cfg = hsConfig()
	cfg.JWTAlg = "RS256"
	_, err = NewVerifier(cfg)
	assert.Error(t, err)
}
