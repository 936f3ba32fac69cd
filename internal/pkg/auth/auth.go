// Package auth issues and verifies the operator JWTs that grant administrative access.
package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/strogmv/notifyevents/internal/config"
)

// Claims is the verified subset of an operator token.
type Claims struct {
	Subject string
	Roles   []string
}

// HasRole reports whether role is among the token roles.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IssueAccessToken builds and signs an access JWT for an operator.
func IssueAccessToken(cfg *config.Config, subject string, roles []string) (string, error) {
	claims := buildClaims(cfg, subject, roles)
	return signToken(cfg, claims, cfg.JWTAccessTTL)
}

func buildClaims(cfg *config.Config, subject string, roles []string) map[string]any {
	now := time.Now().Unix()
	claims := map[string]any{
		"iat": now,
		"nbf": now,
		"typ": "access",
		"jti": randomTokenID(),
	}
	if cfg.JWTIssuer != "" {
		claims["iss"] = cfg.JWTIssuer
	}
	if cfg.JWTAudience != "" {
		claims["aud"] = cfg.JWTAudience
	}
	if subject != "" {
		claims["sub"] = subject
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	return claims
}

func signToken(cfg *config.Config, claims map[string]any, ttl string) (string, error) {
	dur, err := time.ParseDuration(ttl)
	if err != nil || dur <= 0 {
		dur = 15 * time.Minute
	}
	claims["exp"] = time.Now().Add(dur).Unix()

	header := map[string]any{
		"alg": cfg.JWTAlg,
		"typ": "JWT",
	}
	headerJSON, _ := json.Marshal(header)
	payloadJSON, _ := json.Marshal(claims)
	enc := base64.RawURLEncoding
	unsigned := enc.EncodeToString(headerJSON) + "." + enc.EncodeToString(payloadJSON)
	hash := sha256.Sum256([]byte(unsigned))

	switch cfg.JWTAlg {
	case "RS256":
		priv, err := parseRSAPrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return "", err
		}
		sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, hash[:])
		if err != nil {
			return "", err
		}
		return unsigned + "." + enc.EncodeToString(sig), nil
	case "ES256":
		priv, err := parseECPrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return "", err
		}
		r, s, err := ecdsa.Sign(rand.Reader, priv, hash[:])
		if err != nil {
			return "", err
		}
		sig := make([]byte, 64)
		r.FillBytes(sig[:32])
		s.FillBytes(sig[32:])
		return unsigned + "." + enc.EncodeToString(sig), nil
	case "HS256":
		key := hmacKey(cfg)
		if len(key) == 0 {
			return "", fmt.Errorf("JWT_PRIVATE_KEY is required for HS256")
		}
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(unsigned))
		sig := mac.Sum(nil)
		return unsigned + "." + enc.EncodeToString(sig), nil
	default:
		return "", fmt.Errorf("unsupported JWT algorithm")
	}
}

func hmacKey(cfg *config.Config) []byte {
	key := []byte(cfg.JWTPrivateKey)
	if len(key) == 0 {
		key = []byte(cfg.JWTPublicKey)
	}
	return key
}

// Verifier checks token signatures and registered claims.
type Verifier struct {
	alg      string
	issuer   string
	audience string
	rsaKey   *rsa.PublicKey
	ecKey    *ecdsa.PublicKey
	hmacKey  []byte
	now      func() time.Time
}

func NewVerifier(cfg *config.Config) (*Verifier, error) {
	v := &Verifier{
		alg:      cfg.JWTAlg,
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		now:      time.Now,
	}
	switch v.alg {
	case "RS256":
		if cfg.JWTPublicKey == "" {
			return nil, fmt.Errorf("JWT_PUBLIC_KEY is required for RS256")
		}
		pub, err := parseRSAPublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("invalid RSA public key: %w", err)
		}
		v.rsaKey = pub
	case "ES256":
		if cfg.JWTPublicKey == "" {
			return nil, fmt.Errorf("JWT_PUBLIC_KEY is required for ES256")
		}
		pub, err := parseECPublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("invalid EC public key: %w", err)
		}
		v.ecKey = pub
	case "HS256":
		v.hmacKey = hmacKey(cfg)
		if len(v.hmacKey) == 0 {
			return nil, fmt.Errorf("JWT_PRIVATE_KEY is required for HS256")
		}
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm %q", v.alg)
	}
	return v, nil
}

// Verify parses token and returns its claims when the signature and time window are valid.
func (v *Verifier) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("invalid token format")
	}
	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, err
	}
	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, err
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Claims{}, err
	}

	var header map[string]any
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Claims{}, err
	}
	if alg, _ := header["alg"].(string); alg != v.alg {
		return Claims{}, fmt.Errorf("invalid alg")
	}

	signed := []byte(parts[0] + "." + parts[1])
	hash := sha256.Sum256(signed)

	switch v.alg {
	case "RS256":
		if err := rsa.VerifyPKCS1v15(v.rsaKey, crypto.SHA256, hash[:], signature); err != nil {
			return Claims{}, err
		}
	case "ES256":
		if len(signature) != 64 {
			return Claims{}, fmt.Errorf("invalid ecdsa signature")
		}
		r := new(big.Int).SetBytes(signature[:32])
		s := new(big.Int).SetBytes(signature[32:])
		if !ecdsa.Verify(v.ecKey, hash[:], r, s) {
			return Claims{}, fmt.Errorf("invalid ecdsa signature")
		}
	case "HS256":
		mac := hmac.New(sha256.New, v.hmacKey)
		mac.Write(signed)
		if subtle.ConstantTimeCompare(mac.Sum(nil), signature) != 1 {
			return Claims{}, fmt.Errorf("invalid signature")
		}
	}

	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Claims{}, err
	}
	if v.issuer != "" {
		if iss, _ := claims["iss"].(string); iss != v.issuer {
			return Claims{}, fmt.Errorf("invalid issuer")
		}
	}
	if v.audience != "" && !hasAudience(claims, v.audience) {
		return Claims{}, fmt.Errorf("invalid audience")
	}
	if !v.validateTimes(claims) {
		return Claims{}, fmt.Errorf("token expired or not valid yet")
	}
	sub, _ := claims["sub"].(string)
	return Claims{Subject: sub, Roles: getStringSliceClaim(claims, "roles")}, nil
}

func hasAudience(claims map[string]any, aud string) bool {
	switch v := claims["aud"].(type) {
	case string:
		return v == aud
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == aud {
				return true
			}
		}
	}
	return false
}

func (v *Verifier) validateTimes(claims map[string]any) bool {
	now := v.now().Unix()
	if exp, ok := getNumericClaim(claims, "exp"); ok && now > exp {
		return false
	}
	if nbf, ok := getNumericClaim(claims, "nbf"); ok && now < nbf {
		return false
	}
	return true
}

func getNumericClaim(claims map[string]any, key string) (int64, bool) {
	switch t := claims[key].(type) {
	case float64:
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	}
	return 0, false
}

func getStringSliceClaim(claims map[string]any, key string) []string {
	switch t := claims[key].(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}

func parseRSAPrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("invalid PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not RSA private key")
	}
	return rsaKey, nil
}

func parseECPrivateKey(pemStr string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("invalid PEM")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not EC private key")
	}
	return ecKey, nil
}

func parseRSAPublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("invalid PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not RSA public key")
	}
	return rsaPub, nil
}

func parseECPublicKey(pemStr string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("invalid PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not EC public key")
	}
	return ecPub, nil
}

func randomTokenID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
