// Package backendauth signs the short-lived service token this gateway
// presents to the backend when the backend is configured in JWT-auth mode,
// as an alternative to forwarding the canonicalized signature token
// directly as X-Auth-Token.
package backendauth

import (
	"crypto/sha256"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// Claims identifies the account this gateway is acting on behalf of.
type Claims struct {
	Account string `json:"account"`
	jwt.RegisteredClaims
}

// Signer derives a per-account signing key from a shared gateway secret
// and mints short-lived tokens. Deriving a distinct key per account means
// a token leaked for one account's traffic cannot be replayed against
// another account's.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner builds a Signer. ttl defaults to one minute when zero, which
// is ample for a single backend round trip.
func NewSigner(secret []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Signer{secret: secret, ttl: ttl}
}

func (s *Signer) deriveKey(account string) ([]byte, error) {
	h := hkdf.New(sha256.New, s.secret, nil, []byte("s3gw-backend-token:"+account))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Sign mints a JWT scoped to account, valid for the signer's TTL.
func (s *Signer) Sign(account string) (string, error) {
	key, err := s.deriveKey(account)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		Account: account,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(key)
}

// Verify checks a token minted by Sign for the given account. Within this
// repository only this package's tests call it; the gateway itself only
// ever signs outbound tokens.
func (s *Signer) Verify(account, token string) (*Claims, error) {
	key, err := s.deriveKey(account)
	if err != nil {
		return nil, err
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
