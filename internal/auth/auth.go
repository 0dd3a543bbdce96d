// Package auth validates the JWTs issued by the user service. The checkout
// core itself never inspects tokens; the middleware turns a valid token into
// an owner identity and passes that down.
package auth

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const ClaimsKey ctxKey = 1

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type Keys struct {
	pubKey *rsa.PublicKey
}

// NewKeys parses the PEM encoded RSA public key used to verify tokens.
func NewKeys(pubKeyPEM []byte) (*Keys, error) {
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &Keys{pubKey: pubKey}, nil
}

// ValidateToken checks the signature and expiry of a bearer token and
// returns its claims.
func (k *Keys) ValidateToken(token string) (Claims, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return k.pubKey, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}

	return claims, nil
}
