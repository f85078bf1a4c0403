package jwtx

import (
	"crypto/ed25519"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// EdDSAVerifier checks tokens against the Ed25519 keys of a KeySet, picked
// by the kid header, then checks issuer, audience and lifetime.
type EdDSAVerifier struct {
	keys     *KeySet
	issuer   string
	audience []string
	parser   *jwt.Parser
}

func NewVerifierEdDSA(keys *KeySet, issuer string, audience []string) *EdDSAVerifier {
	return &EdDSAVerifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()})),
	}
}

func (v *EdDSAVerifier) Verify(tokenStr string) (*Claims, error) {
	token, err := v.parser.ParseWithClaims(tokenStr, &Claims{}, v.lookupKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaim
	}
	for _, check := range []func() error{
		func() error { return claims.ValidateIssuer(v.issuer) },
		func() error { return claims.ValidateAudience(v.audience) },
		claims.ValidateExpiry,
	} {
		if err := check(); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

func (v *EdDSAVerifier) lookupKey(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrMissingKID
	}
	k, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}
	pub, ok := k.(ed25519.PublicKey)
	if !ok {
		return nil, ErrKeyType
	}
	return pub, nil
}
