package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type EdDSASigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

func newEdDSASigner(kid string, key ed25519.PrivateKey) *EdDSASigner {
	pub, _ := key.Public().(ed25519.PublicKey)
	return &EdDSASigner{kid: kid, key: key, pub: pub}
}

func parseEd25519PrivateKey(pemKey []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	switch {
	case block == nil:
		return nil, errors.New("jwtx: signing key is not PEM encoded")
	case block.Type != "PRIVATE KEY":
		return nil, fmt.Errorf("jwtx: signing key block is %q, want PKCS8 \"PRIVATE KEY\"", block.Type)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: signing key: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwtx: signing key is %T, want Ed25519", parsed)
	}
	return key, nil
}

func (s *EdDSASigner) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (s *EdDSASigner) KID() string { return s.kid }

// Sign stamps the kid header; EdDSAVerifier rejects tokens without one.
func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *EdDSASigner) PublicJWK() JWK {
	return NewEd25519JWK(s.kid, "sig", s.Alg(), s.pub)
}

// Validate is run once at startup before the signer is published.
func (s *EdDSASigner) Validate() error {
	switch {
	case len(s.key) != ed25519.PrivateKeySize:
		return fmt.Errorf("jwtx: private key is %d bytes, want %d", len(s.key), ed25519.PrivateKeySize)
	case len(s.pub) != ed25519.PublicKeySize:
		return fmt.Errorf("jwtx: public key is %d bytes, want %d", len(s.pub), ed25519.PublicKeySize)
	case s.kid == "":
		return errors.New("jwtx: signer has no kid")
	}
	return nil
}
