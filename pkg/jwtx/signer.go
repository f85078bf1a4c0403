package jwtx

// Signer mints access tokens. The public half of its key is published via
// PublicJWK so that verifiers sharing a KeySet can check what it signs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// NewSignerEdDSA returns a Signer for a PKCS8 PEM encoded Ed25519 private
// key, as written by cryptox.GenerateEd25519Key.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	key, err := parseEd25519PrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return newEdDSASigner(kid, key), nil
}
