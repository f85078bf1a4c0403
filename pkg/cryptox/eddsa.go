package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// GenerateEd25519Key generates a new Ed25519 private key and returns it PEM
// encoded (PKCS8), the format jwtx.NewSignerEdDSA expects.
func GenerateEd25519Key() ([]byte, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate Ed25519 key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// LoadOrCreateEd25519Key reads a PEM encoded Ed25519 key from path. When the
// file does not exist a new key is generated and written with 0600
// permissions so restarts keep issuing verifiable tokens.
func LoadOrCreateEd25519Key(path string) ([]byte, error) {
	pemKey, err := os.ReadFile(path)
	if err == nil {
		if block, _ := pem.Decode(pemKey); block == nil {
			return nil, errors.New("cryptox: signing key file is not PEM")
		}
		return pemKey, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cryptox: read signing key: %w", err)
	}

	pemKey, err = GenerateEd25519Key()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, pemKey, 0o600); err != nil {
		return nil, fmt.Errorf("cryptox: write signing key: %w", err)
	}
	return pemKey, nil
}
