package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/warden/pkg/cryptox"
	"github.com/aussiebroadwan/warden/pkg/jwtx"
)

// Keys holds the signing key and the key set that verifies its tokens.
type Keys struct {
	Signer   jwtx.Signer
	KeySet   *jwtx.KeySet
	Verifier jwtx.Verifier
}

// InitKeys loads the Ed25519 signing key from cfg.SigningKeyFile, creating
// it on first start so tokens stay valid across restarts.
func InitKeys(cfg Config, logger *slog.Logger) (*Keys, error) {
	pemKey, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	signer, err := jwtx.NewSignerEdDSA(cfg.KeyID, pemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	if err := signer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("failed to register signing key: %w", err)
	}

	logger.Info("signing key loaded",
		"algorithm", signer.Alg(),
		"kid", signer.KID(),
		"issuer", cfg.Issuer,
	)

	return &Keys{
		Signer:   signer,
		KeySet:   keys,
		Verifier: jwtx.NewCommonEdDSA(keys, cfg.Issuer, cfg.Audience),
	}, nil
}
