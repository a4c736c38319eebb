// Package custody isolates key material. Nothing outside this package
// holds a private key; callers hand transactions in and get them back
// signed.
package custody

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"

	clierr "solflow/internal/errors"
)

// Signer signs transactions for a single wallet.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(tx *solana.Transaction) error
}

// LocalSigner signs with a base58-encoded private key held in memory.
type LocalSigner struct {
	key solana.PrivateKey
	pub solana.PublicKey
}

// FromEnv loads a local signer from the named environment variable.
func FromEnv(envName string) (*LocalSigner, error) {
	raw := os.Getenv(envName)
	if raw == "" {
		return nil, clierr.New(clierr.CodeAuth, fmt.Sprintf("signer key not set: export %s with a base58 private key", envName))
	}
	return FromBase58(raw)
}

func FromBase58(encoded string) (*LocalSigner, error) {
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeAuth, "invalid signer private key", err)
	}
	return &LocalSigner{key: key, pub: key.PublicKey()}, nil
}

func (s *LocalSigner) PublicKey() solana.PublicKey {
	return s.pub
}

func (s *LocalSigner) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.pub) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return clierr.Wrap(clierr.CodeExecution, "sign transaction", err)
	}
	return nil
}
