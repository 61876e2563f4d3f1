// Package wallet holds ed25519 keypairs and signs transaction messages with them.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"

	cerrors "github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/internal/transaction"
	"github.com/lugondev/go-solclient/pkg/address"
)

var _ transaction.Signer = (*Wallet)(nil)

// Wallet represents a Solana keypair
type Wallet struct {
	privateKey solana.PrivateKey
}

// New generates a new random wallet
func New() *Wallet {
	return &Wallet{privateKey: solana.NewWallet().PrivateKey}
}

// FromSeed derives a wallet from a 32-byte ed25519 seed.
func FromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed size: expected %d, got %d", ed25519.SeedSize, len(seed))
	}
	return &Wallet{privateKey: solana.PrivateKey(ed25519.NewKeyFromSeed(seed))}, nil
}

// FromPrivateKey wraps an existing private key
func FromPrivateKey(pk solana.PrivateKey) *Wallet {
	return &Wallet{privateKey: pk}
}

// FromBase58 parses a base58-encoded 64-byte private key
func FromBase58(key string) (*Wallet, error) {
	raw, err := address.DecodeLength(key, ed25519.PrivateKeySize)
	if err != nil {
		return nil, cerrors.Wrap(err, "invalid private key")
	}
	return &Wallet{privateKey: solana.PrivateKey(raw)}, nil
}

// Load reads a JSON keypair file (Solana CLI format)
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}

	var keypair []byte
	if err := json.Unmarshal(data, &keypair); err != nil {
		return nil, fmt.Errorf("failed to parse keypair: %w", err)
	}

	if len(keypair) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid keypair size: expected %d, got %d", ed25519.PrivateKeySize, len(keypair))
	}

	// The second half of a keypair file is the public key; reject files where it
	// does not match the secret.
	derived := ed25519.NewKeyFromSeed(keypair[:ed25519.SeedSize])
	if !solana.PublicKeyFromBytes(derived[ed25519.SeedSize:]).Equals(solana.PublicKeyFromBytes(keypair[ed25519.SeedSize:])) {
		return nil, fmt.Errorf("keypair file %s: public key does not match secret", path)
	}
	return &Wallet{privateKey: solana.PrivateKey(keypair)}, nil
}

// PublicKey returns the wallet's public key
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.privateKey.PublicKey()
}

// Address returns the base58 public key.
func (w *Wallet) Address() string {
	return address.Encode(w.PublicKey().Bytes())
}

// PrivateKey returns the wallet's private key
func (w *Wallet) PrivateKey() solana.PrivateKey {
	return w.privateKey
}

// Sign signs a message with the wallet's private key
func (w *Wallet) Sign(message []byte) ([]byte, error) {
	sig, err := w.privateKey.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig[:], nil
}

// Save writes the keypair as a JSON byte array, creating parent directories.
func (w *Wallet) Save(path string) error {
	data, err := json.Marshal(toInts(w.privateKey))
	if err != nil {
		return fmt.Errorf("failed to marshal keypair: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create keypair directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keypair file: %w", err)
	}

	return nil
}

// String returns the public key as a string
func (w *Wallet) String() string {
	return w.Address()
}

// toInts keeps json from encoding the key as a base64 string.
func toInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
