// Package pda derives program addresses: deterministic addresses that fall off the
// ed25519 curve so no private key can sign for them.
package pda

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/pkg/address"
)

const (
	// MaxSeedLength is the largest accepted seed.
	MaxSeedLength = 32

	// MaxSeeds is the largest number of seeds, bump included.
	MaxSeeds = 16

	marker = "ProgramDerivedAddress"
)

// IsOnCurve reports whether b is the compressed encoding of a valid ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// CreateProgramAddress hashes seeds with programID. It fails with ErrNoViableAddress
// when the digest lands on the curve.
func CreateProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, error) {
	if err := checkSeeds(seeds); err != nil {
		return solana.PublicKey{}, err
	}
	digest := hash(seeds, programID)
	if IsOnCurve(digest[:]) {
		return solana.PublicKey{}, errors.ErrNoViableAddress
	}
	return solana.PublicKeyFromBytes(digest[:]), nil
}

// FindProgramAddress searches bumps from 255 down to 0 and returns the first address
// that is off the curve together with its bump. The highest valid bump always wins.
func FindProgramAddress(seeds [][]byte, programID solana.PublicKey) (string, uint8, error) {
	key, bump, err := FindProgramAddressKey(seeds, programID)
	if err != nil {
		return "", 0, err
	}
	return address.Encode(key[:]), bump, nil
}

// FindProgramAddressKey is FindProgramAddress returning the raw key.
func FindProgramAddressKey(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	if err := checkSeeds(seeds); err != nil {
		return solana.PublicKey{}, 0, err
	}
	if len(seeds) >= MaxSeeds {
		return solana.PublicKey{}, 0, errors.Custom("too many seeds")
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	bump := []byte{0}
	for b := 255; b >= 0; b-- {
		bump[0] = byte(b)
		withBump[len(seeds)] = bump
		digest := hash(withBump, programID)
		if !IsOnCurve(digest[:]) {
			return solana.PublicKeyFromBytes(digest[:]), uint8(b), nil
		}
	}
	return solana.PublicKey{}, 0, errors.ErrNoViableAddress
}

func checkSeeds(seeds [][]byte) error {
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return errors.SeedTooLong(i, len(s))
		}
	}
	return nil
}

func hash(seeds [][]byte, programID solana.PublicKey) [32]byte {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write(programID[:])
	h.Write([]byte(marker))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
