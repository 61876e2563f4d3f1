// Package address converts Solana public keys between raw bytes and their base58 text form.
//
// Keys are always compared by their decoded bytes. Two strings that decode to the same
// 32 bytes name the same account even if their text differs.
package address

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/lugondev/go-solclient/internal/errors"
)

// Size is the length of a decoded public key.
const Size = solana.PublicKeyLength

// Encode returns the base58 text form of b.
func Encode(b []byte) string {
	return base58.Encode(b)
}

// Decode returns the bytes behind a base58 string.
// Any character outside the base58 alphabet yields an encoding error.
func Decode(text string) ([]byte, error) {
	if text == "" {
		return nil, errors.EncodingError("base58", fmt.Errorf("empty input"))
	}
	b, err := base58.Decode(text)
	if err != nil {
		return nil, errors.EncodingError("base58", err)
	}
	return b, nil
}

// DecodeLength decodes text and requires exactly n bytes.
func DecodeLength(text string, n int) ([]byte, error) {
	b, err := Decode(text)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, errors.EncodingError("base58",
			fmt.Errorf("expected %d bytes, got %d", n, len(b)))
	}
	return b, nil
}

// DecodePublicKey decodes a 32-byte public key.
func DecodePublicKey(text string) (solana.PublicKey, error) {
	b, err := DecodeLength(text, Size)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// MustPublicKey is DecodePublicKey for constants. It panics on bad input.
func MustPublicKey(text string) solana.PublicKey {
	pk, err := DecodePublicKey(text)
	if err != nil {
		panic(err)
	}
	return pk
}

// Equal reports whether a and b decode to the same bytes.
// Undecodable input is never equal to anything.
func Equal(a, b string) bool {
	da, err := Decode(a)
	if err != nil {
		return false
	}
	db, err := Decode(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}
