package address

import (
	"crypto/rand"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-solclient/internal/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for i := 0; i < 64; i++ {
		b := make([]byte, Size)
		_, err := rand.Read(b)
		require.NoError(t, err)

		got, err := Decode(Encode(b))
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
}

func TestEncodeMatchesSolanaGo(t *testing.T) {
	key := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	assert.Equal(t, key.String(), Encode(key[:]))
}

func TestDecodeLeadingZeros(t *testing.T) {
	b, err := DecodePublicKey("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, solana.SystemProgramID, b)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"zero char", "0OIl"},
		{"punctuation", "abc+/="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrEncoding)
		})
	}
}

func TestDecodePublicKeyLength(t *testing.T) {
	_, err := DecodePublicKey(Encode([]byte{1, 2, 3}))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEncoding)
}

func TestEqual(t *testing.T) {
	key := solana.NewWallet().PublicKey()

	assert.True(t, Equal(key.String(), Encode(key[:])))
	assert.False(t, Equal(key.String(), solana.SystemProgramID.String()))
	assert.False(t, Equal("not-base58!", "not-base58!"))
}
