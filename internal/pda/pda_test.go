package pda

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/pkg/address"
)

var testProgram = solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")

func TestFindProgramAddressMatchesSolanaGo(t *testing.T) {
	seedSets := [][][]byte{
		{[]byte("level1")},
		{[]byte("vault"), solana.SystemProgramID[:]},
		{},
		{bytes.Repeat([]byte{0xff}, MaxSeedLength)},
	}

	for _, seeds := range seedSets {
		got, bump, err := FindProgramAddress(seeds, testProgram)
		require.NoError(t, err)

		want, wantBump, err := solana.FindProgramAddress(seeds, testProgram)
		require.NoError(t, err)

		assert.Equal(t, want.String(), got)
		assert.Equal(t, wantBump, bump)
	}
}

func TestFindProgramAddressDeterministic(t *testing.T) {
	seeds := [][]byte{[]byte("game"), []byte("state")}

	first, firstBump, err := FindProgramAddress(seeds, testProgram)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		addr, bump, err := FindProgramAddress(seeds, testProgram)
		require.NoError(t, err)
		assert.Equal(t, first, addr)
		assert.Equal(t, firstBump, bump)
	}
}

func TestFindProgramAddressHighestBump(t *testing.T) {
	seeds := [][]byte{[]byte("level1")}
	addr, bump, err := FindProgramAddress(seeds, testProgram)
	require.NoError(t, err)

	for b := 255; b > int(bump); b-- {
		digest := sha256.Sum256(bytes.Join([][]byte{seeds[0], {byte(b)}, testProgram[:], []byte(marker)}, nil))
		assert.True(t, IsOnCurve(digest[:]), "bump %d should have been on curve", b)
	}

	key, err := address.DecodePublicKey(addr)
	require.NoError(t, err)
	assert.False(t, IsOnCurve(key[:]))
}

func TestFindProgramAddressSeedTooLong(t *testing.T) {
	seeds := [][]byte{[]byte("ok"), bytes.Repeat([]byte{1}, MaxSeedLength+1)}

	_, _, err := FindProgramAddress(seeds, testProgram)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSeedTooLong)
}

func TestCreateProgramAddress(t *testing.T) {
	seeds := [][]byte{[]byte("level1")}
	key, bump, err := FindProgramAddressKey(seeds, testProgram)
	require.NoError(t, err)

	got, err := CreateProgramAddress([][]byte{seeds[0], {bump}}, testProgram)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestIsOnCurve(t *testing.T) {
	wallet := solana.NewWallet()
	assert.True(t, IsOnCurve(wallet.PublicKey().Bytes()))
	assert.False(t, IsOnCurve([]byte{1, 2, 3}))
}
