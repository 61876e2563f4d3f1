package wallet

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed() []byte {
	s := make([]byte, ed25519.SeedSize)
	for i := range s {
		s[i] = byte(i)
	}
	return s
}

func TestFromSeed(t *testing.T) {
	w, err := FromSeed(seed())
	require.NoError(t, err)
	assert.Equal(t, "FAe4sisG95oZ42w7buUn5qEE4TAnfTTFPiguZUHmhiF", w.Address())
	assert.Equal(t, w.Address(), w.String())

	_, err = FromSeed([]byte{1, 2})
	assert.Error(t, err)
}

func TestSignVerifies(t *testing.T) {
	w := New()
	msg := []byte("message")

	sig, err := w.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, ed25519.SignatureSize)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(w.PublicKey().Bytes()), msg, sig))
}

func TestSaveLoad(t *testing.T) {
	w := New()
	path := filepath.Join(t.TempDir(), "keys", "id.json")
	require.NoError(t, w.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "["), "keypair file must be a byte array")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), loaded.PublicKey())
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte("[1,2,3]"), 0o600))
	_, err := Load(short)
	assert.Error(t, err)

	mismatch := New().PrivateKey()
	other := New().PublicKey()
	copy(mismatch[32:], other[:])
	path := filepath.Join(dir, "mismatch.json")
	require.NoError(t, FromPrivateKey(mismatch).Save(path))
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFromBase58(t *testing.T) {
	w := New()
	back, err := FromBase58(w.PrivateKey().String())
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), back.PublicKey())

	_, err = FromBase58(solana.SystemProgramID.String())
	assert.Error(t, err)
}
