package rpc

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func params(t *testing.T, m Method) []any {
	t.Helper()
	raw, err := json.Marshal(m.Params)
	require.NoError(t, err)

	var out []any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestGetProgramAccountsFilters(t *testing.T) {
	program := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	m := GetAnchorAccountsByKey(program, 165, owner)
	assert.Equal(t, "getProgramAccounts", m.Name)

	p := params(t, m)
	require.Len(t, p, 2)
	assert.Equal(t, program.String(), p[0])

	opts := p[1].(map[string]any)
	assert.Equal(t, "base64", opts["encoding"])
	filters := opts["filters"].([]any)
	require.Len(t, filters, 2)
	assert.Equal(t, float64(165), filters[0].(map[string]any)["dataSize"])

	memcmp := filters[1].(map[string]any)["memcmp"].(map[string]any)
	assert.Equal(t, float64(8), memcmp["offset"])
	assert.Equal(t, owner.String(), memcmp["bytes"])
}

func TestGetProgramAccountsWithoutFilters(t *testing.T) {
	p := params(t, GetProgramAccounts(solana.SystemProgramID, ProgramAccountsFilter{}))
	_, ok := p[1].(map[string]any)["filters"]
	assert.False(t, ok)
}

func TestSendTransactionEncoding(t *testing.T) {
	tx := []byte{1, 2, 3, 4}
	p := params(t, SendTransaction(tx, false))

	assert.Equal(t, base64.StdEncoding.EncodeToString(tx), p[0])
	assert.Equal(t, "base64", p[1].(map[string]any)["encoding"])
}

func TestRequestAirdropDefault(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	p := params(t, RequestAirdrop(key, 0))
	assert.Equal(t, []any{key.String(), float64(DefaultAirdropLamports)}, p)
}

func TestCommitmentOptional(t *testing.T) {
	key := solana.NewWallet().PublicKey()

	p := params(t, GetBalance(key, ""))
	assert.Empty(t, p[1])

	p = params(t, GetBalance(key, solrpc.CommitmentProcessed))
	assert.Equal(t, "processed", p[1].(map[string]any)["commitment"])
}

func TestTokenAccountsByOwner(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	p := params(t, GetTokenAccountsByOwner(owner))
	assert.Equal(t, solana.TokenProgramID.String(), p[1].(map[string]any)["programId"])
	assert.Equal(t, "jsonParsed", p[2].(map[string]any)["encoding"])
}
