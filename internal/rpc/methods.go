package rpc

import (
	"encoding/base64"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
)

// DefaultAirdropLamports is one SOL.
const DefaultAirdropLamports uint64 = 1_000_000_000

// AnchorDiscriminatorSize is the offset of the first field after an Anchor account
// discriminator, used by memcmp filters.
const AnchorDiscriminatorSize = 8

// Method is a method name with its positional params.
type Method struct {
	Name   string
	Params []any
}

// SubmitMethod submits m.
func (r *Registry) SubmitMethod(m Method) (*Handle, error) {
	return r.Submit(m.Name, m.Params...)
}

type obj = map[string]any

func withCommitment(o obj, c solrpc.CommitmentType) obj {
	if c != "" {
		o["commitment"] = c
	}
	return o
}

// GetAccountInfo requests one account with base64 data.
func GetAccountInfo(account solana.PublicKey, commitment solrpc.CommitmentType) Method {
	return Method{"getAccountInfo", []any{
		account.String(),
		withCommitment(obj{"encoding": solana.EncodingBase64}, commitment),
	}}
}

// GetBalance requests the lamport balance of account.
func GetBalance(account solana.PublicKey, commitment solrpc.CommitmentType) Method {
	return Method{"getBalance", []any{account.String(), withCommitment(obj{}, commitment)}}
}

// GetMultipleAccounts requests several accounts. Data is sliced to zero bytes so only
// lamports and ownership come back.
func GetMultipleAccounts(accounts []solana.PublicKey) Method {
	keys := make([]string, len(accounts))
	for i, a := range accounts {
		keys[i] = a.String()
	}
	return Method{"getMultipleAccounts", []any{
		keys,
		obj{"encoding": solana.EncodingBase64, "dataSlice": obj{"offset": 0, "length": 0}},
	}}
}

// ProgramAccountsFilter narrows getProgramAccounts.
type ProgramAccountsFilter struct {
	// DataSize keeps accounts of exactly this size. Zero disables the filter.
	DataSize uint64

	// Memcmp keeps accounts whose data at MemcmpOffset equals these bytes.
	Memcmp       []byte
	MemcmpOffset uint64
}

// GetProgramAccounts lists accounts owned by program.
func GetProgramAccounts(program solana.PublicKey, filter ProgramAccountsFilter) Method {
	var filters []any
	if filter.DataSize > 0 {
		filters = append(filters, obj{"dataSize": filter.DataSize})
	}
	if len(filter.Memcmp) > 0 {
		filters = append(filters, obj{"memcmp": obj{
			"offset": filter.MemcmpOffset,
			"bytes":  solana.Base58(filter.Memcmp).String(),
		}})
	}

	opts := obj{"encoding": solana.EncodingBase64}
	if len(filters) > 0 {
		opts["filters"] = filters
	}
	return Method{"getProgramAccounts", []any{program.String(), opts}}
}

// GetAnchorAccountsByKey lists accounts of an Anchor program of the given size whose
// first field equals key.
func GetAnchorAccountsByKey(program solana.PublicKey, size uint64, key solana.PublicKey) Method {
	return GetProgramAccounts(program, ProgramAccountsFilter{
		DataSize:     size,
		Memcmp:       key[:],
		MemcmpOffset: AnchorDiscriminatorSize,
	})
}

// GetTokenAccountsByOwner lists token accounts of owner under the SPL token program.
func GetTokenAccountsByOwner(owner solana.PublicKey) Method {
	return Method{"getTokenAccountsByOwner", []any{
		owner.String(),
		obj{"programId": solana.TokenProgramID.String()},
		obj{"encoding": solana.EncodingJSONParsed},
	}}
}

// GetTokenAccountsByMint lists token accounts of owner for one mint.
func GetTokenAccountsByMint(owner, mint solana.PublicKey) Method {
	return Method{"getTokenAccountsByOwner", []any{
		owner.String(),
		obj{"mint": mint.String()},
		obj{"encoding": solana.EncodingJSONParsed},
	}}
}

// GetLatestBlockhash requests a recent block hash.
func GetLatestBlockhash(commitment solrpc.CommitmentType) Method {
	return Method{"getLatestBlockhash", []any{withCommitment(obj{}, commitment)}}
}

// GetFeeForMessage asks the fee for a serialised message.
func GetFeeForMessage(message []byte, commitment solrpc.CommitmentType) Method {
	return Method{"getFeeForMessage", []any{
		base64.StdEncoding.EncodeToString(message),
		withCommitment(obj{}, commitment),
	}}
}

// SendTransaction submits a signed transaction as base64.
func SendTransaction(tx []byte, skipPreflight bool) Method {
	return Method{"sendTransaction", []any{
		base64.StdEncoding.EncodeToString(tx),
		obj{"encoding": solana.EncodingBase64, "skipPreflight": skipPreflight},
	}}
}

// RequestAirdrop asks a test validator or faucet for lamports.
func RequestAirdrop(account solana.PublicKey, lamports uint64) Method {
	if lamports == 0 {
		lamports = DefaultAirdropLamports
	}
	return Method{"requestAirdrop", []any{account.String(), lamports}}
}

// GetSignatureStatuses polls confirmation status of signatures.
func GetSignatureStatuses(searchHistory bool, signatures ...solana.Signature) Method {
	sigs := make([]string, len(signatures))
	for i, s := range signatures {
		sigs[i] = s.String()
	}
	return Method{"getSignatureStatuses", []any{sigs, obj{"searchTransactionHistory": searchHistory}}}
}
