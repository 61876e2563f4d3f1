// Package types holds the value types that describe instructions before they are
// compiled into a transaction message.
package types

import (
	"github.com/gagliardetto/solana-go"
)

// Pubkey is a Solana public key (32 bytes).
type Pubkey = solana.PublicKey

// Signature is a Solana transaction signature (64 bytes).
type Signature = solana.Signature

// Hash is a Solana hash (32 bytes), typically used for blockhashes.
type Hash = solana.Hash

// AccountMeta describes how an instruction uses one account.
// Two metas name the same account iff their keys are byte-equal.
type AccountMeta struct {
	// Pubkey is the public key of the account.
	Pubkey Pubkey `json:"pubkey" yaml:"pubkey"`

	// IsSigner indicates if the account is a signer.
	IsSigner bool `json:"is_signer" yaml:"is_signer"`

	// IsWritable indicates if the account is writable.
	IsWritable bool `json:"is_writable" yaml:"is_writable"`
}

// NewAccountMeta creates an AccountMeta.
func NewAccountMeta(pubkey Pubkey, isSigner, isWritable bool) AccountMeta {
	return AccountMeta{Pubkey: pubkey, IsSigner: isSigner, IsWritable: isWritable}
}

// Writable is a writable non-signer account.
func Writable(pubkey Pubkey) AccountMeta {
	return NewAccountMeta(pubkey, false, true)
}

// ReadOnly is a read-only non-signer account.
func ReadOnly(pubkey Pubkey) AccountMeta {
	return NewAccountMeta(pubkey, false, false)
}

// WritableSigner is a signer whose account the instruction may modify.
func WritableSigner(pubkey Pubkey) AccountMeta {
	return NewAccountMeta(pubkey, true, true)
}

// SameAccount reports whether both metas reference the same key.
func (am AccountMeta) SameAccount(other AccountMeta) bool {
	return am.Pubkey.Equals(other.Pubkey)
}

// Merge folds other into am. Writable and signer flags are only ever raised.
func (am *AccountMeta) Merge(other AccountMeta) {
	if other.IsWritable {
		am.IsWritable = true
	}
	if other.IsSigner {
		am.IsSigner = true
	}
}

// ToSolanaAccountMeta converts to solana-go AccountMeta.
func (am *AccountMeta) ToSolanaAccountMeta() *solana.AccountMeta {
	return &solana.AccountMeta{
		PublicKey:  am.Pubkey,
		IsSigner:   am.IsSigner,
		IsWritable: am.IsWritable,
	}
}

// FromSolanaAccountMeta creates AccountMeta from solana-go AccountMeta.
func FromSolanaAccountMeta(meta *solana.AccountMeta) AccountMeta {
	return AccountMeta{
		Pubkey:     meta.PublicKey,
		IsSigner:   meta.IsSigner,
		IsWritable: meta.IsWritable,
	}
}

// Instruction is one program invocation.
type Instruction struct {
	// ProgramID is the program that will process this instruction.
	ProgramID Pubkey `json:"program_id" yaml:"program_id"`

	// Accounts is the ordered list of accounts passed to the program.
	Accounts []AccountMeta `json:"accounts" yaml:"accounts"`

	// Data is the opaque instruction payload.
	Data []byte `json:"data" yaml:"data"`
}

// NewInstruction copies accounts and data so later changes by the caller do not leak
// into an instruction already handed to a builder.
func NewInstruction(programID Pubkey, accounts []AccountMeta, data []byte) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts:  append([]AccountMeta(nil), accounts...),
		Data:      append([]byte(nil), data...),
	}
}

// CompiledInstruction is an instruction whose keys were replaced by indexes into the
// message account list.
type CompiledInstruction struct {
	// ProgramIDIndex is the index of the program ID in the account keys.
	ProgramIDIndex uint8 `json:"program_id_index"`

	// AccountIndexes is the list of indexes into the account keys.
	AccountIndexes []uint8 `json:"accounts"`

	// Data is the instruction data.
	Data []byte `json:"data"`
}

// LamportsPerSOL is the number of lamports per SOL.
const LamportsPerSOL uint64 = 1_000_000_000
