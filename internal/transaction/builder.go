// Package transaction assembles instructions into a signed legacy Solana transaction.
//
// A Builder is single use. Instructions are appended in execution order, their accounts
// are merged into one deduplicated list, and Build orders that list, computes the
// message header, serialises the message and signs it with every signer.
//
// Final account order:
//
//	signers (caller order, all writable) | writable non-signers | read-only non-signers
//
// Inside the two non-signer groups accounts keep the order in which they were first added.
package transaction

import (
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"math"
	"sort"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-solclient/internal/common"
	"github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/pkg/address"
	"github.com/lugondev/go-solclient/pkg/types"
)

// Signer produces ed25519 signatures for one account.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) ([]byte, error)
}

// Header holds the three leading message bytes.
type Header struct {
	RequiredSignatures    uint8
	ReadOnlySignedCount   uint8
	ReadOnlyUnsignedCount uint8
}

// Builder accumulates instructions for one transaction.
type Builder struct {
	common.LoggerMixin

	blockHash    string
	instructions []types.Instruction
	accounts     []types.AccountMeta

	header     Header
	message    []byte
	signatures []solana.Signature
	built      bool
}

// NewBuilder creates a builder for a transaction anchored at blockHash (base58).
func NewBuilder(blockHash string) *Builder {
	return &Builder{
		LoggerMixin: common.NewLoggerMixin(),
		blockHash:   blockHash,
	}
}

// WithLogger sets a custom logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.SetLogger(logger)
	return b
}

// AddInstruction appends ix and merges its accounts and program id into the account list.
// An account seen again is upgraded to writable or signer, never downgraded.
func (b *Builder) AddInstruction(ix types.Instruction) error {
	if b.built {
		return errors.ErrAlreadyBuilt
	}
	ix = types.NewInstruction(ix.ProgramID, ix.Accounts, ix.Data)
	b.instructions = append(b.instructions, ix)

	for _, meta := range ix.Accounts {
		b.merge(meta)
	}
	b.merge(types.ReadOnly(ix.ProgramID))
	return nil
}

// AddInstructions appends every instruction in order.
func (b *Builder) AddInstructions(ixs ...types.Instruction) error {
	for _, ix := range ixs {
		if err := b.AddInstruction(ix); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) merge(meta types.AccountMeta) {
	for i := range b.accounts {
		if b.accounts[i].SameAccount(meta) {
			b.accounts[i].Merge(meta)
			return
		}
	}
	b.accounts = append(b.accounts, meta)
}

// Build orders accounts, serialises and signs the message, and returns
// compact(len(signers)) || signatures || message. It can be called once.
func (b *Builder) Build(signers ...Signer) ([]byte, error) {
	if b.built {
		return nil, errors.ErrAlreadyBuilt
	}
	signers = uniqueSigners(signers)
	if len(signers) == 0 {
		return nil, errors.ErrNoSigners
	}

	blockHash, err := address.DecodeLength(b.blockHash, 32)
	if err != nil {
		return nil, errors.InvalidBlockHash(b.blockHash, err)
	}

	b.orderAccounts(signers)
	for _, meta := range b.accounts[len(signers):] {
		if meta.IsSigner {
			// A signer with no signature has no valid place in the final list.
			return nil, errors.UnknownAccountReference(meta.Pubkey.String())
		}
	}
	if len(b.accounts) > math.MaxUint8+1 {
		return nil, errors.Custom(fmt.Sprintf("too many accounts: %d", len(b.accounts)))
	}
	b.header = computeHeader(b.accounts)

	message, err := b.serializeMessage(blockHash)
	if err != nil {
		return nil, err
	}

	signatures := make([]solana.Signature, 0, len(signers))
	for _, s := range signers {
		raw, err := s.Sign(message)
		if err != nil {
			return nil, fmt.Errorf("failed to sign with %s: %w", s.PublicKey(), err)
		}
		if len(raw) != ed25519.SignatureSize {
			return nil, fmt.Errorf("signer %s returned %d signature bytes", s.PublicKey(), len(raw))
		}
		var sig solana.Signature
		copy(sig[:], raw)
		signatures = append(signatures, sig)
	}

	out := make([]byte, 0, 3+len(signatures)*64+len(message))
	bin.EncodeCompactU16Length(&out, len(signatures))
	for _, sig := range signatures {
		out = append(out, sig[:]...)
	}
	out = append(out, message...)

	b.message = message
	b.signatures = signatures
	b.built = true

	b.GetLogger().Debug("transaction built",
		"accounts", len(b.accounts),
		"instructions", len(b.instructions),
		"signers", len(signers),
		"size", len(out),
	)
	return out, nil
}

// orderAccounts drops every signer from the list, moves writable accounts ahead of
// read-only ones without reordering within each group, then puts the signers first
// as writable signers in the order given.
func (b *Builder) orderAccounts(signers []Signer) {
	rest := b.accounts[:0]
	for _, meta := range b.accounts {
		if !isSigner(meta.Pubkey, signers) {
			rest = append(rest, meta)
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].IsWritable && !rest[j].IsWritable
	})

	ordered := make([]types.AccountMeta, 0, len(signers)+len(rest))
	for _, s := range signers {
		ordered = append(ordered, types.WritableSigner(s.PublicKey()))
	}
	b.accounts = append(ordered, rest...)
}

func computeHeader(accounts []types.AccountMeta) Header {
	var h Header
	for _, meta := range accounts {
		switch {
		case meta.IsSigner:
			h.RequiredSignatures++
			if !meta.IsWritable {
				h.ReadOnlySignedCount++
			}
		case !meta.IsWritable:
			h.ReadOnlyUnsignedCount++
		}
	}
	return h
}

func (b *Builder) serializeMessage(blockHash []byte) ([]byte, error) {
	buf := []byte{
		b.header.RequiredSignatures,
		b.header.ReadOnlySignedCount,
		b.header.ReadOnlyUnsignedCount,
	}

	bin.EncodeCompactU16Length(&buf, len(b.accounts))
	for _, meta := range b.accounts {
		buf = append(buf, meta.Pubkey[:]...)
	}
	buf = append(buf, blockHash...)

	compiled, err := b.compileInstructions()
	if err != nil {
		return nil, err
	}

	bin.EncodeCompactU16Length(&buf, len(compiled))
	for _, ci := range compiled {
		buf = append(buf, ci.ProgramIDIndex)
		bin.EncodeCompactU16Length(&buf, len(ci.AccountIndexes))
		buf = append(buf, ci.AccountIndexes...)
		bin.EncodeCompactU16Length(&buf, len(ci.Data))
		buf = append(buf, ci.Data...)
	}
	return buf, nil
}

// compileInstructions maps every key to its index in the final account list. A trailing
// account equal to the program id is treated as a sentinel and left out of the indexes.
func (b *Builder) compileInstructions() ([]types.CompiledInstruction, error) {
	out := make([]types.CompiledInstruction, 0, len(b.instructions))
	for _, ix := range b.instructions {
		programIndex, ok := b.indexOf(ix.ProgramID)
		if !ok {
			return nil, errors.UnknownAccountReference(ix.ProgramID.String())
		}

		accounts := ix.Accounts
		if n := len(accounts); n > 0 && accounts[n-1].Pubkey.Equals(ix.ProgramID) {
			accounts = accounts[:n-1]
		}
		if len(accounts) > math.MaxUint16 || len(ix.Data) > math.MaxUint16 {
			return nil, errors.Custom("instruction exceeds short vector limits")
		}

		indexes := make([]uint8, 0, len(accounts))
		for _, meta := range accounts {
			idx, ok := b.indexOf(meta.Pubkey)
			if !ok {
				return nil, errors.UnknownAccountReference(meta.Pubkey.String())
			}
			indexes = append(indexes, idx)
		}

		out = append(out, types.CompiledInstruction{
			ProgramIDIndex: programIndex,
			AccountIndexes: indexes,
			Data:           ix.Data,
		})
	}
	return out, nil
}

func (b *Builder) indexOf(key solana.PublicKey) (uint8, bool) {
	for i, meta := range b.accounts {
		if meta.Pubkey.Equals(key) {
			return uint8(i), true
		}
	}
	return 0, false
}

// Accounts returns a copy of the account list. After Build it is in final order.
func (b *Builder) Accounts() []types.AccountMeta {
	return append([]types.AccountMeta(nil), b.accounts...)
}

// Instructions returns a copy of the instructions in execution order.
func (b *Builder) Instructions() []types.Instruction {
	return append([]types.Instruction(nil), b.instructions...)
}

// Header returns the header computed by Build.
func (b *Builder) Header() Header {
	return b.header
}

// Message returns the serialised message computed by Build, or nil before Build.
func (b *Builder) Message() []byte {
	return b.message
}

// Signature returns the first signature, which identifies the transaction on chain.
func (b *Builder) Signature() (solana.Signature, bool) {
	if len(b.signatures) == 0 {
		return solana.Signature{}, false
	}
	return b.signatures[0], true
}

func isSigner(key solana.PublicKey, signers []Signer) bool {
	for _, s := range signers {
		if s.PublicKey().Equals(key) {
			return true
		}
	}
	return false
}

func uniqueSigners(signers []Signer) []Signer {
	out := make([]Signer, 0, len(signers))
	for _, s := range signers {
		if s == nil || isSigner(s.PublicKey(), out) {
			continue
		}
		out = append(out, s)
	}
	return out
}
