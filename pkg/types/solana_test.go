package types

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestAccountMetaMerge(t *testing.T) {
	key := solana.NewWallet().PublicKey()

	tests := []struct {
		name         string
		existing     AccountMeta
		incoming     AccountMeta
		wantWritable bool
		wantSigner   bool
	}{
		{"read-only then writable", ReadOnly(key), Writable(key), true, false},
		{"writable then read-only", Writable(key), ReadOnly(key), true, false},
		{"signer then read-only", NewAccountMeta(key, true, false), ReadOnly(key), false, true},
		{"read-only then signer", ReadOnly(key), WritableSigner(key), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := tt.existing
			meta.Merge(tt.incoming)
			if meta.IsWritable != tt.wantWritable {
				t.Errorf("IsWritable = %v, want %v", meta.IsWritable, tt.wantWritable)
			}
			if meta.IsSigner != tt.wantSigner {
				t.Errorf("IsSigner = %v, want %v", meta.IsSigner, tt.wantSigner)
			}
		})
	}
}

func TestSameAccount(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	if !Writable(a).SameAccount(ReadOnly(a)) {
		t.Error("expected metas with the same key to match")
	}
	if Writable(a).SameAccount(Writable(b)) {
		t.Error("expected metas with different keys not to match")
	}
}

func TestNewInstructionCopies(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	accounts := []AccountMeta{ReadOnly(key)}
	data := []byte{1, 2, 3}

	ix := NewInstruction(solana.SystemProgramID, accounts, data)
	accounts[0].IsWritable = true
	data[0] = 9

	if ix.Accounts[0].IsWritable {
		t.Error("instruction accounts aliased caller slice")
	}
	if ix.Data[0] != 1 {
		t.Error("instruction data aliased caller slice")
	}
}

func TestSolanaAccountMetaConversion(t *testing.T) {
	meta := WritableSigner(solana.NewWallet().PublicKey())
	back := FromSolanaAccountMeta(meta.ToSolanaAccountMeta())
	if back != meta {
		t.Errorf("got %+v, want %+v", back, meta)
	}
}
