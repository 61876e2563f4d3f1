package transaction

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-solclient/pkg/types"
)

const systemTransferIndex uint32 = 2

// Transfer is the system program instruction moving lamports from one account to another.
func Transfer(from, to solana.PublicKey, lamports uint64) types.Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return types.NewInstruction(
		solana.SystemProgramID,
		[]types.AccountMeta{
			types.WritableSigner(from),
			types.Writable(to),
		},
		data,
	)
}
