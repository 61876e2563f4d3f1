// Package anchor builds instructions and filters for programs written with the Anchor
// framework, whose instructions, accounts and events start with an 8-byte
// discriminator derived from their name.
package anchor

import (
	"bytes"
	"crypto/sha256"
	"strings"
	"unicode"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-solclient/pkg/types"
	"github.com/lugondev/go-solclient/pkg/utils"
)

// DiscriminatorSize is the length of every discriminator.
const DiscriminatorSize = 8

// Discriminator prefixes Anchor instruction data and account data.
type Discriminator [DiscriminatorSize]byte

func sighash(namespace, name string) Discriminator {
	var d Discriminator
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// InstructionDiscriminator returns the discriminator of an instruction. The name may
// be given in camel or snake case.
func InstructionDiscriminator(name string) Discriminator {
	return sighash("global", utils.ToSnakeCase(name))
}

// AccountDiscriminator returns the discriminator of an account type. Pascal case names
// are used as written; other styles are converted.
func AccountDiscriminator(name string) Discriminator {
	return sighash("account", pascal(name))
}

// EventDiscriminator returns the discriminator of an emitted event.
func EventDiscriminator(name string) Discriminator {
	return sighash("event", pascal(name))
}

func pascal(name string) string {
	if name == "" || strings.ContainsAny(name, "_- ") || !unicode.IsUpper([]rune(name)[0]) {
		return utils.ToPascalCase(name)
	}
	return name
}

// Matches reports whether data starts with d.
func (d Discriminator) Matches(data []byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], d[:])
}

// NewInstruction prefixes args with the discriminator of name.
func NewInstruction(program solana.PublicKey, name string, accounts []types.AccountMeta, args []byte) types.Instruction {
	d := InstructionDiscriminator(name)
	data := make([]byte, 0, DiscriminatorSize+len(args))
	data = append(data, d[:]...)
	data = append(data, args...)
	return types.NewInstruction(program, accounts, data)
}
