package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-solclient/internal/anchor"
	"github.com/lugondev/go-solclient/internal/pda"
	"github.com/lugondev/go-solclient/pkg/address"
)

type pdaResult struct {
	Address string `json:"address" yaml:"address"`
	Bump    uint8  `json:"bump" yaml:"bump"`
	Program string `json:"program" yaml:"program"`
}

var pdaCmd = &cobra.Command{
	Use:   "pda <program-id> [seed...]",
	Short: "Derive a program derived address",
	Long: `Derive the program derived address and bump for the given seeds.

Seeds are UTF-8 strings unless prefixed:
  hex:<bytes>       raw bytes in hex
  pubkey:<base58>   the 32 bytes of a public key
  anchor:<Name>     the 8-byte Anchor account discriminator of Name`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := address.DecodePublicKey(args[0])
		if err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}

		seeds := make([][]byte, 0, len(args)-1)
		for _, arg := range args[1:] {
			seed, err := parseSeed(arg)
			if err != nil {
				return err
			}
			seeds = append(seeds, seed)
		}

		addr, bump, err := pda.FindProgramAddress(seeds, program)
		if err != nil {
			return err
		}

		res := pdaResult{Address: addr, Bump: bump, Program: program.String()}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			fmt.Fprintf(w, "Address: %s\n", res.Address)
			fmt.Fprintf(w, "Bump:    %d\n", res.Bump)
		})
	},
}

func parseSeed(arg string) ([]byte, error) {
	kind, value, ok := strings.Cut(arg, ":")
	if !ok {
		return []byte(arg), nil
	}
	switch kind {
	case "hex":
		b, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid hex seed %q: %w", value, err)
		}
		return b, nil
	case "pubkey":
		key, err := address.DecodePublicKey(value)
		if err != nil {
			return nil, fmt.Errorf("invalid pubkey seed %q: %w", value, err)
		}
		return key.Bytes(), nil
	case "anchor":
		d := anchor.AccountDiscriminator(value)
		return d[:], nil
	default:
		return []byte(arg), nil
	}
}

func init() {
	rootCmd.AddCommand(pdaCmd)
}
