package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-solclient/internal/wallet"
)

var (
	keypairPath string
	walletOut   string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet management commands",
	Long:  `Commands for generating keypairs and showing their addresses.`,
}

type walletInfo struct {
	PublicKey  string `json:"public_key" yaml:"public_key"`
	PrivateKey string `json:"private_key,omitempty" yaml:"private_key,omitempty"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new wallet",
	Long:  `Generate a new Solana keypair. With --out the keypair is written in Solana CLI format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := wallet.New()
		info := walletInfo{PublicKey: w.Address()}

		if walletOut != "" {
			if err := w.Save(walletOut); err != nil {
				return err
			}
			info.Path = walletOut
		} else {
			info.PrivateKey = w.PrivateKey().String()
		}

		return printResult(cmd.OutOrStdout(), info, func(out io.Writer) {
			fmt.Fprintln(out, "New wallet generated!")
			fmt.Fprintf(out, "  Public Key:  %s\n", info.PublicKey)
			if info.Path != "" {
				fmt.Fprintf(out, "  Keypair:     %s\n", info.Path)
				return
			}
			fmt.Fprintf(out, "  Private Key: %s\n", info.PrivateKey)
			fmt.Fprintln(out, "\nWARNING: Save your private key securely. Never share it with anyone!")
		})
	},
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the address of a keypair file",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := loadWallet()
		if err != nil {
			return err
		}
		info := walletInfo{PublicKey: w.Address(), Path: keypairPath}
		return printResult(cmd.OutOrStdout(), info, func(out io.Writer) {
			fmt.Fprintln(out, info.PublicKey)
		})
	},
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

func loadWallet() (*wallet.Wallet, error) {
	path := keypairPath
	if path == "" {
		path = defaultKeypairPath()
	}
	return wallet.Load(path)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&keypairPath, "keypair", "k", "", "keypair file (default is ~/.config/solana/id.json)")
	walletNewCmd.Flags().StringVar(&walletOut, "out", "", "write the keypair to this file instead of printing the private key")

	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletNewCmd)
	walletCmd.AddCommand(walletAddressCmd)
}
