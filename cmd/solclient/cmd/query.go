package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-solclient/internal/anchor"
	"github.com/lugondev/go-solclient/internal/client"
	"github.com/lugondev/go-solclient/internal/rpc"
	"github.com/lugondev/go-solclient/pkg/address"
)

type balanceResult struct {
	Address  string `json:"address" yaml:"address"`
	Lamports uint64 `json:"lamports" yaml:"lamports"`
	SOL      string `json:"sol" yaml:"sol"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]...",
	Short: "Check account balances",
	Long: `Show the SOL balance of one or more addresses, or of the --keypair wallet when no
address is given. Several addresses are fetched in one getMultipleAccounts call.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			w, err := loadWallet()
			if err != nil {
				return err
			}
			args = []string{w.Address()}
		}

		keys := make([]solana.PublicKey, len(args))
		for i, arg := range args {
			key, err := address.DecodePublicKey(arg)
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", arg, err)
			}
			keys[i] = key
		}

		c := newClient()
		if len(keys) == 1 {
			lamports, err := c.GetBalance(cmd.Context(), keys[0])
			if err != nil {
				return err
			}
			res := newBalanceResult(keys[0], lamports)
			return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "Address: %s\n", res.Address)
				fmt.Fprintf(w, "Balance: %s SOL (%d lamports)\n", res.SOL, res.Lamports)
			})
		}

		accounts, err := c.GetMultipleAccounts(cmd.Context(), keys...)
		if err != nil {
			return err
		}
		res := make([]balanceResult, len(keys))
		for i, key := range keys {
			var lamports uint64
			if accounts[i] != nil {
				lamports = accounts[i].Lamports
			}
			res[i] = newBalanceResult(key, lamports)
		}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			for _, r := range res {
				fmt.Fprintf(w, "%s  %s SOL\n", r.Address, r.SOL)
			}
		})
	},
}

func newBalanceResult(key solana.PublicKey, lamports uint64) balanceResult {
	return balanceResult{Address: key.String(), Lamports: lamports, SOL: client.LamportsToSOL(lamports).String()}
}

var tokenMint string

type tokenResult struct {
	Account  string `json:"account" yaml:"account"`
	Mint     string `json:"mint" yaml:"mint"`
	Amount   string `json:"amount" yaml:"amount"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
	UIAmount string `json:"ui_amount" yaml:"ui_amount"`
}

var tokensCmd = &cobra.Command{
	Use:   "tokens [owner]",
	Short: "List SPL token accounts of an owner",
	Long:  `List the SPL token accounts of an owner, or of the --keypair wallet. --mint keeps one mint.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target string
		if len(args) == 1 {
			target = args[0]
		} else {
			w, err := loadWallet()
			if err != nil {
				return err
			}
			target = w.Address()
		}
		owner, err := address.DecodePublicKey(target)
		if err != nil {
			return fmt.Errorf("invalid owner: %w", err)
		}

		var mint *solana.PublicKey
		if tokenMint != "" {
			key, err := address.DecodePublicKey(tokenMint)
			if err != nil {
				return fmt.Errorf("invalid mint: %w", err)
			}
			mint = &key
		}

		balances, err := newClient().GetTokenAccounts(cmd.Context(), owner, mint)
		if err != nil {
			return err
		}
		res := make([]tokenResult, len(balances))
		for i, b := range balances {
			res[i] = tokenResult{Account: b.Address.String(), Mint: b.Mint, Amount: b.Amount, Decimals: b.Decimals, UIAmount: b.UIAmount}
		}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			for _, r := range res {
				fmt.Fprintf(w, "%s  mint %s  %s\n", r.Account, r.Mint, r.UIAmount)
			}
			fmt.Fprintf(w, "%d token accounts\n", len(res))
		})
	},
}

type blockhashResult struct {
	Blockhash            string `json:"blockhash" yaml:"blockhash"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height" yaml:"last_valid_block_height"`
}

var blockhashCmd = &cobra.Command{
	Use:   "blockhash",
	Short: "Fetch a recent block hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		latest, err := newClient().GetLatestBlockhash(cmd.Context())
		if err != nil {
			return err
		}
		res := blockhashResult{Blockhash: latest.Blockhash.String(), LastValidBlockHeight: latest.LastValidBlockHeight}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			fmt.Fprintf(w, "Blockhash:               %s\n", res.Blockhash)
			fmt.Fprintf(w, "Last valid block height: %d\n", res.LastValidBlockHeight)
		})
	},
}

type signatureResult struct {
	Signature string `json:"signature" yaml:"signature"`
	Lamports  uint64 `json:"lamports" yaml:"lamports"`
}

var airdropCmd = &cobra.Command{
	Use:   "airdrop <address> [sol]",
	Short: "Request an airdrop on devnet, testnet or a local validator",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := address.DecodePublicKey(args[0])
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}

		var lamports uint64
		if len(args) == 2 {
			if lamports, err = client.ParseSOL(args[1]); err != nil {
				return err
			}
		}

		sig, err := newClient().RequestAirdrop(cmd.Context(), key, lamports)
		if err != nil {
			return err
		}
		res := signatureResult{Signature: sig.String(), Lamports: lamports}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			fmt.Fprintf(w, "Airdrop requested: %s\n", res.Signature)
		})
	},
}

type accountResult struct {
	Address    string `json:"address" yaml:"address"`
	Exists     bool   `json:"exists" yaml:"exists"`
	Lamports   uint64 `json:"lamports" yaml:"lamports"`
	Owner      string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Executable bool   `json:"executable" yaml:"executable"`
	Data       string `json:"data,omitempty" yaml:"data,omitempty"`
}

var accountCmd = &cobra.Command{
	Use:   "account <address>",
	Short: "Show an account's owner, balance and data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := address.DecodePublicKey(args[0])
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}

		acct, err := newClient().GetAccountInfo(cmd.Context(), key)
		if err != nil {
			return err
		}

		res := accountResult{Address: key.String()}
		if acct != nil {
			res.Exists = true
			res.Lamports = acct.Lamports
			res.Owner = acct.Owner.String()
			res.Executable = acct.Executable
			if acct.Data != nil {
				res.Data = hex.EncodeToString(acct.Data.GetBinary())
			}
		}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			if !res.Exists {
				fmt.Fprintf(w, "Account %s does not exist\n", res.Address)
				return
			}
			fmt.Fprintf(w, "Address:    %s\n", res.Address)
			fmt.Fprintf(w, "Owner:      %s\n", res.Owner)
			fmt.Fprintf(w, "Balance:    %s SOL\n", client.LamportsToSOL(res.Lamports))
			fmt.Fprintf(w, "Executable: %t\n", res.Executable)
			fmt.Fprintf(w, "Data:       %d bytes\n", len(res.Data)/2)
		})
	},
}

var (
	dataSize      uint64
	anchorAccount string
	fieldKey      string
)

type programAccount struct {
	Address  string `json:"address" yaml:"address"`
	Lamports uint64 `json:"lamports" yaml:"lamports"`
	Size     int    `json:"size" yaml:"size"`
}

var accountsCmd = &cobra.Command{
	Use:   "accounts <program-id>",
	Short: "List accounts owned by a program",
	Long: `List accounts owned by a program. --anchor keeps only accounts whose data starts
with the Anchor discriminator of the named account type. --key keeps only accounts
whose first field after the discriminator is the given public key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := address.DecodePublicKey(args[0])
		if err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}

		var accounts solrpc.GetProgramAccountsResult
		if fieldKey != "" {
			key, err := address.DecodePublicKey(fieldKey)
			if err != nil {
				return fmt.Errorf("invalid key: %w", err)
			}
			accounts, err = newClient().GetAnchorAccountsByKey(cmd.Context(), program, dataSize, key)
			if err != nil {
				return err
			}
		} else {
			filter := rpc.ProgramAccountsFilter{DataSize: dataSize}
			if anchorAccount != "" {
				d := anchor.AccountDiscriminator(anchorAccount)
				filter.Memcmp = d[:]
			}
			accounts, err = newClient().GetProgramAccounts(cmd.Context(), program, filter)
			if err != nil {
				return err
			}
		}

		res := make([]programAccount, 0, len(accounts))
		for _, ka := range accounts {
			pa := programAccount{Address: ka.Pubkey.String()}
			if ka.Account != nil {
				pa.Lamports = ka.Account.Lamports
				if ka.Account.Data != nil {
					pa.Size = len(ka.Account.Data.GetBinary())
				}
			}
			res = append(res, pa)
		}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			for _, pa := range res {
				fmt.Fprintf(w, "%s  %d bytes  %s SOL\n", pa.Address, pa.Size, client.LamportsToSOL(pa.Lamports))
			}
			fmt.Fprintf(w, "%d accounts\n", len(res))
		})
	},
}

type statusResult struct {
	Signature          string `json:"signature" yaml:"signature"`
	Found              bool   `json:"found" yaml:"found"`
	Slot               uint64 `json:"slot,omitempty" yaml:"slot,omitempty"`
	ConfirmationStatus string `json:"confirmation_status,omitempty" yaml:"confirmation_status,omitempty"`
	Error              string `json:"error,omitempty" yaml:"error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status <signature>...",
	Short: "Poll the confirmation status of signatures",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sigs := make([]solana.Signature, 0, len(args))
		for _, arg := range args {
			sig, err := decodeSignature(arg)
			if err != nil {
				return err
			}
			sigs = append(sigs, sig)
		}

		statuses, err := newClient().GetSignatureStatuses(cmd.Context(), true, sigs...)
		if err != nil {
			return err
		}

		res := make([]statusResult, len(sigs))
		for i, sig := range sigs {
			res[i].Signature = sig.String()
			if i >= len(statuses) || statuses[i] == nil {
				continue
			}
			st := statuses[i]
			res[i].Found = true
			res[i].Slot = st.Slot
			res[i].ConfirmationStatus = string(st.ConfirmationStatus)
			if st.Err != nil {
				res[i].Error = fmt.Sprint(st.Err)
			}
		}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			for _, r := range res {
				if !r.Found {
					fmt.Fprintf(w, "%s  not found\n", r.Signature)
					continue
				}
				fmt.Fprintf(w, "%s  %-9s  slot %d", r.Signature, r.ConfirmationStatus, r.Slot)
				if r.Error != "" {
					fmt.Fprintf(w, "  %s", r.Error)
				}
				fmt.Fprintln(w)
			}
		})
	},
}

func init() {
	accountsCmd.Flags().Uint64Var(&dataSize, "data-size", 0, "only accounts of exactly this many bytes")
	accountsCmd.Flags().StringVar(&anchorAccount, "anchor", "", "only accounts of this Anchor account type")
	accountsCmd.Flags().StringVar(&fieldKey, "key", "", "only accounts whose first field is this public key")
	accountsCmd.MarkFlagsMutuallyExclusive("anchor", "key")
	tokensCmd.Flags().StringVar(&tokenMint, "mint", "", "only token accounts of this mint")

	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(blockhashCmd)
	rootCmd.AddCommand(airdropCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tokensCmd)
}
