package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-solclient/internal/client"
	"github.com/lugondev/go-solclient/internal/storage"
	"github.com/lugondev/go-solclient/internal/tracker"
	"github.com/lugondev/go-solclient/pkg/address"
)

var (
	transferTrack bool
	trackTimeout  time.Duration
	resumeLimit   int
)

type transferResult struct {
	Signature string                     `json:"signature" yaml:"signature"`
	From      string                     `json:"from" yaml:"from"`
	To        string                     `json:"to" yaml:"to"`
	Lamports  uint64                     `json:"lamports" yaml:"lamports"`
	Record    *storage.TransactionRecord `json:"record,omitempty" yaml:"record,omitempty"`
}

var transferCmd = &cobra.Command{
	Use:   "transfer <to> <sol>",
	Short: "Send SOL from the --keypair wallet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := loadWallet()
		if err != nil {
			return err
		}
		to, err := address.DecodePublicKey(args[0])
		if err != nil {
			return fmt.Errorf("invalid recipient: %w", err)
		}
		lamports, err := client.ParseSOL(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var trk *tracker.Tracker
		var cleanup func()
		if transferTrack {
			// Connect first so a websocket failure aborts before anything is sent.
			if trk, cleanup, err = newTracker(ctx); err != nil {
				return err
			}
			defer cleanup()
		}

		sig, err := newClient().Transfer(ctx, from, to, lamports)
		if err != nil {
			return err
		}
		res := transferResult{Signature: sig.String(), From: from.Address(), To: to.String(), Lamports: lamports}

		if trk != nil {
			tctx, cancel := context.WithTimeout(ctx, trackTimeout)
			defer cancel()
			rec, err := trk.Track(tctx, sig, lamports)
			res.Record = rec
			if err != nil {
				return err
			}
		}

		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			fmt.Fprintf(w, "Sent %s SOL to %s\n", client.LamportsToSOL(lamports), res.To)
			fmt.Fprintf(w, "  Signature: %s\n", res.Signature)
			if res.Record != nil {
				fmt.Fprintf(w, "  Status:    %s (slot %d)\n", res.Record.Status, res.Record.Slot)
				if res.Record.Error != "" {
					fmt.Fprintf(w, "  Error:     %s\n", res.Record.Error)
				}
			}
		})
	},
}

var trackCmd = &cobra.Command{
	Use:   "track [signature]",
	Short: "Wait for a transaction to confirm",
	Long:  `Wait for a signature to be confirmed or failed. Without a signature, every pending record in the database is resumed.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), trackTimeout)
		defer cancel()

		trk, cleanup, err := newTracker(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		var records []*storage.TransactionRecord
		if len(args) == 0 {
			if records, err = trk.Resume(ctx, resumeLimit); err != nil {
				return err
			}
		} else {
			sig, err := decodeSignature(args[0])
			if err != nil {
				return err
			}
			rec, err := trk.Track(ctx, sig, 0)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}

		return printResult(cmd.OutOrStdout(), records, func(w io.Writer) {
			for _, rec := range records {
				fmt.Fprintf(w, "%s  %-9s  slot %d", rec.Signature, rec.Status, rec.Slot)
				if rec.Error != "" {
					fmt.Fprintf(w, "  %s", rec.Error)
				}
				fmt.Fprintln(w)
			}
		})
	},
}

func newTracker(ctx context.Context) (*tracker.Tracker, func(), error) {
	conn, err := newConn(ctx)
	if err != nil {
		return nil, nil, err
	}
	repo, closeRepo, err := openRepository(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	var records storage.TransactionRecordRepository
	if repo != nil {
		records = repo.Transactions()
	}
	trk := tracker.New(conn, records).
		WithLogger(logger).
		WithMetrics(collect).
		WithCommitment(commitment())

	return trk, func() {
		_ = conn.Close()
		closeRepo()
	}, nil
}

func init() {
	transferCmd.Flags().BoolVar(&transferTrack, "track", false, "wait for confirmation and record the outcome")
	for _, c := range []*cobra.Command{transferCmd, trackCmd} {
		c.Flags().DurationVar(&trackTimeout, "timeout", 90*time.Second, "how long to wait for confirmation")
	}
	trackCmd.Flags().IntVar(&resumeLimit, "limit", 100, "maximum pending records to resume")

	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(trackCmd)
}
