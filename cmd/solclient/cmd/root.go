package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lugondev/go-solclient/internal/client"
	"github.com/lugondev/go-solclient/internal/common"
	"github.com/lugondev/go-solclient/internal/config"
	"github.com/lugondev/go-solclient/internal/metrics"
	"github.com/lugondev/go-solclient/internal/rpc"
	"github.com/lugondev/go-solclient/internal/storage"
	"github.com/lugondev/go-solclient/internal/subscription"
	"github.com/lugondev/go-solclient/internal/ws"

	_ "github.com/lugondev/go-solclient/internal/storage/mongo"
	_ "github.com/lugondev/go-solclient/internal/storage/postgres"
	_ "github.com/lugondev/go-solclient/internal/storage/sqlite"
)

var (
	cfgFile string
	output  string

	cfg     *config.Config
	logger  *slog.Logger
	collect *metrics.Collection
	prom    *metrics.PrometheusMetrics

	// ids is shared by every request and subscription of the process.
	ids = rpc.NewIDCounter()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "solclient",
	Short: "solclient - build, send and track Solana transactions",
	Long: `solclient talks to a Solana cluster over JSON-RPC and websocket subscriptions.

It provides commands for:
- Wallet management and program derived addresses
- Balance, block hash and airdrop queries
- Building, sending and tracking transfers
- Watching accounts, logs and slots`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.solclient.yaml or $HOME/.solclient.yaml)")
	flags.String("rpc", "", "Solana RPC endpoint (derived from --network when empty)")
	flags.String("ws", "", "Solana websocket endpoint (derived from the RPC endpoint when empty)")
	flags.String("network", "devnet", "Solana network (mainnet, devnet, testnet, localnet)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVarP(&output, "output", "o", "text", "output format (text, json, yaml)")

	for key, flag := range map[string]string{
		"solana.rpc":     "rpc",
		"solana.ws":      "ws",
		"solana.network": "network",
		"log.level":      "log-level",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding flag: %v\n", err)
		}
	}
}

func initConfig() error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	logger = common.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}

	collect = metrics.NewCollection()
	prom = nil
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
		collect.Add(prom)
	}
	if strings.EqualFold(cfg.Log.Level, "debug") {
		collect.Add(metrics.NewLogMetrics(logger))
	}
	return collect.Initialize(context.Background())
}

func newClient() *client.Client {
	transport := rpc.NewHTTPTransport(cfg.Solana.GetRPCEndpoint())
	return client.New(transport,
		client.WithRegistry(rpc.NewRegistry(ids)),
		client.WithLogger(logger),
		client.WithMetrics(collect),
		client.WithCommitment(commitment()),
	)
}

func commitment() solrpc.CommitmentType {
	return solrpc.CommitmentType(cfg.Solana.Commitment)
}

func newConn(ctx context.Context) (*ws.Conn, error) {
	registry := subscription.NewRegistry(ids).
		WithLogger(logger).
		WithMetrics(collect).
		WithBufferSize(cfg.Websocket.EventBuffer).
		WithErrorSink(func(err error) { logger.Warn("subscription error", "error", err) })

	conn := ws.New(cfg.Solana.GetWSEndpoint(), registry, ws.Config{
		HandshakeTimeout: cfg.Websocket.HandshakeTimeout,
		PingInterval:     cfg.Websocket.PingInterval,
	}).WithLogger(logger).WithMetrics(collect)

	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// openRepository returns nil when storage is disabled.
func openRepository(ctx context.Context) (storage.Repository, func(), error) {
	if !cfg.Database.Enabled {
		return nil, func() {}, nil
	}
	cm, err := storage.NewConnectionManager(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	repo, err := cm.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { _ = cm.Close() }, nil
}

// printResult writes v as json or yaml, or calls text for the default format.
func printResult(w io.Writer, v any, text func(io.Writer)) error {
	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
