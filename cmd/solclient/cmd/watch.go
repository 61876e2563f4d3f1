package cmd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-solclient/internal/anchor"
	"github.com/lugondev/go-solclient/internal/metrics"
	"github.com/lugondev/go-solclient/internal/subscription"
	"github.com/lugondev/go-solclient/internal/ws"
	"github.com/lugondev/go-solclient/pkg/address"
	"github.com/lugondev/go-solclient/pkg/programlog"
)

var (
	metricsAddr    string
	reconnectDelay time.Duration
	eventNames     []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live updates over a websocket subscription",
}

var watchAccountCmd = &cobra.Command{
	Use:   "account <address>",
	Short: "Stream changes to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := address.DecodePublicKey(args[0])
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		return watch(cmd, subscription.Account(key, commitment()), printNotification)
	},
}

var watchLogsCmd = &cobra.Command{
	Use:   "logs [address]",
	Short: "Stream transaction logs, optionally only those mentioning address",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mention *solana.PublicKey
		if len(args) == 1 {
			key, err := address.DecodePublicKey(args[0])
			if err != nil {
				return fmt.Errorf("invalid address: %w", err)
			}
			mention = &key
		}
		render := printNotification
		if len(eventNames) > 0 {
			render = eventPrinter(eventNames)
		}
		return watch(cmd, subscription.Logs(mention, commitment()), render)
	},
}

var watchProgramCmd = &cobra.Command{
	Use:   "program <program-id>",
	Short: "Stream changes to accounts owned by a program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := address.DecodePublicKey(args[0])
		if err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
		return watch(cmd, subscription.Program(key, commitment()), printNotification)
	},
}

var watchSlotCmd = &cobra.Command{
	Use:   "slot",
	Short: "Stream slot progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watch(cmd, subscription.Slot(), printNotification)
	},
}

type notificationOutput struct {
	Method       string          `json:"method" yaml:"method"`
	Subscription uint64          `json:"subscription" yaml:"subscription"`
	Result       json.RawMessage `json:"result" yaml:"-"`
	Value        any             `json:"-" yaml:"result"`
}

// watch prints every notification for topic until the command context ends. A
// dropped socket is redialled and the subscription replayed.
func watch(cmd *cobra.Command, topic subscription.Topic, render func(io.Writer, subscription.Notification) error) error {
	ctx := cmd.Context()
	serveMetrics(ctx)

	conn, err := newConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub, err := conn.Subscribe(topic)
	if err != nil {
		return err
	}
	logger.Info("subscribed", "method", topic.Method, "id", sub.ID)

	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			if err := conn.Unsubscribe(sub.ID); err != nil {
				logger.Debug("unsubscribe on exit", "error", err)
			}
			return nil

		case <-conn.Done():
			logger.Warn("websocket dropped, reconnecting", "error", conn.Err(), "delay", reconnectDelay)
			if err := reconnect(ctx, conn); err != nil {
				return err
			}

		case n, ok := <-sub.Updates:
			if !ok {
				return errors.New("subscription closed by server")
			}
			if err := render(out, n); err != nil {
				return err
			}
		}
	}
}

func reconnect(ctx context.Context, conn *ws.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
		err := conn.Reconnect(ctx)
		if err == nil {
			return nil
		}
		logger.Warn("reconnect failed", "error", err)
	}
}

func printNotification(w io.Writer, n subscription.Notification) error {
	o := notificationOutput{Method: n.Method, Subscription: n.Subscription, Result: n.Result}
	if err := json.Unmarshal(n.Result, &o.Value); err != nil {
		return err
	}
	return printResult(w, o, func(w io.Writer) {
		fmt.Fprintf(w, "[%s] %s %s\n", time.Now().Format(time.RFC3339), n.Method, n.Result)
	})
}

type logsValue struct {
	Value struct {
		Signature string   `json:"signature"`
		Logs      []string `json:"logs"`
	} `json:"value"`
}

type eventOutput struct {
	Signature string `json:"signature" yaml:"signature"`
	Event     string `json:"event" yaml:"event"`
	Program   string `json:"program" yaml:"program"`
	Data      string `json:"data" yaml:"data"`
}

// eventPrinter prints only the program data lines whose discriminator matches one
// of the named events. Data is hex without the discriminator.
func eventPrinter(names []string) func(io.Writer, subscription.Notification) error {
	discs := make([]anchor.Discriminator, len(names))
	for i, name := range names {
		discs[i] = anchor.EventDiscriminator(name)
	}
	return func(w io.Writer, n subscription.Notification) error {
		var v logsValue
		if err := n.Decode(&v); err != nil {
			return err
		}
		for _, e := range programlog.Data(v.Value.Logs) {
			for i, d := range discs {
				if !d.Matches(e.Payload) {
					continue
				}
				o := eventOutput{
					Signature: v.Value.Signature,
					Event:     names[i],
					Program:   e.Program,
					Data:      hex.EncodeToString(e.Payload[anchor.DiscriminatorSize:]),
				}
				if err := printResult(w, o, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s %s %s\n", o.Signature, o.Event, o.Program, o.Data)
				}); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// serveMetrics exposes Prometheus metrics on --metrics-addr while ctx lives.
func serveMetrics(ctx context.Context) {
	if metricsAddr == "" {
		return
	}
	backend, err := prometheusBackend(ctx)
	if err != nil {
		logger.Warn("metrics init", "error", err)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", backend.Handler())
	srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("serving metrics", "addr", metricsAddr)
}

// prometheusBackend returns the backend installed from config, adding one to the
// collection only when metrics.enabled left it out.
func prometheusBackend(ctx context.Context) (*metrics.PrometheusMetrics, error) {
	if prom != nil {
		return prom, nil
	}
	p := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}
	collect.Add(p)
	prom = p
	return p, nil
}

func decodeSignature(s string) (solana.Signature, error) {
	var sig solana.Signature
	raw, err := address.DecodeLength(s, len(sig))
	if err != nil {
		return sig, fmt.Errorf("invalid signature: %w", err)
	}
	copy(sig[:], raw)
	return sig, nil
}

func init() {
	watchCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	watchLogsCmd.Flags().StringSliceVar(&eventNames, "event", nil, "only print program data matching these event names")
	watchCmd.PersistentFlags().DurationVar(&reconnectDelay, "reconnect-delay", 2*time.Second, "wait between reconnect attempts")

	rootCmd.AddCommand(watchCmd)
	watchCmd.AddCommand(watchAccountCmd, watchLogsCmd, watchProgramCmd, watchSlotCmd)
}
