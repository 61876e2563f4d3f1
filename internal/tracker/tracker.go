// Package tracker follows submitted transactions until the cluster reports them
// confirmed or failed and records the outcome.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/lugondev/go-solclient/internal/common"
	cerrors "github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/internal/metrics"
	"github.com/lugondev/go-solclient/internal/storage"
	"github.com/lugondev/go-solclient/internal/subscription"
)

// Subscriber is the part of a websocket connection the tracker needs.
type Subscriber interface {
	Subscribe(topic subscription.Topic) (subscription.Subscription, error)
	Unsubscribe(id subscription.ID) error
	Registry() *subscription.Registry
}

// Tracker waits for signature notifications.
type Tracker struct {
	common.LoggerMixin

	conn       Subscriber
	repo       storage.TransactionRecordRepository
	metrics    metrics.Metrics
	commitment solrpc.CommitmentType
}

// New creates a tracker. repo may be nil, in which case outcomes are only returned.
func New(conn Subscriber, repo storage.TransactionRecordRepository) *Tracker {
	return &Tracker{
		LoggerMixin: common.NewLoggerMixin(),
		conn:        conn,
		repo:        repo,
		metrics:     metrics.NewNoopMetrics(),
		commitment:  solrpc.CommitmentConfirmed,
	}
}

// WithLogger sets a custom logger.
func (t *Tracker) WithLogger(logger *slog.Logger) *Tracker {
	t.SetLogger(logger)
	return t
}

// WithMetrics sets the metrics backend.
func (t *Tracker) WithMetrics(m metrics.Metrics) *Tracker {
	t.metrics = metrics.OrNoop(m)
	return t
}

// WithCommitment sets the commitment the signature must reach.
func (t *Tracker) WithCommitment(c solrpc.CommitmentType) *Tracker {
	t.commitment = c
	return t
}

// signatureResult is the result member of a signatureNotification.
type signatureResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value json.RawMessage `json:"value"`
}

// Track records sig as pending and blocks until it is confirmed or failed, or ctx
// ends. On ctx expiry the subscription is dropped and the record stays pending.
func (t *Tracker) Track(ctx context.Context, sig solana.Signature, lamports uint64) (*storage.TransactionRecord, error) {
	rec, err := t.pendingRecord(ctx, sig, lamports)
	if err != nil {
		return nil, err
	}
	if rec.Status.Final() {
		return rec, nil
	}

	sub, err := t.conn.Subscribe(subscription.Signature(sig, t.commitment))
	if err != nil {
		return rec, fmt.Errorf("subscribing to %s: %w", sig, err)
	}
	t.GetLogger().Debug("tracking transaction", "signature", sig, "subscription", sub.ID)

	for {
		select {
		case <-ctx.Done():
			t.cancel(sub.ID)
			return rec, ctx.Err()

		case n, ok := <-sub.Updates:
			if !ok {
				return rec, fmt.Errorf("subscription for %s closed before confirmation", sig)
			}

			var res signatureResult
			if err := n.Decode(&res); err != nil {
				return rec, err
			}
			// receivedSignature notifications carry a string value.
			var value struct {
				Err json.RawMessage `json:"err"`
			}
			if err := json.Unmarshal(res.Value, &value); err != nil {
				continue
			}

			// The server drops signature subscriptions after the first result.
			t.conn.Registry().Forget(sub.ID)
			return t.finish(ctx, rec, res.Context.Slot, value.Err)
		}
	}
}

func (t *Tracker) pendingRecord(ctx context.Context, sig solana.Signature, lamports uint64) (*storage.TransactionRecord, error) {
	if t.repo != nil {
		existing, err := t.repo.FindBySignature(ctx, sig.String())
		if err != nil {
			return nil, fmt.Errorf("loading record for %s: %w", sig, err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	rec := storage.NewTransactionRecord(sig.String(), lamports)
	if t.repo != nil {
		if err := t.repo.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("saving record for %s: %w", sig, err)
		}
	}
	return rec, nil
}

func (t *Tracker) finish(ctx context.Context, rec *storage.TransactionRecord, slot uint64, txErr json.RawMessage) (*storage.TransactionRecord, error) {
	rec.Slot = slot
	rec.Status = storage.StatusConfirmed
	rec.Error = ""
	if len(txErr) > 0 && string(txErr) != "null" {
		rec.Status = storage.StatusFailed
		rec.Error = string(txErr)
	}

	if rec.Status == storage.StatusConfirmed {
		_ = t.metrics.IncrementCounter(ctx, metrics.MetricTransactionsConfirmed, 1)
		t.GetLogger().Info("transaction confirmed", "signature", rec.Signature, "slot", slot)
	} else {
		_ = t.metrics.IncrementCounter(ctx, metrics.MetricTransactionsFailed, 1)
		t.GetLogger().Warn("transaction failed", "signature", rec.Signature, "slot", slot, "error", rec.Error)
	}

	if t.repo != nil {
		if err := t.repo.UpdateStatus(ctx, rec.Signature, rec.Status, rec.Slot, rec.Error); err != nil {
			return rec, fmt.Errorf("updating record for %s: %w", rec.Signature, err)
		}
	}
	return rec, nil
}

func (t *Tracker) cancel(id subscription.ID) {
	if err := t.conn.Unsubscribe(id); err != nil {
		if cerrors.Is(err, cerrors.ErrNotConfirmed) {
			t.conn.Registry().Forget(id)
			return
		}
		t.GetLogger().Debug("unsubscribing", "id", id, "error", err)
	}
}

// Resume tracks every pending record in the repository concurrently and returns once
// each has settled or ctx ends.
func (t *Tracker) Resume(ctx context.Context, limit int) ([]*storage.TransactionRecord, error) {
	if t.repo == nil {
		return nil, nil
	}
	pending, err := t.repo.FindByStatus(ctx, storage.StatusPending, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("loading pending records: %w", err)
	}

	results := make([]*storage.TransactionRecord, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range pending {
		i, rec := i, rec
		sig, err := solana.SignatureFromBase58(rec.Signature)
		if err != nil {
			t.GetLogger().Warn("skipping record with invalid signature", "signature", rec.Signature, "error", err)
			results[i] = rec
			continue
		}
		g.Go(func() error {
			out, err := t.Track(gctx, sig, rec.Lamports)
			results[i] = out
			return err
		})
	}
	return results, g.Wait()
}
