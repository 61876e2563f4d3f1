// Package client is a typed Solana RPC client on top of the request registry.
//
// Every call allocates an id from the registry, goes through the transport and is
// decoded into the matching solana-go rpc result type.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/lugondev/go-solclient/internal/common"
	cerrors "github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/internal/metrics"
	"github.com/lugondev/go-solclient/internal/rpc"
	"github.com/lugondev/go-solclient/internal/transaction"
)

// Client wraps a transport and a request registry.
type Client struct {
	common.LoggerMixin

	transport  rpc.Transport
	registry   *rpc.Registry
	commitment solrpc.CommitmentType
	metrics    metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry shares a registry, and so an id counter, with other components.
func WithRegistry(r *rpc.Registry) Option {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithCommitment sets the commitment used by reads.
func WithCommitment(commitment solrpc.CommitmentType) Option {
	return func(c *Client) { c.commitment = commitment }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.SetLogger(logger) }
}

// WithMetrics sets the metrics backend for the client and its registry.
func WithMetrics(m metrics.Metrics) Option {
	return func(c *Client) { c.metrics = metrics.OrNoop(m) }
}

// New creates a client sending requests through t.
func New(t rpc.Transport, opts ...Option) *Client {
	c := &Client{
		LoggerMixin: common.NewLoggerMixin(),
		transport:   t,
		commitment:  solrpc.CommitmentConfirmed,
		metrics:     metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = rpc.NewRegistry(nil)
	}
	c.registry.WithLogger(c.GetLogger()).WithMetrics(c.metrics)
	return c
}

// NewFromEndpoint creates a client speaking HTTP to endpoint.
func NewFromEndpoint(endpoint string, opts ...Option) *Client {
	return New(rpc.NewHTTPTransport(endpoint), opts...)
}

// Registry returns the request registry.
func (c *Client) Registry() *rpc.Registry {
	return c.registry
}

// Commitment returns the commitment used by reads.
func (c *Client) Commitment() solrpc.CommitmentType {
	return c.commitment
}

func (c *Client) call(ctx context.Context, m rpc.Method, out any) error {
	res := c.registry.CallMethod(ctx, c.transport, m)
	if err := res.Decode(out); err != nil {
		return fmt.Errorf("%s: %w", m.Name, err)
	}
	return nil
}

// GetBalance returns the balance of an account in lamports.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var out solrpc.GetBalanceResult
	if err := c.call(ctx, rpc.GetBalance(account, c.commitment), &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetLatestBlockhash returns a recent block hash and the height it stays valid to.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*solrpc.LatestBlockhashResult, error) {
	var out solrpc.GetLatestBlockhashResult
	if err := c.call(ctx, rpc.GetLatestBlockhash(c.commitment), &out); err != nil {
		return nil, err
	}
	if out.Value == nil {
		return nil, fmt.Errorf("getLatestBlockhash: empty value")
	}
	return out.Value, nil
}

// GetAccountInfo returns the account, or nil when it does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solrpc.Account, error) {
	var out solrpc.GetAccountInfoResult
	if err := c.call(ctx, rpc.GetAccountInfo(account, c.commitment), &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetProgramAccounts lists the accounts owned by program that pass filter.
func (c *Client) GetProgramAccounts(ctx context.Context, program solana.PublicKey, filter rpc.ProgramAccountsFilter) (solrpc.GetProgramAccountsResult, error) {
	var out solrpc.GetProgramAccountsResult
	if err := c.call(ctx, rpc.GetProgramAccounts(program, filter), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAnchorAccountsByKey lists accounts of program whose first field after the Anchor
// discriminator is key. A zero size skips the size filter.
func (c *Client) GetAnchorAccountsByKey(ctx context.Context, program solana.PublicKey, size uint64, key solana.PublicKey) (solrpc.GetProgramAccountsResult, error) {
	var out solrpc.GetProgramAccountsResult
	if err := c.call(ctx, rpc.GetAnchorAccountsByKey(program, size, key), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMultipleAccounts returns lamports and ownership of each account in order. Data
// is not fetched. Missing accounts have a nil entry.
func (c *Client) GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) ([]*solrpc.Account, error) {
	var out solrpc.GetMultipleAccountsResult
	if err := c.call(ctx, rpc.GetMultipleAccounts(accounts), &out); err != nil {
		return nil, err
	}
	if len(out.Value) != len(accounts) {
		return nil, fmt.Errorf("getMultipleAccounts: got %d accounts for %d keys", len(out.Value), len(accounts))
	}
	return out.Value, nil
}

// TokenBalance is one SPL token account of an owner.
type TokenBalance struct {
	Address  solana.PublicKey
	Mint     string
	Amount   string
	Decimals uint8
	UIAmount string
}

type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount         string `json:"amount"`
				Decimals       uint8  `json:"decimals"`
				UIAmountString string `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// GetTokenAccounts lists the token accounts of owner, only those of mint when it is
// not nil.
func (c *Client) GetTokenAccounts(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) ([]TokenBalance, error) {
	m := rpc.GetTokenAccountsByOwner(owner)
	if mint != nil {
		m = rpc.GetTokenAccountsByMint(owner, *mint)
	}
	var out solrpc.GetTokenAccountsResult
	if err := c.call(ctx, m, &out); err != nil {
		return nil, err
	}

	balances := make([]TokenBalance, 0, len(out.Value))
	for _, ta := range out.Value {
		if ta == nil {
			continue
		}
		b := TokenBalance{Address: ta.Pubkey}
		if ta.Account.Data != nil && len(ta.Account.Data.GetRawJSON()) > 0 {
			var parsed parsedTokenAccount
			if err := json.Unmarshal(ta.Account.Data.GetRawJSON(), &parsed); err != nil {
				return nil, fmt.Errorf("%s: token account %s: %w", m.Name, ta.Pubkey, cerrors.ParseFailure(err))
			}
			info := parsed.Parsed.Info
			b.Mint = info.Mint
			b.Amount = info.TokenAmount.Amount
			b.Decimals = info.TokenAmount.Decimals
			b.UIAmount = info.TokenAmount.UIAmountString
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// GetFeeForMessage returns the fee in lamports for a serialised message. ok is false
// when the block hash in the message has expired.
func (c *Client) GetFeeForMessage(ctx context.Context, message []byte) (fee uint64, ok bool, err error) {
	var out solrpc.GetFeeForMessageResult
	if err := c.call(ctx, rpc.GetFeeForMessage(message, c.commitment), &out); err != nil {
		return 0, false, err
	}
	if out.Value == nil {
		return 0, false, nil
	}
	return *out.Value, true, nil
}

// SendTransaction submits a signed wire transaction and returns its signature.
func (c *Client) SendTransaction(ctx context.Context, tx []byte, skipPreflight bool) (solana.Signature, error) {
	var out string
	if err := c.call(ctx, rpc.SendTransaction(tx, skipPreflight), &out); err != nil {
		return solana.Signature{}, err
	}
	return parseSignature(out)
}

// RequestAirdrop asks for lamports on a test cluster. Zero requests one SOL.
func (c *Client) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	var out string
	if err := c.call(ctx, rpc.RequestAirdrop(account, lamports), &out); err != nil {
		return solana.Signature{}, err
	}
	return parseSignature(out)
}

// GetSignatureStatuses returns the status of each signature in order. Unknown
// signatures have a nil entry.
func (c *Client) GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) ([]*solrpc.SignatureStatusesResult, error) {
	var out solrpc.GetSignatureStatusesResult
	if err := c.call(ctx, rpc.GetSignatureStatuses(searchHistory, sigs...), &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// Transfer builds, signs and sends a system transfer paid by from.
func (c *Client) Transfer(ctx context.Context, from transaction.Signer, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	latest, err := c.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	b := transaction.NewBuilder(latest.Blockhash.String()).WithLogger(c.GetLogger())
	if err := b.AddInstruction(transaction.Transfer(from.PublicKey(), to, lamports)); err != nil {
		return solana.Signature{}, err
	}
	tx, err := b.Build(from)
	if err != nil {
		return solana.Signature{}, err
	}
	_ = c.metrics.IncrementCounter(ctx, metrics.MetricTransactionsBuilt, 1)

	sig, err := c.SendTransaction(ctx, tx, false)
	if err != nil {
		return solana.Signature{}, err
	}
	c.GetLogger().Info("transfer sent", "signature", sig, "from", from.PublicKey(), "to", to, "lamports", lamports)
	return sig, nil
}

func parseSignature(s string) (solana.Signature, error) {
	sig, err := solana.SignatureFromBase58(s)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("invalid signature %q: %w", s, err)
	}
	return sig, nil
}
