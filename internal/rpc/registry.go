package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lugondev/go-solclient/internal/common"
	cerrors "github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/internal/metrics"
)

var errNotObject = fmt.Errorf("response is not a JSON object")

// State is the lifecycle position of a request.
type State int

const (
	StateCreated State = iota
	StateAwaitingResponse
	StateCompleted
	StateFailed

	// StateUnknown is reported for ids the registry does not hold: never submitted,
	// or already resolved.
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Result is the outcome of a request. Exactly one of Response and Err is set.
type Result struct {
	// Body is the raw response body on success.
	Body []byte

	// Response is the parsed body on success.
	Response *Response

	// Err is the failure: an RPC error object, a parse failure, a transport failure
	// or a cancellation.
	Err error
}

// OK reports whether the request succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Decode unmarshals the result member into v.
func (r Result) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if r.Response == nil || len(r.Response.Result) == 0 {
		return cerrors.ParseFailure(fmt.Errorf("response has no result"))
	}
	if err := json.Unmarshal(r.Response.Result, v); err != nil {
		return cerrors.ParseFailure(err)
	}
	return nil
}

// Handle tracks one in-flight request.
type Handle struct {
	id     uint64
	method string
	body   []byte
	start  time.Time

	done   chan struct{}
	result Result
}

// ID returns the request id carried in the body.
func (h *Handle) ID() uint64 { return h.id }

// Method returns the RPC method name.
func (h *Handle) Method() string { return h.method }

// Body returns the serialised request.
func (h *Handle) Body() []byte { return h.body }

// Done is closed once the result is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns AwaitingResponse until the request resolves, then Completed or Failed.
// A canceled request is Failed.
func (h *Handle) State() State {
	select {
	case <-h.done:
		if h.result.Err != nil {
			return StateFailed
		}
		return StateCompleted
	default:
		return StateAwaitingResponse
	}
}

// Wait blocks until the result arrives or ctx ends. It may be called more than once.
func (h *Handle) Wait(ctx context.Context) Result {
	select {
	case <-h.done:
		return h.result
	case <-ctx.Done():
		return Result{Err: cerrors.Wrap(ctx.Err(), fmt.Sprintf("waiting for %s (id %d)", h.method, h.id))}
	}
}

// Registry tracks in-flight requests by id.
type Registry struct {
	common.LoggerMixin

	ids     *IDCounter
	metrics metrics.Metrics

	mu      sync.Mutex
	pending map[uint64]*Handle
}

// NewRegistry creates a registry allocating ids from ids. A nil counter gets a private one.
func NewRegistry(ids *IDCounter) *Registry {
	if ids == nil {
		ids = NewIDCounter()
	}
	return &Registry{
		LoggerMixin: common.NewLoggerMixin(),
		ids:         ids,
		metrics:     metrics.NewNoopMetrics(),
		pending:     make(map[uint64]*Handle),
	}
}

// WithLogger sets a custom logger.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.SetLogger(logger)
	return r
}

// WithMetrics sets the metrics backend.
func (r *Registry) WithMetrics(m metrics.Metrics) *Registry {
	r.metrics = metrics.OrNoop(m)
	return r
}

// IDs returns the counter shared by this registry.
func (r *Registry) IDs() *IDCounter {
	return r.ids
}

// Submit allocates an id, serialises the request and registers it as awaiting a response.
func (r *Registry) Submit(method string, params ...any) (*Handle, error) {
	id := r.ids.Next()
	body, err := NewRequest(id, method, params...).Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	h := &Handle{
		id:     id,
		method: method,
		body:   body,
		done:   make(chan struct{}),
		start:  time.Now(),
	}

	r.mu.Lock()
	r.pending[id] = h
	inFlight := len(r.pending)
	r.mu.Unlock()

	ctx := context.Background()
	_ = r.metrics.IncrementCounter(ctx, metrics.MetricRPCRequests, 1)
	_ = r.metrics.UpdateGauge(ctx, metrics.MetricRPCRequestsInFlight, float64(inFlight))
	return h, nil
}

// Complete resolves request id from a raw response body. A top-level error object
// fails the request with its message; an unparsable body fails it with a parse
// failure; anything else completes it. Unknown or already resolved ids are ignored
// and report StateUnknown.
func (r *Registry) Complete(id uint64, raw []byte) State {
	resp, err := ParseResponse(raw)
	if err != nil {
		return r.resolve(id, Result{Err: cerrors.ParseFailure(err)})
	}
	if resp.Error != nil {
		rpcErr := cerrors.RPCError(resp.Error.Message, resp.Error.Data)
		if rpcErr.Details == nil {
			rpcErr.Details = map[string]any{}
		}
		rpcErr.Details["code"] = resp.Error.Code
		return r.resolve(id, Result{Err: rpcErr})
	}
	return r.resolve(id, Result{Body: raw, Response: resp})
}

// Fail resolves request id with a terminal error.
func (r *Registry) Fail(id uint64, err error) {
	r.resolve(id, Result{Err: err})
}

// Cancel detaches request id. Its waiter gets ErrRequestCanceled and a later response
// is dropped. Nothing is sent to the server.
func (r *Registry) Cancel(id uint64) {
	r.resolve(id, Result{Err: cerrors.ErrRequestCanceled})
}

// Pending returns the number of requests awaiting a response.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// State reports whether id is still awaiting a response. Resolved requests are not
// retained, so they report StateUnknown; their Handle keeps the terminal state.
func (r *Registry) State(id uint64) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[id]; ok {
		return StateAwaitingResponse, true
	}
	return StateUnknown, false
}

func (r *Registry) resolve(id uint64, res Result) State {
	r.mu.Lock()
	h, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	inFlight := len(r.pending)
	r.mu.Unlock()

	if !ok {
		r.GetLogger().Debug("dropping response for unknown request", "id", id)
		return StateUnknown
	}

	ctx := context.Background()
	_ = r.metrics.UpdateGauge(ctx, metrics.MetricRPCRequestsInFlight, float64(inFlight))
	_ = r.metrics.RecordHistogram(ctx, metrics.MetricRPCRequestDuration, time.Since(h.start).Seconds())
	if res.Err != nil {
		_ = r.metrics.IncrementCounter(ctx, metrics.MetricRPCRequestErrors, 1)
		r.GetLogger().Debug("request failed", "id", id, "method", h.method, "error", res.Err)
	}

	h.result = res
	close(h.done)
	return h.State()
}

// Exchange sends the request body through t and resolves the handle with the outcome.
func (r *Registry) Exchange(ctx context.Context, t Transport, h *Handle) {
	raw, err := t.Send(ctx, h.Body())
	if err != nil {
		r.GetLogger().Error("transport failure", "id", h.ID(), "method", h.Method(), "error", err)
		r.Fail(h.ID(), cerrors.TransportFailure(err))
		return
	}
	r.Complete(h.ID(), raw)
}

// Call submits, exchanges and waits in one step.
func (r *Registry) Call(ctx context.Context, t Transport, method string, params ...any) Result {
	h, err := r.Submit(method, params...)
	if err != nil {
		return Result{Err: err}
	}
	r.Exchange(ctx, t, h)
	return h.Wait(ctx)
}

// CallMethod is Call for a prepared Method.
func (r *Registry) CallMethod(ctx context.Context, t Transport, m Method) Result {
	return r.Call(ctx, t, m.Name, m.Params...)
}
