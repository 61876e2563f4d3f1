// Package subscription tracks live push subscriptions multiplexed over one socket.
//
// Subscribe registers an envelope under its request id and returns the subscribe body.
// Every inbound frame goes through OnMessage, which tells confirmations (numeric id)
// from notifications (params object) and error frames (error object). A confirmation
// binds the server-assigned subscription number to the envelope; notifications are
// then routed by that number. Unsubscribe builds the matching unsubscribe body from the
// confirmed number and the envelope is dropped once the server answers true.
package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/lugondev/go-solclient/internal/common"
	cerrors "github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/internal/metrics"
	"github.com/lugondev/go-solclient/internal/rpc"
)

// ID identifies a subscription for its whole life. It is the id of the first
// subscribe request and stays the same across reconnects.
type ID uint64

// State is the lifecycle position of a subscription.
type State int

const (
	StateRequested State = iota
	StateConfirmed
	StateNotifying
	StateUnsubscribed
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateConfirmed:
		return "confirmed"
	case StateNotifying:
		return "notifying"
	case StateUnsubscribed:
		return "unsubscribed"
	default:
		return "unknown"
	}
}

// DefaultBufferSize is the per-subscription notification buffer.
const DefaultBufferSize = 16

// Notification is one pushed update.
type Notification struct {
	// Subscription is the server-assigned number the update was routed by.
	Subscription uint64

	// Method is the notification method, e.g. accountNotification.
	Method string

	// Result is the params.result member.
	Result json.RawMessage
}

// Decode unmarshals the result into v.
func (n Notification) Decode(v any) error {
	if err := json.Unmarshal(n.Result, v); err != nil {
		return cerrors.ParseFailure(err)
	}
	return nil
}

// Subscription is what callers hold after Subscribe.
type Subscription struct {
	// ID addresses the subscription in the registry.
	ID ID

	// Body is the subscribe message to send.
	Body []byte

	// Updates receives notifications in delivery order. It is closed when the
	// subscription is removed.
	Updates <-chan Notification
}

type envelope struct {
	id        ID
	requestID uint64
	topic     Topic
	state     State
	number    uint64
	confirmed bool
	last      *Notification
	updates   chan Notification
}

// Registry owns every subscription on one connection.
type Registry struct {
	common.LoggerMixin

	ids        *rpc.IDCounter
	metrics    metrics.Metrics
	bufferSize int
	onError    func(error)

	mu            sync.RWMutex
	envelopes     map[ID]*envelope
	requests      map[uint64]ID
	byNumber      map[uint64]ID
	unsubscribing map[uint64]ID
}

// NewRegistry creates a registry allocating request ids from ids.
func NewRegistry(ids *rpc.IDCounter) *Registry {
	if ids == nil {
		ids = rpc.NewIDCounter()
	}
	return &Registry{
		LoggerMixin:   common.NewLoggerMixin(),
		ids:           ids,
		metrics:       metrics.NewNoopMetrics(),
		bufferSize:    DefaultBufferSize,
		envelopes:     make(map[ID]*envelope),
		requests:      make(map[uint64]ID),
		byNumber:      make(map[uint64]ID),
		unsubscribing: make(map[uint64]ID),
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

// WithBufferSize sets the per-subscription notification buffer.
func (r *Registry) WithBufferSize(n int) *Registry {
	if n > 0 {
		r.bufferSize = n
	}
	return r
}

// WithErrorSink receives error frames, rejected unsubscribes and malformed frames.
func (r *Registry) WithErrorSink(fn func(error)) *Registry {
	r.onError = fn
	return r
}

// Subscribe registers topic and returns the message to send.
func (r *Registry) Subscribe(topic Topic) (Subscription, error) {
	requestID := r.ids.Next()
	body, err := rpc.NewRequest(requestID, topic.Method, topic.Params...).Marshal()
	if err != nil {
		return Subscription{}, fmt.Errorf("failed to encode %s: %w", topic.Method, err)
	}

	env := &envelope{
		id:        ID(requestID),
		requestID: requestID,
		topic:     topic,
		state:     StateRequested,
		updates:   make(chan Notification, r.bufferSize),
	}

	r.mu.Lock()
	r.envelopes[env.id] = env
	r.requests[requestID] = env.id
	active := len(r.envelopes)
	r.mu.Unlock()

	_ = r.metrics.UpdateGauge(context.Background(), metrics.MetricSubscriptionsActive, float64(active))
	r.GetLogger().Debug("subscription requested", "id", requestID, "method", topic.Method)

	return Subscription{ID: env.id, Body: body, Updates: env.updates}, nil
}

// Unsubscribe returns the unsubscribe message for a confirmed subscription. The
// envelope stays registered until the server confirms with true.
func (r *Registry) Unsubscribe(id ID) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	env, ok := r.envelopes[id]
	if !ok {
		return nil, cerrors.NewError(cerrors.ErrCodeSubscriptionNotFound, fmt.Sprintf("no subscription %d", id))
	}
	if !env.confirmed {
		return nil, cerrors.NotConfirmed(env.requestID)
	}

	requestID := r.ids.Next()
	body, err := rpc.NewRequest(requestID, env.topic.UnsubscribeMethod, env.number).Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", env.topic.UnsubscribeMethod, err)
	}
	r.unsubscribing[requestID] = id
	return body, nil
}

// frame is the union of every inbound message shape.
type frame struct {
	ID     json.RawMessage  `json:"id"`
	Result json.RawMessage  `json:"result"`
	Error  *rpc.ErrorObject `json:"error"`
	Method string           `json:"method"`
	Params *struct {
		Subscription *uint64         `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// OnMessage processes one inbound frame. It never fails: problems go to the error
// sink or the log and leave the registry usable.
func (r *Registry) OnMessage(raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		r.GetLogger().Warn("malformed frame", "error", err, "frame", truncate(raw))
		r.report(cerrors.ParseFailure(err))
		return
	}

	if f.Error != nil {
		r.GetLogger().Warn("error frame", "message", f.Error.Message, "code", f.Error.Code)
		r.report(cerrors.RPCError(f.Error.Message, f.Error.Data))
		return
	}

	if len(f.ID) > 0 {
		var requestID uint64
		if err := json.Unmarshal(f.ID, &requestID); err == nil {
			r.handleResponse(requestID, f.Result)
		}
	}

	if f.Params != nil {
		r.handleNotification(f.Method, f.Params.Subscription, f.Params.Result)
	}
}

func (r *Registry) handleResponse(requestID uint64, result json.RawMessage) {
	r.mu.Lock()
	if id, ok := r.unsubscribing[requestID]; ok {
		delete(r.unsubscribing, requestID)
		r.mu.Unlock()
		r.handleUnsubscribeResult(id, result)
		return
	}

	id, ok := r.requests[requestID]
	if !ok {
		r.mu.Unlock()
		r.GetLogger().Debug("response for unknown request", "id", requestID)
		return
	}

	// A null result decodes without error, so the pointer tells it apart from 0.
	var number *uint64
	err := json.Unmarshal(result, &number)
	if err == nil && number == nil {
		err = errors.New("result is not a number")
	}
	if err != nil {
		r.mu.Unlock()
		r.GetLogger().Warn("confirmation without numeric result", "id", requestID, "result", string(result))
		r.report(cerrors.ParseFailure(fmt.Errorf("confirmation for request %d: %w", requestID, err)))
		return
	}

	delete(r.requests, requestID)
	env := r.envelopes[id]
	env.number = *number
	env.confirmed = true
	env.state = StateConfirmed
	r.byNumber[*number] = id
	r.mu.Unlock()

	r.GetLogger().Debug("subscription confirmed", "id", id, "subscription", *number)
}

func (r *Registry) handleUnsubscribeResult(id ID, result json.RawMessage) {
	var accepted *bool
	err := json.Unmarshal(result, &accepted)
	if err == nil && accepted == nil {
		err = errors.New("result is not a boolean")
	}
	if err != nil {
		r.report(cerrors.ParseFailure(fmt.Errorf("unsubscribe result for %d: %w", id, err)))
		return
	}
	ok := *accepted

	r.mu.Lock()
	env, exists := r.envelopes[id]
	if !exists {
		r.mu.Unlock()
		return
	}
	if !ok {
		number := env.number
		r.mu.Unlock()
		r.GetLogger().Warn("unsubscribe rejected", "id", id, "subscription", number)
		r.report(cerrors.UnsubscribeRejected(number))
		return
	}
	r.removeLocked(env)
	active := len(r.envelopes)
	r.mu.Unlock()

	_ = r.metrics.UpdateGauge(context.Background(), metrics.MetricSubscriptionsActive, float64(active))
	r.GetLogger().Debug("subscription removed", "id", id)
}

func (r *Registry) handleNotification(method string, number *uint64, result json.RawMessage) {
	ctx := context.Background()
	if number == nil {
		r.GetLogger().Warn("notification without subscription number", "method", method)
		_ = r.metrics.IncrementCounter(ctx, metrics.MetricSubscriptionDropped, 1)
		return
	}

	r.mu.Lock()
	id, ok := r.byNumber[*number]
	if !ok {
		r.mu.Unlock()
		r.GetLogger().Debug("dropping notification", "error", cerrors.SubscriptionNotFound(*number))
		_ = r.metrics.IncrementCounter(ctx, metrics.MetricSubscriptionDropped, 1)
		return
	}
	env := r.envelopes[id]
	n := Notification{Subscription: *number, Method: method, Result: append(json.RawMessage(nil), result...)}
	env.last = &n
	env.state = StateNotifying

	select {
	case env.updates <- n:
	default:
		r.GetLogger().Warn("notification buffer full, dropping update", "id", id, "subscription", *number)
		_ = r.metrics.IncrementCounter(ctx, metrics.MetricSubscriptionDropped, 1)
	}
	r.mu.Unlock()

	_ = r.metrics.IncrementCounter(ctx, metrics.MetricSubscriptionNotifications, 1)
}

// removeLocked drops env from every index. r.mu must be held.
func (r *Registry) removeLocked(env *envelope) {
	delete(r.envelopes, env.id)
	delete(r.requests, env.requestID)
	if env.confirmed {
		delete(r.byNumber, env.number)
	}
	env.state = StateUnsubscribed
	close(env.updates)
}

// Forget removes a subscription locally without telling the server.
func (r *Registry) Forget(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if env, ok := r.envelopes[id]; ok {
		r.removeLocked(env)
	}
}

// State returns the state of id. Removed subscriptions report StateUnsubscribed.
func (r *Registry) State(id ID) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if env, ok := r.envelopes[id]; ok {
		return env.state
	}
	return StateUnsubscribed
}

// Number returns the server-assigned number of id once confirmed.
func (r *Registry) Number(id ID) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	env, ok := r.envelopes[id]
	if !ok || !env.confirmed {
		return 0, false
	}
	return env.number, true
}

// Latest returns the most recent notification delivered to id.
func (r *Registry) Latest(id ID) (Notification, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	env, ok := r.envelopes[id]
	if !ok || env.last == nil {
		return Notification{}, false
	}
	return *env.last, true
}

// Active returns the ids of every registered subscription in ascending order.
func (r *Registry) Active() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.envelopes))
	for id := range r.envelopes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Resubscribe prepares every subscription for a fresh connection. Server numbers are
// forgotten, each subscription gets a new request id and returns to StateRequested,
// and the subscribe messages to resend are returned in id order. Pending unsubscribes
// are completed locally since the old server session is gone.
func (r *Registry) Resubscribe() ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for reqID, id := range r.unsubscribing {
		if env, ok := r.envelopes[id]; ok {
			r.removeLocked(env)
		}
		delete(r.unsubscribing, reqID)
	}

	ids := make([]ID, 0, len(r.envelopes))
	for id := range r.envelopes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	r.requests = make(map[uint64]ID, len(ids))
	r.byNumber = make(map[uint64]ID, len(ids))

	bodies := make([][]byte, 0, len(ids))
	for _, id := range ids {
		env := r.envelopes[id]
		env.requestID = r.ids.Next()
		env.confirmed = false
		env.number = 0
		env.state = StateRequested

		body, err := rpc.NewRequest(env.requestID, env.topic.Method, env.topic.Params...).Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", env.topic.Method, err)
		}
		r.requests[env.requestID] = id
		bodies = append(bodies, body)
	}
	return bodies, nil
}

// ReportError hands err to the error sink. The connection uses it for transport
// failures so that one sink sees every error on the socket.
func (r *Registry) ReportError(err error) {
	if err != nil {
		r.report(err)
	}
}

func (r *Registry) report(err error) {
	if r.onError != nil {
		r.onError(err)
	}
}

func truncate(b []byte) string {
	const n = 256
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
