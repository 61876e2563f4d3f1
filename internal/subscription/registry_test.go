package subscription

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/internal/metrics"
	"github.com/lugondev/go-solclient/internal/rpc"
)

type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) add(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func frame7(t *testing.T, r *Registry) Subscription {
	t.Helper()
	for i := 0; i < 7; i++ {
		r.ids.Next()
	}
	sub, err := r.Subscribe(Slot())
	require.NoError(t, err)
	require.Equal(t, ID(7), sub.ID)
	return sub
}

func TestSubscribeBody(t *testing.T) {
	r := NewRegistry(nil)
	key := solana.NewWallet().PublicKey()

	sub, err := r.Subscribe(Account(key, solrpc.CommitmentConfirmed))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(sub.Body, &body))
	assert.Equal(t, float64(sub.ID), body["id"])
	assert.Equal(t, "accountSubscribe", body["method"])

	params := body["params"].([]any)
	assert.Equal(t, key.String(), params[0])
	assert.Equal(t, "confirmed", params[1].(map[string]any)["commitment"])
	assert.Equal(t, StateRequested, r.State(sub.ID))
}

func TestConfirmThenNotify(t *testing.T) {
	r := NewRegistry(nil)
	sub := frame7(t, r)

	r.OnMessage([]byte(`{"jsonrpc":"2.0","id":7,"result":42}`))
	number, ok := r.Number(sub.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(42), number)
	assert.Equal(t, StateConfirmed, r.State(sub.ID))

	r.OnMessage([]byte(`{"jsonrpc":"2.0","method":"slotNotification","params":{"subscription":42,"result":{"slot":9,"parent":8,"root":1}}}`))
	assert.Equal(t, StateNotifying, r.State(sub.ID))

	latest, ok := r.Latest(sub.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(42), latest.Subscription)
	assert.Equal(t, "slotNotification", latest.Method)

	n := <-sub.Updates
	var slot struct{ Slot uint64 }
	require.NoError(t, n.Decode(&slot))
	assert.Equal(t, uint64(9), slot.Slot)
}

func TestNullConfirmationRejected(t *testing.T) {
	sink := &errorSink{}
	r := NewRegistry(nil).WithErrorSink(sink.add)
	other, err := r.Subscribe(Root())
	require.NoError(t, err)
	sub, err := r.Subscribe(Slot())
	require.NoError(t, err)
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":0}`, other.ID)))

	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":null}`, sub.ID)))
	assert.Equal(t, StateRequested, r.State(sub.ID))
	_, ok := r.Number(sub.ID)
	assert.False(t, ok)
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cerrors.ErrParseFailure)

	// Subscription 0 still belongs to the confirmed envelope.
	r.OnMessage([]byte(`{"params":{"subscription":0,"result":{}}}`))
	_, ok = r.Latest(other.ID)
	assert.True(t, ok)
	_, ok = r.Latest(sub.ID)
	assert.False(t, ok)

	// A numeric confirmation is still accepted afterwards.
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":5}`, sub.ID)))
	number, ok := r.Number(sub.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(5), number)
}

func TestNullUnsubscribeResultKeepsEnvelope(t *testing.T) {
	sink := &errorSink{}
	r := NewRegistry(nil).WithErrorSink(sink.add)
	sub, err := r.Subscribe(Slot())
	require.NoError(t, err)
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":3}`, sub.ID)))

	body, err := r.Unsubscribe(sub.ID)
	require.NoError(t, err)
	var req rpc.Request
	require.NoError(t, json.Unmarshal(body, &req))

	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":null}`, req.ID)))
	assert.Equal(t, StateConfirmed, r.State(sub.ID))
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cerrors.ErrParseFailure)
}

func TestReportError(t *testing.T) {
	sink := &errorSink{}
	r := NewRegistry(nil).WithErrorSink(sink.add)
	r.ReportError(nil)
	r.ReportError(cerrors.ErrTransportFailure)
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cerrors.ErrTransportFailure)
}

func TestNotificationRoutesByNumberNotRequestID(t *testing.T) {
	r := NewRegistry(nil)
	a, err := r.Subscribe(Slot())
	require.NoError(t, err)
	b, err := r.Subscribe(Root())
	require.NoError(t, err)

	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":%d}`, a.ID, b.ID)))
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":%d}`, b.ID, 500)))

	r.OnMessage([]byte(fmt.Sprintf(`{"params":{"subscription":%d,"result":1}}`, b.ID)))

	_, ok := r.Latest(a.ID)
	assert.True(t, ok, "notification number equal to b's request id belongs to a")
	_, ok = r.Latest(b.ID)
	assert.False(t, ok)
}

func TestUnknownSubscriptionDropped(t *testing.T) {
	sink := &errorSink{}
	lm := metrics.NewLogMetrics(nil)
	r := NewRegistry(nil).WithErrorSink(sink.add).WithMetrics(lm)

	r.OnMessage([]byte(`{"params":{"subscription":99,"result":{}}}`))

	assert.Empty(t, sink.all())
	assert.Equal(t, uint64(1), lm.Counter(metrics.MetricSubscriptionDropped))
}

func TestErrorFrameDoesNotMutate(t *testing.T) {
	sink := &errorSink{}
	r := NewRegistry(nil).WithErrorSink(sink.add)
	sub := frame7(t, r)

	r.OnMessage([]byte(`{"jsonrpc":"2.0","id":7,"error":{"code":-32602,"message":"Invalid params"}}`))

	assert.Equal(t, StateRequested, r.State(sub.ID))
	_, ok := r.Number(sub.ID)
	assert.False(t, ok)

	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cerrors.ErrRPC)
}

func TestMalformedFrame(t *testing.T) {
	sink := &errorSink{}
	r := NewRegistry(nil).WithErrorSink(sink.add)
	sub, err := r.Subscribe(Slot())
	require.NoError(t, err)

	r.OnMessage([]byte(`{"id":`))
	r.OnMessage([]byte(`pong`))

	errs := sink.all()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], cerrors.ErrParseFailure)
	assert.Equal(t, StateRequested, r.State(sub.ID))
}

func TestUnsubscribeLifecycle(t *testing.T) {
	sink := &errorSink{}
	r := NewRegistry(nil).WithErrorSink(sink.add)
	sub, err := r.Subscribe(Account(solana.SystemProgramID, ""))
	require.NoError(t, err)

	_, err = r.Unsubscribe(sub.ID)
	assert.ErrorIs(t, err, cerrors.ErrNotConfirmed)

	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":23784}`, sub.ID)))

	body, err := r.Unsubscribe(sub.ID)
	require.NoError(t, err)

	var req rpc.Request
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "accountUnsubscribe", req.Method)
	assert.Equal(t, []any{float64(23784)}, req.Params)
	assert.NotEqual(t, uint64(sub.ID), req.ID)

	// Rejected: envelope stays and failure is surfaced.
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":false}`, req.ID)))
	assert.Equal(t, StateConfirmed, r.State(sub.ID))
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cerrors.ErrUnsubscribeRejected)

	// Retry succeeds and closes the update channel.
	body, err = r.Unsubscribe(sub.ID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &req))

	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":true}`, req.ID)))
	assert.Equal(t, StateUnsubscribed, r.State(sub.ID))
	assert.Empty(t, r.Active())

	_, open := <-sub.Updates
	assert.False(t, open)

	// Late notification after removal is ignored.
	r.OnMessage([]byte(`{"params":{"subscription":23784,"result":{}}}`))
	assert.Len(t, sink.all(), 1)
}

func TestUnsubscribeUnknown(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Unsubscribe(ID(1234))
	assert.ErrorIs(t, err, cerrors.ErrSubscriptionNotFound)
}

func TestResubscribe(t *testing.T) {
	ids := rpc.NewIDCounter()
	r := NewRegistry(ids)

	a, err := r.Subscribe(Slot())
	require.NoError(t, err)
	b, err := r.Subscribe(Root())
	require.NoError(t, err)
	c, err := r.Subscribe(Logs(nil, ""))
	require.NoError(t, err)

	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":10}`, a.ID)))
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":11}`, b.ID)))
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":12}`, c.ID)))

	_, err = r.Unsubscribe(c.ID)
	require.NoError(t, err)

	bodies, err := r.Resubscribe()
	require.NoError(t, err)
	require.Len(t, bodies, 2)
	assert.Equal(t, []ID{a.ID, b.ID}, r.Active())
	assert.Equal(t, StateRequested, r.State(a.ID))

	var req rpc.Request
	require.NoError(t, json.Unmarshal(bodies[0], &req))
	assert.Equal(t, "slotSubscribe", req.Method)

	// Old numbers no longer route.
	r.OnMessage([]byte(`{"params":{"subscription":10,"result":{}}}`))
	_, ok := r.Latest(a.ID)
	assert.False(t, ok)

	// New confirmation uses the new request id.
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":77}`, req.ID)))
	number, ok := r.Number(a.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(77), number)
}

func TestFullBufferDropsUpdate(t *testing.T) {
	r := NewRegistry(nil).WithBufferSize(1)
	sub, err := r.Subscribe(Slot())
	require.NoError(t, err)
	r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":1}`, sub.ID)))

	r.OnMessage([]byte(`{"params":{"subscription":1,"result":{"slot":1}}}`))
	r.OnMessage([]byte(`{"params":{"subscription":1,"result":{"slot":2}}}`))

	latest, ok := r.Latest(sub.ID)
	require.True(t, ok)
	assert.JSONEq(t, `{"slot":2}`, string(latest.Result))

	first := <-sub.Updates
	assert.JSONEq(t, `{"slot":1}`, string(first.Result))
	assert.Len(t, sub.Updates, 0)
}

func TestConcurrentSubscribeAndDispatch(t *testing.T) {
	r := NewRegistry(nil).WithBufferSize(1000)
	var wg sync.WaitGroup

	subs := make(chan Subscription, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := r.Subscribe(Slot())
			assert.NoError(t, err)
			subs <- sub
		}()
	}
	wg.Wait()
	close(subs)

	for sub := range subs {
		wg.Add(1)
		go func(sub Subscription) {
			defer wg.Done()
			r.OnMessage([]byte(fmt.Sprintf(`{"id":%d,"result":%d}`, sub.ID, 1000+uint64(sub.ID))))
			r.OnMessage([]byte(fmt.Sprintf(`{"params":{"subscription":%d,"result":{}}}`, 1000+uint64(sub.ID))))
		}(sub)
	}
	wg.Wait()

	for _, id := range r.Active() {
		assert.Equal(t, StateNotifying, r.State(id))
	}
}

func TestTopics(t *testing.T) {
	mention := solana.NewWallet().PublicKey()
	tests := []struct {
		topic Topic
		sub   string
		unsub string
	}{
		{Account(mention, ""), "accountSubscribe", "accountUnsubscribe"},
		{Logs(&mention, solrpc.CommitmentFinalized), "logsSubscribe", "logsUnsubscribe"},
		{Program(mention, ""), "programSubscribe", "programUnsubscribe"},
		{Signature(solana.Signature{1}, ""), "signatureSubscribe", "signatureUnsubscribe"},
		{Slot(), "slotSubscribe", "slotUnsubscribe"},
		{Root(), "rootSubscribe", "rootUnsubscribe"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.sub, tt.topic.Method)
		assert.Equal(t, tt.unsub, tt.topic.UnsubscribeMethod)
	}

	raw, err := json.Marshal(Logs(&mention, "").Params)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mentions":["`+mention.String()+`"]`)
}
