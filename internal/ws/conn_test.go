package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/internal/metrics"
	"github.com/lugondev/go-solclient/internal/subscription"
)

// fakeNode confirms every subscribe with number base+id and immediately pushes one
// slot notification for it. Unsubscribes are answered with true.
type fakeNode struct {
	upgrader websocket.Upgrader
	conns    atomic.Int32
	base     uint64
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	n.conns.Add(1)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			return
		}

		if strings.HasSuffix(req.Method, "Unsubscribe") {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":true}`, req.ID)))
			continue
		}

		number := n.base + req.ID
		_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%d}`, req.ID, number)))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(
			`{"jsonrpc":"2.0","method":"slotNotification","params":{"subscription":%d,"result":{"slot":%d}}}`, number, req.ID)))
	}
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func receive(t *testing.T, ch <-chan subscription.Notification) subscription.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "updates closed")
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return subscription.Notification{}
}

func TestSubscribeReceivesNotification(t *testing.T) {
	node := &fakeNode{base: 1000}
	srv := httptest.NewServer(node)
	defer srv.Close()

	c := New(wsURL(srv), subscription.NewRegistry(nil), Config{PingInterval: 50 * time.Millisecond})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	sub, err := c.Subscribe(subscription.Slot())
	require.NoError(t, err)

	n := receive(t, sub.Updates)
	assert.Equal(t, 1000+uint64(sub.ID), n.Subscription)
	assert.Equal(t, "slotNotification", n.Method)

	number, ok := c.Registry().Number(sub.ID)
	require.True(t, ok)
	assert.Equal(t, n.Subscription, number)
}

func TestUnsubscribeClosesUpdates(t *testing.T) {
	srv := httptest.NewServer(&fakeNode{base: 1})
	defer srv.Close()

	c := New(wsURL(srv), subscription.NewRegistry(nil), Config{})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	sub, err := c.Subscribe(subscription.Root())
	require.NoError(t, err)
	receive(t, sub.Updates)

	require.NoError(t, c.Unsubscribe(sub.ID))

	select {
	case _, ok := <-sub.Updates:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("updates not closed after unsubscribe")
	}
}

func TestConnectTwice(t *testing.T) {
	srv := httptest.NewServer(&fakeNode{})
	defer srv.Close()

	c := New(wsURL(srv), subscription.NewRegistry(nil), Config{})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)
}

func TestSendWithoutConnection(t *testing.T) {
	c := New("ws://127.0.0.1:1", subscription.NewRegistry(nil), Config{})
	err := c.Send([]byte("{}"))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, err, cerrors.ErrTransportFailure)

	_, err = c.Subscribe(subscription.Slot())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, c.Registry().Active())
}

func TestDialFailure(t *testing.T) {
	c := New("ws://127.0.0.1:1", subscription.NewRegistry(nil), Config{HandshakeTimeout: time.Second})
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrDialing)
	assert.ErrorIs(t, err, cerrors.ErrTransportFailure)
	assert.False(t, c.IsConnected())
}

func TestCloseIsClean(t *testing.T) {
	srv := httptest.NewServer(&fakeNode{})
	defer srv.Close()

	c := New(wsURL(srv), subscription.NewRegistry(nil), Config{})
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())

	assert.NoError(t, c.Close())
	<-c.Done()
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Err())
}

func TestServerDropSurfacesError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	sink := make(chan error, 1)
	subs := subscription.NewRegistry(nil).WithErrorSink(func(err error) { sink <- err })
	c := New(wsURL(srv), subs, Config{})
	require.NoError(t, c.Connect(context.Background()))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not notice server drop")
	}
	assert.ErrorIs(t, c.Err(), ErrReadingMessage)
	assert.ErrorIs(t, c.Err(), cerrors.ErrTransportFailure)

	select {
	case err := <-sink:
		assert.ErrorIs(t, err, ErrReadingMessage)
		assert.ErrorIs(t, err, cerrors.ErrTransportFailure)
	default:
		t.Fatal("error sink was not called")
	}
}

func TestReconnectReplaysSubscriptions(t *testing.T) {
	node := &fakeNode{base: 500}
	srv := httptest.NewServer(node)
	defer srv.Close()

	lm := metrics.NewLogMetrics(nil)
	c := New(wsURL(srv), subscription.NewRegistry(nil), Config{}).WithMetrics(lm)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	sub, err := c.Subscribe(subscription.Slot())
	require.NoError(t, err)
	first := receive(t, sub.Updates)

	require.NoError(t, c.Reconnect(context.Background()))
	second := receive(t, sub.Updates)

	assert.NotEqual(t, first.Subscription, second.Subscription)
	assert.Equal(t, []subscription.ID{sub.ID}, c.Registry().Active())
	assert.Equal(t, int32(2), node.conns.Load())
	assert.Equal(t, uint64(1), lm.Counter(metrics.MetricWebsocketReconnects))
}
