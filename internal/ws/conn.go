// Package ws carries subscription traffic over a gorilla websocket connection.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lugondev/go-solclient/internal/common"
	cerrors "github.com/lugondev/go-solclient/internal/errors"
	"github.com/lugondev/go-solclient/internal/metrics"
	"github.com/lugondev/go-solclient/internal/subscription"
)

var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrDialing          = errors.New("error dialing websocket server")
	ErrReadingMessage   = errors.New("error reading message")
	ErrSendingMessage   = errors.New("error sending message")
	ErrSendingPing      = errors.New("error sending ping")
)

const writeWait = 10 * time.Second

// transportError classifies a socket failure while keeping kind in the chain.
func transportError(kind, err error) error {
	return cerrors.TransportFailure(fmt.Errorf("%w: %w", kind, err))
}

// Config tunes the connection.
type Config struct {
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration

	// PingInterval is how often a ping control frame is written. Zero disables pings.
	PingInterval time.Duration

	// Header is sent with the handshake request.
	Header http.Header
}

// DefaultConfig is used by New when fields are left zero.
var DefaultConfig = Config{
	HandshakeTimeout: 10 * time.Second,
	PingInterval:     30 * time.Second,
}

type session struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Conn is one logical subscription connection. Inbound frames are fed to the
// subscription registry; Reconnect dials a fresh socket and replays every live
// subscription.
type Conn struct {
	common.LoggerMixin

	url     string
	cfg     Config
	subs    *subscription.Registry
	metrics metrics.Metrics

	mu      sync.RWMutex
	session *session
	writeMu sync.Mutex
}

// New creates a connection to url that dispatches into subs.
func New(url string, subs *subscription.Registry, cfg Config) *Conn {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultConfig.HandshakeTimeout
	}
	return &Conn{
		LoggerMixin: common.NewLoggerMixin(),
		url:         url,
		cfg:         cfg,
		subs:        subs,
		metrics:     metrics.NewNoopMetrics(),
	}
}

// WithLogger sets a custom logger.
func (c *Conn) WithLogger(logger *slog.Logger) *Conn {
	c.SetLogger(logger)
	return c
}

// WithMetrics sets the metrics backend.
func (c *Conn) WithMetrics(m metrics.Metrics) *Conn {
	c.metrics = metrics.OrNoop(m)
	return c
}

// Registry returns the subscription registry fed by this connection.
func (c *Conn) Registry() *subscription.Registry {
	return c.subs
}

// Connect dials the server and starts the read and ping loops. It returns once the
// handshake completed; use Done to learn when the socket goes away.
func (c *Conn) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return ErrAlreadyConnected
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, c.cfg.Header)
	if err != nil {
		return transportError(ErrDialing, err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{conn: conn, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error { return c.readLoop(gctx, conn) })
	g.Go(func() error { return c.pingLoop(gctx, conn) })
	g.Go(func() error {
		<-gctx.Done()
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		return conn.Close()
	})

	go func() {
		err := g.Wait()
		cancel()
		if err != nil {
			c.GetLogger().Error("websocket closed", "url", c.url, "error", err)
			c.subs.ReportError(err)
		} else {
			c.GetLogger().Info("websocket closed", "url", c.url)
		}
		s.err = err
		close(s.done)
	}()

	c.GetLogger().Info("websocket connected", "url", c.url)
	return nil
}

func (c *Conn) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return transportError(ErrReadingMessage, err)
		}
		c.subs.OnMessage(msg)
	}
}

func (c *Conn) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	if c.cfg.PingInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return transportError(ErrSendingPing, err)
			}
		}
	}
}

// IsConnected reports whether the current socket is open.
func (c *Conn) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return false
	}
	select {
	case <-c.session.done:
		return false
	default:
		return true
	}
}

// Done is closed when the current socket has shut down.
func (c *Conn) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return c.session.done
}

// Err returns why the last socket shut down, nil for a clean close.
func (c *Conn) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	select {
	case <-c.session.done:
		return c.session.err
	default:
		return nil
	}
}

// Send writes one text frame.
func (c *Conn) Send(body []byte) error {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil || !c.IsConnected() {
		return cerrors.TransportFailure(ErrNotConnected)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return transportError(ErrSendingMessage, err)
	}
	return nil
}

// Subscribe registers topic and sends its subscribe message.
func (c *Conn) Subscribe(topic subscription.Topic) (subscription.Subscription, error) {
	sub, err := c.subs.Subscribe(topic)
	if err != nil {
		return subscription.Subscription{}, err
	}
	if err := c.Send(sub.Body); err != nil {
		c.subs.Forget(sub.ID)
		return subscription.Subscription{}, err
	}
	return sub, nil
}

// Unsubscribe sends the unsubscribe message for a confirmed subscription.
func (c *Conn) Unsubscribe(id subscription.ID) error {
	body, err := c.subs.Unsubscribe(id)
	if err != nil {
		return err
	}
	return c.Send(body)
}

// Reconnect closes the current socket, dials again and replays every live
// subscription. Subscription ids stay the same.
func (c *Conn) Reconnect(ctx context.Context) error {
	if err := c.Close(); err != nil {
		c.GetLogger().Debug("closing previous socket", "error", err)
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	_ = c.metrics.IncrementCounter(ctx, metrics.MetricWebsocketReconnects, 1)

	bodies, err := c.subs.Resubscribe()
	if err != nil {
		return err
	}
	for _, body := range bodies {
		if err := c.Send(body); err != nil {
			return err
		}
	}
	c.GetLogger().Info("websocket reconnected", "url", c.url, "subscriptions", len(bodies))
	return nil
}

// Close shuts the current socket down and waits for the loops to exit.
func (c *Conn) Close() error {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return nil
	}
	s.cancel()
	<-s.done
	return s.err
}
