// Package natsclient manages the optional NATS connection used for
// cloud archival and the component log relay. The client wraps a
// single *nats.Conn plus its JetStream context, tracks connection
// status through the server callbacks, and mirrors connection health
// into the platform metrics.
package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
)

// ConnectionStatus represents the state of the NATS connection.
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by operations that need a live server
// connection.
var ErrNotConnected = stderrors.New("not connected to NATS")

// Stats holds a point-in-time view of the connection.
type Stats struct {
	URL        string           `json:"url"`
	Status     ConnectionStatus `json:"-"`
	StatusName string           `json:"status"`
	RTT        time.Duration    `json:"rtt"`
	Reconnects uint64           `json:"reconnects"`
}

// Client manages one NATS connection for the process.
type Client struct {
	url    string
	status atomic.Value // stores ConnectionStatus
	logger *slog.Logger

	conn *nats.Conn
	js   jetstream.JetStream

	// Connection options
	maxReconnects  int
	reconnectWait  time.Duration
	pingInterval   time.Duration
	timeout        time.Duration
	drainTimeout   time.Duration
	healthInterval time.Duration

	// Authentication, cleared on close
	username string
	password string
	token    string

	clientName string

	metrics *metric.Metrics

	onDisconnect func(error)
	onReconnect  func()

	// connClosed is closed by the NATS ClosedHandler once the
	// connection reaches its terminal state, which is also how a
	// drain signals completion.
	connClosed chan struct{}
	closedOnce sync.Once

	monitorDone chan struct{}

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a client for the given server URL. The connection
// is not dialed until Connect. An empty URL dials the NATS default.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:            url,
		logger:         slog.Default().With("component", "natsclient"),
		maxReconnects:  -1,
		reconnectWait:  2 * time.Second,
		pingInterval:   30 * time.Second,
		timeout:        5 * time.Second,
		drainTimeout:   30 * time.Second,
		healthInterval: 10 * time.Second,
		connClosed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.status.Store(StatusDisconnected)
	return c
}

// URL returns the configured server URL.
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status.
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

// IsHealthy returns true while the connection is established.
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Conn returns the underlying NATS connection, nil before Connect.
func (c *Client) Conn() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Stats returns a snapshot of connection state for health reporting.
func (c *Client) Stats() Stats {
	status := c.Status()
	s := Stats{
		URL:        c.url,
		Status:     status,
		StatusName: status.String(),
	}
	conn := c.Conn()
	if conn != nil {
		s.Reconnects = conn.Stats().Reconnects
		if conn.IsConnected() {
			if rtt, err := conn.RTT(); err == nil {
				s.RTT = rtt
			}
		}
	}
	return s
}

// RTT returns the round-trip time to the server.
func (c *Client) RTT() (time.Duration, error) {
	conn := c.Conn()
	if conn == nil || !conn.IsConnected() {
		return 0, ErrNotConnected
	}
	return conn.RTT()
}

func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}
	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	return opts
}

// ConnectionOptions returns the NATS options the client dials with.
func (c *Client) ConnectionOptions() []nats.Option {
	return c.connectionOptions()
}

// Connect establishes the server connection and initializes the
// JetStream context. Connecting an already-connected client is a
// no-op. The context bounds the wait, not the dialed connection.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return errors.WrapInvalid(
			fmt.Errorf("client is closed"),
			"natsclient", "Connect", "check client state")
	}
	if c.Status() == StatusConnected {
		return nil
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "url", c.url)

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.connectionOptions()...)
		done <- result{conn, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			c.setStatus(StatusDisconnected)
			if c.metrics != nil {
				c.metrics.RecordNATSStatus(false)
			}
			return errors.WrapTransient(res.err, "natsclient", "Connect", "establish connection")
		}
		js, err := jetstream.New(res.conn)
		if err != nil {
			c.logger.Warn("JetStream unavailable on this connection", "error", err)
		}
		c.mu.Lock()
		c.conn = res.conn
		c.js = js
		c.mu.Unlock()
	case <-ctx.Done():
		// Reap the dial if it lands after we gave up.
		go func() {
			if res := <-done; res.conn != nil {
				res.conn.Close()
			}
		}()
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(ctx.Err(), "natsclient", "Connect", "wait for connection")
	}

	c.setStatus(StatusConnected)
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(true)
	}
	c.logger.Info("Connected to NATS", "url", c.url)

	if c.healthInterval > 0 {
		c.startMonitor()
	}
	return nil
}

// Close drains the connection so pending publishes flush, forcing a
// close when the drain outlives the drain timeout or the context.
// Close is idempotent; a closed client cannot reconnect.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)

	c.stopMonitor()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.username, c.password, c.token = "", "", ""
	c.mu.Unlock()

	if conn == nil {
		c.setStatus(StatusDisconnected)
		return nil
	}

	drainTimeout := c.drainTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
			drainTimeout = remaining
		}
	}

	var drainErr error
	if err := conn.Drain(); err != nil {
		drainErr = errors.Wrap(err, "natsclient", "Close", "drain connection")
		conn.Close()
	} else {
		// Drain is asynchronous; the ClosedHandler closes connClosed
		// once the flush finishes.
		select {
		case <-c.connClosed:
		case <-time.After(drainTimeout):
			drainErr = errors.WrapTransient(
				fmt.Errorf("drain timeout after %v", drainTimeout),
				"natsclient", "Close", "drain connection")
			conn.Close()
		case <-ctx.Done():
			drainErr = errors.Wrap(ctx.Err(), "natsclient", "Close", "drain connection")
			conn.Close()
		}
	}

	c.setStatus(StatusDisconnected)
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(false)
	}
	if drainErr != nil {
		c.logger.Warn("NATS connection closed without a clean drain", "error", drainErr)
		return drainErr
	}
	c.logger.Info("NATS connection closed")
	return nil
}

// Publish sends data on a subject. The signature matches the log
// relay's publisher contract, so the client can back it directly.
func (c *Client) Publish(subject string, data []byte) error {
	conn := c.Conn()
	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.Publish(subject, data)
}

// JetStream returns the JetStream context for stream and object-store
// access.
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.js == nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("JetStream not initialized"),
			"natsclient", "JetStream", "get JetStream context")
	}
	return c.js, nil
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.setStatus(StatusReconnecting)
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(false)
	}
	c.logger.Warn("NATS connection lost", "error", err)

	c.mu.RLock()
	onDisconnect := c.onDisconnect
	c.mu.RUnlock()
	if onDisconnect != nil {
		go onDisconnect(err)
	}
}

func (c *Client) handleReconnect(nc *nats.Conn) {
	c.setStatus(StatusConnected)
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(true)
		c.metrics.RecordNATSReconnect()
	}
	c.logger.Info("NATS reconnected", "url", nc.ConnectedUrl())

	c.mu.RLock()
	onReconnect := c.onReconnect
	c.mu.RUnlock()
	if onReconnect != nil {
		go onReconnect()
	}
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(false)
	}
	c.closedOnce.Do(func() {
		close(c.connClosed)
	})
}

func (c *Client) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	if sub != nil {
		c.logger.Error("NATS async error", "subject", sub.Subject, "error", err)
		return
	}
	c.logger.Error("NATS async error", "error", err)
}

// startMonitor polls connection health so the status survives missed
// callbacks and the RTT gauge stays current.
func (c *Client) startMonitor() {
	c.mu.Lock()
	if c.monitorDone != nil {
		c.mu.Unlock()
		return
	}
	done := make(chan struct{})
	c.monitorDone = done
	c.mu.Unlock()

	ticker := time.NewTicker(c.healthInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn := c.Conn()
				if conn == nil {
					continue
				}
				healthy := conn.IsConnected()
				if healthy {
					if rtt, err := conn.RTT(); err == nil {
						if c.metrics != nil {
							c.metrics.RecordNATSRTT(rtt)
						}
					} else {
						healthy = false
					}
				}
				if healthy && c.Status() != StatusConnected {
					c.setStatus(StatusConnected)
				} else if !healthy && c.Status() == StatusConnected {
					c.setStatus(StatusReconnecting)
				}
				if c.metrics != nil {
					c.metrics.RecordNATSStatus(healthy)
				}
			}
		}
	}()
}

func (c *Client) stopMonitor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.monitorDone != nil {
		close(c.monitorDone)
		c.monitorDone = nil
	}
}
