package natsclient

import (
	"log/slog"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
)

// ClientOption configures the client at construction.
type ClientOption func(*Client)

// WithLogger sets the structured logger. Nil keeps the default.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithName sets the client name reported to the server.
func WithName(name string) ClientOption {
	return func(c *Client) {
		c.clientName = name
	}
}

// WithMaxReconnects sets the reconnection attempt limit (-1 for infinite)
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) {
		c.maxReconnects = n
	}
}

// WithReconnectWait sets the wait time between reconnection attempts
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) {
		c.reconnectWait = d
	}
}

// WithPingInterval sets the server ping interval
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.pingInterval = d
	}
}

// WithTimeout sets the dial timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithDrainTimeout sets how long Close waits for the drain to flush
func WithDrainTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.drainTimeout = d
	}
}

// WithHealthInterval sets the health poll interval. Zero disables the
// monitor goroutine.
func WithHealthInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.healthInterval = d
	}
}

// WithCredentials sets username and password authentication
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken sets token authentication
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithMetrics mirrors connection status, RTT, and reconnect counts
// into the platform metrics.
func WithMetrics(m *metric.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithDisconnectCallback registers a callback fired when the
// connection drops. The callback runs on its own goroutine.
func WithDisconnectCallback(fn func(error)) ClientOption {
	return func(c *Client) {
		c.onDisconnect = fn
	}
}

// WithReconnectCallback registers a callback fired after the client
// reconnects. The callback runs on its own goroutine.
func WithReconnectCallback(fn func()) ClientOption {
	return func(c *Client) {
		c.onReconnect = fn
	}
}
