package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/hub"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/stats"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultPongTimeout  = 60 * time.Second
)

// Event type names carried in the JSON "type" field.
const (
	EventStats        = "stats"
	EventDetections   = "detections"
	EventSessionEnded = "session_ended"
)

// Event is one JSON text message pushed to feed clients. Exactly the
// fields for its Type are set.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// EventDetections payload.
	Seq        uint64             `json:"seq,omitempty"`
	Detections []vision.Detection `json:"detections,omitempty"`

	// EventStats payload.
	Stats *stats.Snapshot `json:"stats,omitempty"`

	// EventSessionEnded payload. Empty for a clean stop.
	Cause string `json:"cause,omitempty"`
}

// Config tunes connection upkeep. Zero values take the defaults above.
type Config struct {
	// PingInterval paces keepalive pings to every client.
	PingInterval time.Duration

	// WriteTimeout bounds each message write.
	WriteTimeout time.Duration

	// PongTimeout is how long a client may stay silent before its
	// read loop gives up on it.
	PongTimeout time.Duration
}

// Deps holds the feed's collaborators. Source is required.
type Deps struct {
	// Source opens a hub subscription for the feed. It is called at
	// Start and again after each session's terminal item, so the feed
	// survives across capture sessions.
	Source func() *hub.Subscription

	Logger          *slog.Logger
	MetricsRegistry *metric.MetricsRegistry
}

// Metrics holds Prometheus metrics for the event feed
type Metrics struct {
	eventsSent prometheus.Counter
	sendErrors prometheus.Counter
	clients    prometheus.Gauge
}

// newMetrics creates and registers feed metrics. Returns nil when no
// registry is provided; every observation site guards for that.
func newMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		eventsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "event_feed",
			Name:      "events_sent_total",
			Help:      "Events delivered to feed clients",
		}),
		sendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "event_feed",
			Name:      "send_errors_total",
			Help:      "Failed event writes that dropped a client",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "event_feed",
			Name:      "clients",
			Help:      "Currently attached feed clients",
		}),
	}

	registry.RegisterCounter("event_feed", "events_sent", m.eventsSent)
	registry.RegisterCounter("event_feed", "send_errors", m.sendErrors)
	registry.RegisterGauge("event_feed", "clients", m.clients)

	return m
}

// client is one attached WebSocket connection and its write guard.
type client struct {
	conn        *websocket.Conn
	connectedAt time.Time
	lastPong    atomic.Value // stores time.Time
	closed      atomic.Bool
	closeOnce   sync.Once
	writeMu     sync.Mutex
}

// EventFeed pushes stats, detection, and session-end events to
// attached WebSocket connections as JSON text messages. Connections
// are established elsewhere and handed over with Attach; from then on
// the feed owns them, pings them, and drops the ones that stop
// responding or fail a write. Attach works on a feed that was never
// started, which keeps clients connectable before capture begins.
type EventFeed struct {
	cfg     Config
	source  func() *hub.Subscription
	logger  *slog.Logger
	metrics *Metrics

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*client

	mu          sync.Mutex
	initialized bool
	started     bool
	startedAt   time.Time
	cancel      context.CancelFunc
	done        chan struct{}
}

var _ component.Component = (*EventFeed)(nil)

// NewEventFeed builds a feed. The source requirement is checked at
// Initialize so construction never fails on wiring order.
func NewEventFeed(cfg Config, deps Deps) *EventFeed {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "event_feed")
	}

	return &EventFeed{
		cfg:     cfg,
		source:  deps.Source,
		logger:  logger,
		metrics: newMetrics(deps.MetricsRegistry),
		clients: make(map[*websocket.Conn]*client),
	}
}

// Name identifies the feed in logs, metrics, and health reports.
func (f *EventFeed) Name() string { return "event_feed" }

// Initialize verifies the feed can run. Idempotent.
func (f *EventFeed) Initialize() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initLocked()
}

func (f *EventFeed) initLocked() error {
	if f.source == nil {
		return errors.WrapInvalid(
			fmt.Errorf("no subscription source configured"),
			"event_feed", "Initialize", "check dependencies")
	}
	f.initialized = true
	return nil
}

// Start launches the hub consumer and the keepalive pinger.
func (f *EventFeed) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "event_feed", "Start", "feed is running")
	}
	if err := f.initLocked(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.consume(runCtx)
	}()
	go func() {
		defer wg.Done()
		f.pingLoop(runCtx)
	}()
	go func(done chan struct{}) {
		wg.Wait()
		close(done)
	}(f.done)

	f.started = true
	f.startedAt = time.Now()
	f.logger.Info("Event feed started",
		"ping_interval", f.cfg.PingInterval,
		"write_timeout", f.cfg.WriteTimeout)
	return nil
}

// Stop ends broadcasting and disconnects every client. A feed that is
// not running is left alone.
func (f *EventFeed) Stop(timeout time.Duration) error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return nil
	}
	f.started = false
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(timeout):
		f.logger.Warn("Feed goroutines did not stop in time", "timeout", timeout)
	}

	f.closeClients()
	f.logger.Info("Event feed stopped")
	return nil
}

// Health reports the feed's condition. Client churn is normal, so the
// feed is healthy whenever it exists.
func (f *EventFeed) Health() component.HealthStatus {
	f.mu.Lock()
	started, startedAt := f.started, f.startedAt
	f.mu.Unlock()

	status := component.HealthStatus{
		Healthy:   true,
		LastCheck: time.Now(),
	}
	if started {
		status.Uptime = time.Since(startedAt)
	}
	return status
}

// Attach hands an established connection to the feed. The feed runs
// the connection's read loop from here on, so the caller must not read
// from it again. Attaching the same connection twice is refused.
func (f *EventFeed) Attach(conn *websocket.Conn) error {
	if conn == nil {
		return errors.WrapInvalid(
			fmt.Errorf("nil connection"),
			"event_feed", "Attach", "register client")
	}

	c := &client{conn: conn, connectedAt: time.Now()}
	c.lastPong.Store(c.connectedAt)

	f.clientsMu.Lock()
	if _, dup := f.clients[conn]; dup {
		f.clientsMu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("connection already attached"),
			"event_feed", "Attach", "register client")
	}
	f.clients[conn] = c
	count := len(f.clients)
	f.clientsMu.Unlock()

	if f.metrics != nil {
		f.metrics.clients.Set(float64(count))
	}
	f.logger.Debug("Client attached", "clients", count)

	go f.readPump(c)
	return nil
}

// ClientCount reports how many connections are currently attached.
func (f *EventFeed) ClientCount() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

// consume drains hub subscriptions until the run context ends,
// reopening one after each session's terminal item.
func (f *EventFeed) consume(ctx context.Context) {
	for {
		sub := f.source()
		f.drain(ctx, sub)
		sub.Close()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (f *EventFeed) drain(ctx context.Context, sub *hub.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-sub.Items():
			if !ok {
				return
			}
			f.handle(item)
		}
	}
}

// handle maps one hub item to an event. Frames without detections
// produce nothing; the frame pixels themselves never travel over the
// feed.
func (f *EventFeed) handle(item hub.Item) {
	var event Event
	switch item.Type {
	case hub.ItemStats:
		event = Event{Type: EventStats, Timestamp: time.Now().UTC(), Stats: item.Stats}
	case hub.ItemFrame:
		if len(item.Detections) == 0 {
			return
		}
		event = Event{
			Type:       EventDetections,
			Timestamp:  item.Frame.Timestamp,
			Seq:        item.Frame.Seq,
			Detections: item.Detections,
		}
	case hub.ItemTerminal:
		event = Event{Type: EventSessionEnded, Timestamp: time.Now().UTC()}
		if item.Cause != nil {
			event.Cause = item.Cause.Error()
		}
	default:
		return
	}
	f.broadcast(event)
}

// broadcast sends one event to every attached client. A failed write
// drops that client; the rest still receive.
func (f *EventFeed) broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn("Dropping unencodable event", "type", event.Type, "error", err)
		return
	}

	for _, c := range f.snapshotClients() {
		if err := f.send(c, payload); err != nil {
			if f.metrics != nil {
				f.metrics.sendErrors.Inc()
			}
			f.logger.Debug("Dropping client after failed write", "error", err)
			f.remove(c)
			continue
		}
		if f.metrics != nil {
			f.metrics.eventsSent.Inc()
		}
	}
}

// send writes one text message to one client. gorilla/websocket panics
// on concurrent writes to a connection, so every write goes through
// the client's write lock.
func (f *EventFeed) send(c *client, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readPump runs a client's read loop. The feed never acts on inbound
// messages; the loop exists to process pong and close frames and to
// notice dead peers.
func (f *EventFeed) readPump(c *client) {
	defer f.remove(c)

	c.conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now())
		_ = c.conn.SetReadDeadline(time.Now().Add(f.cfg.PongTimeout))
		return nil
	})
	_ = c.conn.SetReadDeadline(time.Now().Add(f.cfg.PongTimeout))

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *EventFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.pingClients()
		}
	}
}

func (f *EventFeed) pingClients() {
	for _, c := range f.snapshotClients() {
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
		err := c.conn.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()

		if err != nil {
			f.logger.Debug("Dropping client after failed ping", "error", err)
			f.remove(c)
		}
	}
}

func (f *EventFeed) snapshotClients() []*client {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()

	out := make([]*client, 0, len(f.clients))
	for _, c := range f.clients {
		if !c.closed.Load() {
			out = append(out, c)
		}
	}
	return out
}

func (f *EventFeed) closeClients() {
	for _, c := range f.snapshotClients() {
		f.remove(c)
	}
}

// remove detaches and closes one client. Cleanup runs once no matter
// how many paths race to it.
func (f *EventFeed) remove(c *client) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		f.clientsMu.Lock()
		delete(f.clients, c.conn)
		count := len(f.clients)
		f.clientsMu.Unlock()

		if f.metrics != nil {
			f.metrics.clients.Set(float64(count))
		}
		_ = c.conn.Close()
		f.logger.Debug("Client detached",
			"clients", count,
			"connected_for", time.Since(c.connectedAt))
	})
}
