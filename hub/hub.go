// Package hub fans processed frames and stats out to any number of
// independently paced subscribers.
//
// Each subscriber owns a bounded ring (a buffered channel). Publish
// never blocks the capture goroutine: a full ring loses its oldest
// item to make room, and the loss is counted against that subscriber
// alone. When a capture session ends the hub hands every subscriber a
// terminal item and closes its channel; the hub itself keeps running
// and accepts subscribers for the next session.
package hub

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/stats"
)

const (
	defaultSubscriberBuffer = 8
)

// Config sizes the hub's rings and paces its stats items.
type Config struct {
	// SubscriberBuffer is each subscriber's ring capacity.
	SubscriberBuffer int

	// StatsInterval paces the periodic stats item. Zero disables
	// stats publishing.
	StatsInterval time.Duration
}

// Deps holds runtime dependencies for the hub.
type Deps struct {
	// Snapshot supplies the payload for periodic stats items. Nil
	// disables stats publishing.
	Snapshot func() stats.Snapshot

	Logger          *slog.Logger
	MetricsRegistry *metric.MetricsRegistry
}

// Metrics holds Prometheus metrics for the hub
type Metrics struct {
	published   prometheus.Counter
	evicted     prometheus.Counter
	subscribers prometheus.Gauge
}

// newMetrics creates and registers hub metrics. Returns nil when no
// registry is provided; every observation site guards for that.
func newMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "hub",
			Name:      "items_published_total",
			Help:      "Items published to the hub",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "hub",
			Name:      "items_evicted_total",
			Help:      "Items evicted from full subscriber rings",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Current subscriber count",
		}),
	}

	registry.RegisterCounter("hub", "items_published", m.published)
	registry.RegisterCounter("hub", "items_evicted", m.evicted)
	registry.RegisterGauge("hub", "subscribers", m.subscribers)

	return m
}

// Hub distributes items to subscribers. It satisfies the component
// lifecycle so the service manager can run it; Subscribe and Publish
// also work on a hub that was never started, which keeps consumers
// attachable before capture begins.
type Hub struct {
	cfg      Config
	snapshot func() stats.Snapshot
	logger   *slog.Logger
	metrics  *Metrics

	mu          sync.RWMutex
	subscribers map[string]*Subscription
	initialized bool
	started     bool
	startedAt   time.Time
	cancel      context.CancelFunc
	done        chan struct{}
}

var _ component.Component = (*Hub)(nil)

// New builds a hub. Zero config fields fall back to an eight-item
// ring and no stats publishing.
func New(cfg Config, deps Deps) *Hub {
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = defaultSubscriberBuffer
	}
	if cfg.StatsInterval < 0 {
		cfg.StatsInterval = 0
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "hub")
	}

	return &Hub{
		cfg:         cfg,
		snapshot:    deps.Snapshot,
		logger:      logger,
		metrics:     newMetrics(deps.MetricsRegistry),
		subscribers: make(map[string]*Subscription),
	}
}

// Name identifies the hub in logs, metrics, and health reports.
func (h *Hub) Name() string { return "hub" }

// Initialize prepares the hub. Idempotent.
func (h *Hub) Initialize() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initialized = true
	return nil
}

// Start launches the periodic stats publisher when one is configured.
func (h *Hub) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "hub", "Start", "hub is running")
	}
	h.initialized = true

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})

	if h.snapshot != nil && h.cfg.StatsInterval > 0 {
		go h.statsLoop(runCtx, h.done)
	} else {
		close(h.done)
	}

	h.started = true
	h.startedAt = time.Now()
	h.logger.Info("Hub started",
		"subscriber_buffer", h.cfg.SubscriberBuffer,
		"stats_interval", h.cfg.StatsInterval)
	return nil
}

// Stop ends the stats publisher and closes out every subscriber with
// a clean terminal. A hub that is not running is left alone.
func (h *Hub) Stop(timeout time.Duration) error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = false
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(timeout):
		h.logger.Warn("Stats publisher did not stop in time", "timeout", timeout)
	}

	h.Terminate(nil)
	h.logger.Info("Hub stopped")
	return nil
}

// Health reports the hub's condition. The hub has no external
// dependency that can fail, so it is healthy whenever it exists.
func (h *Hub) Health() component.HealthStatus {
	h.mu.RLock()
	started, startedAt := h.started, h.startedAt
	h.mu.RUnlock()

	status := component.HealthStatus{
		Healthy:   true,
		LastCheck: time.Now(),
	}
	if started {
		status.Uptime = time.Since(startedAt)
	}
	return status
}

// Subscribe attaches a new consumer. It begins receiving from the
// next publish; there is no backlog replay.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		id:  uuid.NewString(),
		ch:  make(chan Item, h.cfg.SubscriberBuffer),
		hub: h,
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.subscribers.Set(float64(count))
	}
	h.logger.Debug("Subscriber joined", "id", sub.id, "buffer", cap(sub.ch))
	return sub
}

// Unsubscribe detaches a subscriber and closes its channel. Unknown
// ids are ignored, which makes detach idempotent.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		if h.metrics != nil {
			h.metrics.subscribers.Set(float64(len(h.subscribers)))
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.closeOut(nil)
	h.logger.Debug("Subscriber left", "id", id)
}

// Publish fans one item out to every current subscriber and never
// blocks. Slow subscribers lose their oldest buffered item.
func (h *Hub) Publish(item Item) {
	h.mu.RLock()
	for _, sub := range h.subscribers {
		_, evicted := sub.deliver(item)
		if evicted && h.metrics != nil {
			h.metrics.evicted.Inc()
		}
	}
	h.mu.RUnlock()

	if h.metrics != nil {
		h.metrics.published.Inc()
	}
}

// Terminate ends the current session for every subscriber: each
// receives a terminal item carrying cause, then its channel closes.
// The hub stays usable and later subscribers start fresh.
func (h *Hub) Terminate(cause error) {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*Subscription)
	if h.metrics != nil {
		h.metrics.subscribers.Set(0)
	}
	h.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	terminal := NewTerminalItem(cause)
	for _, sub := range subs {
		sub.closeOut(&terminal)
	}
	h.logger.Info("Session terminated for subscribers",
		"count", len(subs), "cause", cause)
}

// SubscriberStats reports each current subscriber's counters, sorted
// by id for stable output.
func (h *Hub) SubscriberStats() []SubscriberStats {
	h.mu.RLock()
	out := make([]SubscriberStats, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		out = append(out, sub.Stats())
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *Hub) statsLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Publish(NewStatsItem(h.snapshot()))
		}
	}
}
