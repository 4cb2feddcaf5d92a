package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/pkg/buffer"
)

const (
	defaultWindowSpan = 30 * time.Second
	defaultMaxSamples = 900
)

// Config bounds the sliding window. Zero values fall back to a thirty
// second span capped at 900 samples.
type Config struct {
	// WindowSpan is the elapsed-time bound; samples older than this
	// no longer count toward window figures.
	WindowSpan time.Duration

	// MaxSamples caps retained samples regardless of age.
	MaxSamples int
}

// Aggregator folds per-frame samples into a sliding window plus
// cumulative session totals. Record and RecordSkip are called from
// the capture goroutine; Snapshot and Reset from control callers.
type Aggregator struct {
	span   time.Duration
	window buffer.Buffer[Sample]

	framesProcessed atomic.Int64
	framesSkipped   atomic.Int64
	faces           atomic.Int64
	objects         atomic.Int64
	motionEvents    atomic.Int64

	mu           sync.Mutex
	sessionStart time.Time
}

// NewAggregator builds an aggregator with the given window bounds.
func NewAggregator(cfg Config) (*Aggregator, error) {
	span := cfg.WindowSpan
	if span <= 0 {
		span = defaultWindowSpan
	}
	maxSamples := cfg.MaxSamples
	if maxSamples <= 0 {
		maxSamples = defaultMaxSamples
	}

	window, err := buffer.NewCircularBuffer[Sample](maxSamples,
		buffer.WithOverflowPolicy[Sample](buffer.DropOldest))
	if err != nil {
		return nil, fmt.Errorf("stats window: %w", err)
	}

	return &Aggregator{
		span:         span,
		window:       window,
		sessionStart: time.Now(),
	}, nil
}

// Record folds one processed frame into the window and the cumulative
// totals. A zero Timestamp is stamped with the current time.
func (a *Aggregator) Record(sample Sample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	a.framesProcessed.Add(1)
	a.faces.Add(int64(sample.Faces))
	a.objects.Add(int64(sample.Objects))
	a.motionEvents.Add(int64(sample.Motion))

	_ = a.window.Write(sample)
}

// RecordSkip counts a frame the capture source skipped after a
// transient read error. Skipped frames never enter the window.
func (a *Aggregator) RecordSkip() {
	a.framesSkipped.Add(1)
}

// Snapshot returns an immutable point-in-time summary. The window
// buffer's lock is held only while its contents are copied out; all
// aggregation happens on the copy.
func (a *Aggregator) Snapshot() Snapshot {
	now := time.Now()

	a.mu.Lock()
	sessionStart := a.sessionStart
	a.mu.Unlock()

	snap := Snapshot{
		FramesProcessed: a.framesProcessed.Load(),
		FramesSkipped:   a.framesSkipped.Load(),
		Faces:           a.faces.Load(),
		Objects:         a.objects.Load(),
		MotionEvents:    a.motionEvents.Load(),
		SessionStart:    sessionStart,
		Uptime:          now.Sub(sessionStart),
	}

	samples := a.window.Snapshot()
	cutoff := now.Add(-a.span)

	var (
		n           int
		totalSum    time.Duration
		stageSums   map[string]time.Duration
		stageCounts map[string]int
		first, last time.Time
	)
	for _, s := range samples {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		if n == 0 || s.Timestamp.Before(first) {
			first = s.Timestamp
		}
		if s.Timestamp.After(last) {
			last = s.Timestamp
		}
		n++
		totalSum += s.Total
		for stage, d := range s.Stages {
			if stageSums == nil {
				stageSums = make(map[string]time.Duration)
				stageCounts = make(map[string]int)
			}
			stageSums[stage] += d
			stageCounts[stage]++
		}
	}

	if n == 0 {
		return snap
	}

	snap.WindowStart = first
	snap.WindowEnd = last
	snap.FramesInWindow = n
	snap.AvgLatency = totalSum / time.Duration(n)
	if span := last.Sub(first); span > 0 {
		snap.FPS = float64(n) / span.Seconds()
	}
	if len(stageSums) > 0 {
		snap.StageLatency = make(map[string]time.Duration, len(stageSums))
		for stage, sum := range stageSums {
			snap.StageLatency[stage] = sum / time.Duration(stageCounts[stage])
		}
	}
	return snap
}

// Reset clears the window and all cumulative totals and restarts the
// session clock. Capture state is unaffected.
func (a *Aggregator) Reset() {
	a.window.Clear()
	a.framesProcessed.Store(0)
	a.framesSkipped.Store(0)
	a.faces.Store(0)
	a.objects.Store(0)
	a.motionEvents.Store(0)

	a.mu.Lock()
	a.sessionStart = time.Now()
	a.mu.Unlock()
}
