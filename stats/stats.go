// Package stats maintains a sliding-window summary of pipeline
// throughput and latency.
//
// The capture goroutine records one Sample per processed frame.
// Control callers read point-in-time Snapshots and may Reset the
// accumulated counters between capture sessions. Recording is O(1);
// the window is bounded both by elapsed time and by a sample cap, so
// memory stays fixed no matter how long a session runs.
package stats

import "time"

// Sample is one processed frame's worth of measurements. Stages maps
// stage name to the time that stage took; the aggregator keeps the map
// as handed over, so callers must not reuse it.
type Sample struct {
	Timestamp time.Time
	Total     time.Duration
	Stages    map[string]time.Duration

	// Event counts extracted from the frame's detections.
	Faces   int
	Objects int
	Motion  int
}

// Snapshot is a point-in-time summary. Window fields describe the
// samples currently inside the sliding window; the cumulative fields
// count everything since construction or the last Reset and never
// decrease within a session. A snapshot with an empty window reports
// zero frames, zero fps, and no latencies.
type Snapshot struct {
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	FramesInWindow int       `json:"frames_in_window"`
	FPS            float64   `json:"fps"`

	// AvgLatency is the mean total per-frame latency across the
	// window; StageLatency holds the per-stage means, keyed by stage
	// name, counting only frames where the stage ran.
	AvgLatency   time.Duration            `json:"avg_latency"`
	StageLatency map[string]time.Duration `json:"stage_latency,omitempty"`

	FramesProcessed int64 `json:"frames_processed"`
	FramesSkipped   int64 `json:"frames_skipped"`
	Faces           int64 `json:"faces_detected"`
	Objects         int64 `json:"objects_detected"`
	MotionEvents    int64 `json:"motion_events"`

	SessionStart time.Time     `json:"session_start"`
	Uptime       time.Duration `json:"uptime"`
}
