package upload

import (
	"fmt"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// Status tracks a job through the queue.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInFlight  Status = "in_flight"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is one archival request. The queue owns the job after Enqueue;
// callers only ever see value copies, so completed records are
// immutable snapshots.
type Job struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Status      Status    `json:"status"`
	Attempts    int       `json:"attempts"`
	URI         string    `json:"uri,omitempty"`
	Error       string    `json:"error,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	// Work state, dropped from completed records so the recent ring
	// does not pin pixel buffers.
	frame   *vision.Frame
	quality int
	meta    storage.Metadata
}

// KeyFor renders the object key for a frame:
// frames/frame_<YYYYMMDD_HHMMSS>_<seq>.jpg, derived from the capture
// timestamp so re-archiving the same frame hits the same key.
func KeyFor(frame *vision.Frame) string {
	return fmt.Sprintf("frames/frame_%s_%d.jpg",
		frame.Timestamp.UTC().Format("20060102_150405"), frame.Seq)
}
