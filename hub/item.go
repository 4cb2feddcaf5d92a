package hub

import (
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/stats"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// ItemType tags the payload carried by an Item.
type ItemType int

const (
	// ItemFrame carries a processed frame and its detections.
	ItemFrame ItemType = iota

	// ItemStats carries a periodic stats snapshot.
	ItemStats

	// ItemTerminal is the last item a subscriber receives before its
	// channel closes. Cause is nil for a clean stop.
	ItemTerminal
)

// String returns a human-readable item type name.
func (t ItemType) String() string {
	switch t {
	case ItemFrame:
		return "frame"
	case ItemStats:
		return "stats"
	case ItemTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Item is one fan-out unit. Exactly the fields for its Type are set;
// payloads are immutable once published, so items may be shared by
// any number of subscribers.
type Item struct {
	Type ItemType

	// ItemFrame payload.
	Frame      *vision.Frame
	Detections []vision.Detection

	// ItemStats payload.
	Stats *stats.Snapshot

	// ItemTerminal payload.
	Cause error
}

// NewFrameItem wraps a processed frame and its detections.
func NewFrameItem(frame *vision.Frame, detections []vision.Detection) Item {
	return Item{Type: ItemFrame, Frame: frame, Detections: detections}
}

// NewStatsItem wraps a stats snapshot.
func NewStatsItem(snap stats.Snapshot) Item {
	return Item{Type: ItemStats, Stats: &snap}
}

// NewTerminalItem marks the end of a capture session.
func NewTerminalItem(cause error) Item {
	return Item{Type: ItemTerminal, Cause: cause}
}
