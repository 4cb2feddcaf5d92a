// Package export adapts hub output for delivery beyond the process
// boundary: a pull-based MJPEG frame stream and a push-based WebSocket
// event feed. Transport concerns (HTTP routing, connection upgrade,
// authentication) stay with the caller; this package only shapes and
// paces the bytes.
package export

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/hub"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
)

const (
	// Boundary separates JPEG parts in the multipart stream.
	Boundary = "frame"

	// ContentType is the response Content-Type a handler serving
	// WriteMultipart must set.
	ContentType = "multipart/x-mixed-replace; boundary=" + Boundary
)

// FrameStream turns one hub subscription into a sequence of encoded
// JPEG frames. Stats items pass through unseen; the terminal item ends
// the stream. Each frame is encoded at the JPEG quality current when
// it is pulled, so quality changes apply mid-stream.
type FrameStream struct {
	sub  *hub.Subscription
	opts *options.Store
}

// NewFrameStream wraps an existing subscription. A nil options store
// pins the default JPEG quality.
func NewFrameStream(sub *hub.Subscription, opts *options.Store) *FrameStream {
	return &FrameStream{sub: sub, opts: opts}
}

// ID returns the underlying subscriber's identifier.
func (s *FrameStream) ID() string { return s.sub.ID() }

// Stats reports the underlying subscriber's delivery counters.
func (s *FrameStream) Stats() hub.SubscriberStats { return s.sub.Stats() }

// Next blocks for the next frame and returns it encoded as JPEG. It
// returns io.EOF once the session ends or the stream is closed, and
// ctx.Err() when the context ends first. A frame that fails to encode
// is skipped.
func (s *FrameStream) Next(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case item, ok := <-s.sub.Items():
			if !ok {
				return nil, io.EOF
			}
			switch item.Type {
			case hub.ItemFrame:
				data, err := item.Frame.EncodeJPEG(s.quality())
				if err != nil {
					continue
				}
				return data, nil
			case hub.ItemTerminal:
				return nil, io.EOF
			default:
				// Stats and anything else are not frames.
			}
		}
	}
}

// WriteMultipart streams frames into w as multipart/x-mixed-replace
// parts until the session ends, flushing after each part when w
// supports it. It returns nil on a clean end and the write error when
// the consumer goes away mid-frame. Callers who need to abandon an
// idle stream close it; Close unblocks the loop and ends the stream
// cleanly.
func (s *FrameStream) WriteMultipart(w io.Writer) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(Boundary); err != nil {
		return err
	}
	flusher, _ := w.(http.Flusher)

	for {
		data, err := s.Next(context.Background())
		if err != nil {
			if err == io.EOF {
				return mw.Close()
			}
			return err
		}

		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "image/jpeg")
		header.Set("Content-Length", strconv.Itoa(len(data)))

		part, err := mw.CreatePart(header)
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Close detaches the stream from the hub. Pending and future Next
// calls return io.EOF. Safe to call more than once.
func (s *FrameStream) Close() {
	s.sub.Close()
}

func (s *FrameStream) quality() int {
	if s.opts == nil {
		return options.Defaults().JPEGQuality
	}
	return s.opts.Snapshot().JPEGQuality
}
