package capture

import (
	"context"
	"fmt"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// Device is an open capture source. ReadFrame blocks until the next
// frame is due, the context ends, or the stream ends.
//
// Read errors are classified: a transient error means one bad frame
// (the caller skips it and reads again); any other error ends the
// session. A finished file-backed source reports ErrEndOfStream.
// Devices leave Frame.Seq zero; the source stamps sequence numbers.
type Device interface {
	ReadFrame(ctx context.Context) (*vision.Frame, error)
	Close() error
}

// Opener resolves a descriptor into an open device.
type Opener interface {
	Open(ctx context.Context, desc Descriptor) (Device, error)
}

// OpenFunc adapts a function to the Opener interface.
type OpenFunc func(ctx context.Context, desc Descriptor) (Device, error)

// Open calls f.
func (f OpenFunc) Open(ctx context.Context, desc Descriptor) (Device, error) {
	return f(ctx, desc)
}

// SchemeOpener routes descriptors to per-scheme openers.
type SchemeOpener struct {
	schemes map[string]Opener
}

// NewSchemeOpener creates an opener with no schemes wired.
func NewSchemeOpener() *SchemeOpener {
	return &SchemeOpener{schemes: make(map[string]Opener)}
}

// Register wires an opener for a scheme, replacing any previous one.
// Not safe for use after the opener is handed to a running source.
func (o *SchemeOpener) Register(scheme string, opener Opener) {
	o.schemes[scheme] = opener
}

// Open resolves the descriptor's scheme. An unknown scheme fails with
// ErrUnsupportedSource, which lands a start attempt in the error
// state the same way a missing camera would.
func (o *SchemeOpener) Open(ctx context.Context, desc Descriptor) (Device, error) {
	opener, ok := o.schemes[desc.Scheme]
	if !ok {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %s", errors.ErrUnsupportedSource, desc.Scheme),
			"capture", "Open", "scheme lookup")
	}
	return opener.Open(ctx, desc)
}

// DefaultOpener returns the opener set shipped with the platform:
// the synthetic test pattern and image-directory replay.
func DefaultOpener() *SchemeOpener {
	o := NewSchemeOpener()
	o.Register(SchemeTestPattern, OpenFunc(openTestPattern))
	o.Register(SchemeDir, OpenFunc(openDir))
	return o
}
