// Package capture provides the frame source: device descriptors, the
// opener/device boundary, the shipped synthetic and directory-replay
// devices, and the session state machine that runs the capture loop.
package capture

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
)

// Schemes of the devices shipped with the platform.
const (
	SchemeTestPattern = "testpattern"
	SchemeDir         = "dir"
)

// DefaultFPS applies when a descriptor names no rate.
const DefaultFPS = 30

// maxFPS bounds the requested frame rate.
const maxFPS = 240

// Descriptor identifies a capture device: "<scheme>:<target>[@fps]".
// Examples: "testpattern:640x480@30", "dir:/data/frames@10".
type Descriptor struct {
	Scheme string
	Target string
	FPS    int

	// Width and Height are filled when the target is a size spec
	// like "640x480".
	Width  int
	Height int
}

// ParseDescriptor parses a descriptor string. The scheme is not
// checked against the set of wired openers here; resolving it is the
// opener's job, so an unplugged camera scheme parses fine and fails
// at open time.
func ParseDescriptor(s string) (Descriptor, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Descriptor{}, errors.WrapInvalid(
			fmt.Errorf("empty descriptor"),
			"capture", "ParseDescriptor", "descriptor parsing")
	}

	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok || scheme == "" {
		return Descriptor{}, errors.WrapInvalid(
			fmt.Errorf("descriptor %q has no scheme", s),
			"capture", "ParseDescriptor", "descriptor parsing")
	}

	target := rest
	fps := DefaultFPS
	// The rate suffix is the last @; paths may contain earlier ones.
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		target = rest[:at]
		parsed, err := strconv.Atoi(rest[at+1:])
		if err != nil || parsed < 1 || parsed > maxFPS {
			return Descriptor{}, errors.WrapInvalid(
				fmt.Errorf("descriptor %q has invalid rate %q", s, rest[at+1:]),
				"capture", "ParseDescriptor", "rate parsing")
		}
		fps = parsed
	}

	d := Descriptor{Scheme: scheme, Target: target, FPS: fps}
	if w, h, ok := parseSize(target); ok {
		d.Width = w
		d.Height = h
	}

	return d, nil
}

// parseSize recognizes "640x480" shaped targets.
func parseSize(target string) (int, int, bool) {
	ws, hs, ok := strings.Cut(target, "x")
	if !ok {
		return 0, 0, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w < 1 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 1 {
		return 0, 0, false
	}
	return w, h, true
}

// Interval returns the frame period for the descriptor's rate.
func (d Descriptor) Interval() time.Duration {
	fps := d.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// String reassembles the canonical descriptor form.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%s@%d", d.Scheme, d.Target, d.FPS)
}
