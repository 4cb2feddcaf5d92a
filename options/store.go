package options

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
)

// fieldSetter validates one raw value and writes it into a staged
// options copy.
type fieldSetter func(*Options, any) error

// fields maps option names to their setters. The map doubles as the
// set of known option names.
var fields = map[string]fieldSetter{
	"face_detection":    boolField(func(o *Options, v bool) { o.FaceDetection = v }),
	"edge_detection":    boolField(func(o *Options, v bool) { o.EdgeDetection = v }),
	"blur":              boolField(func(o *Options, v bool) { o.Blur = v }),
	"grayscale":         boolField(func(o *Options, v bool) { o.Grayscale = v }),
	"motion_detection":  boolField(func(o *Options, v bool) { o.MotionDetection = v }),
	"object_tracking":   boolField(func(o *Options, v bool) { o.ObjectTracking = v }),
	"advanced_analysis": boolField(func(o *Options, v bool) { o.AdvancedAnalysis = v }),
	"overlay":           boolField(func(o *Options, v bool) { o.Overlay = v }),
	"brightness":        intField(-100, 100, func(o *Options, v int) { o.Brightness = v }),
	"contrast":          floatField(0.1, 3.0, func(o *Options, v float64) { o.Contrast = v }),
	"saturation":        floatField(0.0, 3.0, func(o *Options, v float64) { o.Saturation = v }),
	"motion_threshold":  intField(1, 100000, func(o *Options, v int) { o.MotionThreshold = v }),
	"blur_sigma":        floatField(0.1, 50.0, func(o *Options, v float64) { o.BlurSigma = v }),
	"jpeg_quality":      intField(1, 100, func(o *Options, v int) { o.JPEGQuality = v }),
}

// Keys returns the known option names in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidationError reports the keys a Set call rejected, each with a
// reason. Keys absent from Rejected were applied.
type ValidationError struct {
	Rejected map[string]string `json:"rejected"`
}

// Error formats the rejected keys in sorted order.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Rejected))
	for k := range e.Rejected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Rejected[k]
	}
	return "invalid option values: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match the store's validation failures with
// errors.Is against ErrInvalidConfig.
func (e *ValidationError) Unwrap() error {
	return errors.ErrInvalidConfig
}

// Store provides thread-safe access to the processing options.
type Store struct {
	mu   sync.RWMutex
	opts Options
}

// NewStore creates a store holding the default options.
func NewStore() *Store {
	return &Store{opts: Defaults()}
}

// Snapshot returns a copy of the current options. The copy is a plain
// value, so readers can hold it for a whole frame cycle without
// touching the lock again.
func (s *Store) Snapshot() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Set applies a partial update. Every key is validated on its own:
// unknown names and out-of-range values are rejected individually
// while the remaining keys still apply. The staged copy is swapped in
// once, so a concurrent Snapshot sees either none or all of the
// accepted keys. Returns a *ValidationError naming each rejected key,
// or nil when everything applied.
func (s *Store) Set(partial map[string]any) error {
	if len(partial) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.opts
	rejected := make(map[string]string)

	for key, value := range partial {
		apply, ok := fields[key]
		if !ok {
			rejected[key] = "unknown option"
			continue
		}
		if err := apply(&staged, value); err != nil {
			rejected[key] = err.Error()
		}
	}

	s.opts = staged

	if len(rejected) > 0 {
		return &ValidationError{Rejected: rejected}
	}
	return nil
}

// Reset restores the default options.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = Defaults()
}

func boolField(set func(*Options, bool)) fieldSetter {
	return func(o *Options, v any) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %v", v)
		}
		set(o, b)
		return nil
	}
}

func intField(min, max int, set func(*Options, int)) fieldSetter {
	return func(o *Options, v any) error {
		n, ok := toInt(v)
		if !ok {
			return fmt.Errorf("expected integer, got %v", v)
		}
		if n < min || n > max {
			return fmt.Errorf("value %d out of range [%d, %d]", n, min, max)
		}
		set(o, n)
		return nil
	}
}

func floatField(min, max float64, set func(*Options, float64)) fieldSetter {
	return func(o *Options, v any) error {
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("expected number, got %v", v)
		}
		if f < min || f > max {
			return fmt.Errorf("value %g out of range [%g, %g]", f, min, max)
		}
		set(o, f)
		return nil
	}
}

// toInt accepts the integer shapes a caller may hand over. JSON
// decoding produces float64, so integral floats count.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.Trunc(n) != n {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
