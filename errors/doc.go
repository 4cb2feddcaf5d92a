// Package errors provides standardized error handling patterns for video
// pipeline components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// a continuously running capture pipeline: Transient (temporary, retryable),
// Invalid (bad input, non-retryable), and Fatal (unrecoverable, stop the
// capture session).
//
// The classification drives the pipeline's failure policy: a transient decode
// fault skips one frame and keeps the loop running, an invalid option update
// is rejected back to the caller, and only a fatal source fault terminates a
// capture session.
//
// # Error Classification
//
// Errors are classified based on their type or content:
//
//   - Transient: decode faults, network timeouts, temporary unavailability (retry or skip)
//   - Invalid: unknown option keys, out-of-range values, bad descriptors (reject, do not retry)
//   - Fatal: source loss, end of stream, open timeout, resource exhaustion (terminate the session)
//
// The system integrates with Go's standard error handling, supporting
// errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if atEndOfListing {
//	    return errors.ErrEndOfStream
//	}
//
// Wrap errors with component context:
//
//	if err := dev.ReadFrame(ctx); err != nil {
//	    return errors.WrapTransient(err, "Source", "readLoop", "frame decode")
//	}
//
// Check classification at the decision point:
//
//	if err != nil {
//	    if errors.IsFatal(err) {
//	        // terminate the capture session, notify subscribers
//	    } else if errors.IsTransient(err) {
//	        // skip the frame, count it, continue
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// The Wrap family of functions applies this pattern while attaching the
// classification, so the class survives the wrapping chain.
package errors
