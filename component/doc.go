// Package component provides the lifecycle infrastructure shared by
// the video platform's long-running parts: the capture source, the
// distribution hub, the stats aggregator, and the upload queue.
//
// # Lifecycle
//
// Every component implements the same four-phase contract:
//
//	comp := capture.NewSource(desc, deps)   // create
//	err  := comp.Initialize()               // prepare, no work yet
//	err  := comp.Start(ctx)                 // begin work
//	err  := comp.Stop(5 * time.Second)      // halt, bounded wait
//
// Initialize is idempotent and Start auto-initializes, so callers
// that do not need the separate phase can go straight to Start. Stop
// on a component that is not running is a no-op, and a stopped
// component can be started again. These rules are enforced for every
// implementation through StandardLifecycleTests.
//
// # Manager
//
// The Manager runs a fixed set of components as one unit. Components
// start in registration order and stop in reverse. Each one receives
// its own child context, retained by the manager so shutdown can
// cancel all of them before any Stop is called:
//
//	mgr := component.NewManager(deps)
//	mgr.Register(statsAggregator)
//	mgr.Register(hub)
//	mgr.Register(uploadQueue)
//	mgr.Register(captureSource)
//
//	if err := mgr.StartAll(ctx); err != nil {
//		// already-started components were rolled back
//	}
//	defer mgr.StopAll(10 * time.Second)
//
// Consumers are registered before the capture source so frames never
// arrive at a hub that is not running yet, and the reverse stop order
// drains them after the source has quiesced.
//
// # Dependencies
//
// Components receive shared infrastructure through the Dependencies
// struct rather than globals. All fields are optional; a component
// built with an empty Dependencies logs through slog.Default() and
// skips metrics and the NATS log relay.
//
// # Log relay
//
// Logger mirrors component logs onto the NATS subject
// videoproc.logs.<component> so a live session can be tailed from the
// dashboard. Local slog output is unconditional; the relay is best
// effort and never fails the caller.
package component
