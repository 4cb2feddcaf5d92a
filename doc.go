// Package videoproc is a real-time video processing service: it
// captures frames from a live or file-backed source, runs each frame
// through a runtime-tunable filter chain, and fans the results out to
// any number of independently paced consumers while archiving
// snapshots to local or cloud storage on a best-effort basis.
//
// # Architecture
//
// One producer, many consumers, never a stall:
//
//	┌──────────┐    ┌──────────┐    ┌──────────────┐
//	│ capture  │ →  │ pipeline │ →  │     hub      │
//	│ (device, │    │ (filters,│    │ (per-subscr. │
//	│  loop)   │    │  detect) │    │ bounded ring)│
//	└──────────┘    └────┬─────┘    └──┬───┬───┬───┘
//	                     │             ↓   ↓   ↓
//	                ┌────┴────┐     MJPEG  WS  custom
//	                │  stats  │    stream feed subscribers
//	                └─────────┘
//	                     │
//	                ┌────┴────┐    ┌──────────────────┐
//	                │ upload  │ →  │ storage backends  │
//	                │ (queue) │    │ file / NATS / mem │
//	                └─────────┘    └──────────────────┘
//
// The capture goroutine is the only producer. It never blocks on a
// consumer: slow subscribers lose their oldest buffered items, the
// upload queue drops new work when full, and every loss is counted
// and observable. Control operations (option updates, session
// start/stop, stats reset) mutate behavior safely while frames are in
// flight.
//
// # Packages
//
//   - vision: the frame and detection types every stage exchanges
//   - capture: device descriptors, openers, and the session state
//     machine driving the capture loop
//   - pipeline: the fixed per-frame stage chain with pluggable
//     detection capabilities
//   - options: runtime-tunable processing options behind validated
//     partial updates
//   - stats: sliding-window aggregation of per-frame measurements
//   - hub: fan-out to bounded per-subscriber rings, drop-oldest
//   - upload: bounded archival queue with retrying workers
//   - storage: object sink backends (directory, NATS JetStream
//     object store, in-memory)
//   - export: boundary adapters for MJPEG streaming and the
//     WebSocket event feed
//   - service: the Processor facade assembling everything
//   - component, errors, metric, config, natsclient, health: the
//     ambient platform layer shared by all of the above
//
// # Usage
//
// The cmd/videoproc binary wires the full assembly. Library users
// build a Processor directly:
//
//	cfg := config.Defaults()
//	proc, err := service.New(cfg, service.Deps{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := proc.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer proc.Stop(10 * time.Second)
//
//	if err := proc.StartCapture(ctx, "testpattern:640x480@30"); err != nil {
//		log.Fatal(err)
//	}
//
//	sub := proc.Subscribe()
//	for item := range sub.Items() {
//		// frames, periodic stats, then one terminal item
//	}
package videoproc
