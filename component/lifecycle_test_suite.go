package component

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
)

// ComponentFactory creates a fresh component instance for the suite.
type ComponentFactory func() Component

// StandardLifecycleTests runs the lifecycle contract tests shared by
// every platform component. Component packages call this from their
// own tests so the hub, the upload queue, and the event feed all
// honor the same transitions:
//
//   - Initialize is idempotent
//   - Start auto-initializes and rejects a second Start
//   - Stop is a no-op when not running and idempotent
//   - a stopped component can be started again
//   - Start returns the context error when ctx is already dead
func StandardLifecycleTests(t *testing.T, factory ComponentFactory) {
	t.Run("Compliance", func(t *testing.T) {
		testLifecycleCompliance(t, factory)
	})
	t.Run("ErrorPaths", func(t *testing.T) {
		testLifecycleErrorPaths(t, factory)
	})
	t.Run("Concurrent", func(t *testing.T) {
		testConcurrentLifecycle(t, factory)
	})
}

func testLifecycleCompliance(t *testing.T, factory ComponentFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, comp Component)
	}{
		{"Initialize", testInitialize},
		{"Start", testStart},
		{"DoubleStart", testDoubleStart},
		{"DoubleStop", testDoubleStop},
		{"StartWithoutInit", testStartWithoutInit},
		{"StopWithoutStart", testStopWithoutStart},
		{"RestartAfterStop", testRestartAfterStop},
		{"Health", testHealthAcrossStates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := factory()
			require.NotNil(t, comp, "Component factory returned nil")
			tt.test(t, comp)
		})
	}
}

func testInitialize(t *testing.T, comp Component) {
	assert.NotEmpty(t, comp.Name(), "Name should be set")

	err := comp.Initialize()
	assert.NoError(t, err, "Initialize should succeed on fresh component")

	err = comp.Initialize()
	assert.NoError(t, err, "Initialize should be idempotent")
}

func testStart(t *testing.T, comp Component) {
	err := comp.Initialize()
	require.NoError(t, err, "Initialize must succeed before Start")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = comp.Start(ctx)
	assert.NoError(t, err, "Start should succeed after Initialize")

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Stop should succeed after Start")
}

func testDoubleStart(t *testing.T, comp Component) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := comp.Start(ctx)
	require.NoError(t, err, "First Start should succeed")

	err = comp.Start(ctx)
	require.Error(t, err, "Second Start should be rejected")
	assert.True(t, stderrors.Is(err, errors.ErrAlreadyStarted),
		"Second Start should report ErrAlreadyStarted, got: %v", err)

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Stop should succeed")
}

func testDoubleStop(t *testing.T, comp Component) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := comp.Start(ctx)
	require.NoError(t, err, "Start must succeed")

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "First Stop should succeed")

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Second Stop should be idempotent")
}

func testStartWithoutInit(t *testing.T, comp Component) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := comp.Start(ctx)
	assert.NoError(t, err, "Start should auto-initialize a fresh component")

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Stop should succeed")
}

func testStopWithoutStart(t *testing.T, comp Component) {
	err := comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Stop should be safe to call without Start")
}

func testRestartAfterStop(t *testing.T, comp Component) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := comp.Start(ctx)
	require.NoError(t, err, "First Start should succeed")

	err = comp.Stop(5 * time.Second)
	require.NoError(t, err, "Stop should succeed")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	err = comp.Start(ctx2)
	assert.NoError(t, err, "Start should succeed after Stop")

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Final Stop should succeed")
}

func testHealthAcrossStates(t *testing.T, comp Component) {
	h := comp.Health()
	assert.False(t, h.LastCheck.IsZero(), "Health should record a check time")
	assert.True(t, h.Healthy, "Fresh component should be healthy")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, comp.Start(ctx))
	h = comp.Health()
	assert.True(t, h.Healthy, "Running component should be healthy")

	require.NoError(t, comp.Stop(5*time.Second))
	h = comp.Health()
	assert.True(t, h.Healthy, "Cleanly stopped component should stay healthy")
}

func testLifecycleErrorPaths(t *testing.T, factory ComponentFactory) {
	t.Run("cancelled_context_on_start", func(t *testing.T) {
		comp := factory()
		require.NoError(t, comp.Initialize())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := comp.Start(ctx)
		require.Error(t, err, "Start with cancelled context should fail")
		assert.True(t, stderrors.Is(err, context.Canceled),
			"expected context.Canceled, got: %v", err)
	})

	t.Run("expired_context_on_start", func(t *testing.T) {
		comp := factory()
		require.NoError(t, comp.Initialize())

		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		time.Sleep(10 * time.Millisecond)

		err := comp.Start(ctx)
		require.Error(t, err, "Start with expired context should fail")
		assert.True(t, stderrors.Is(err, context.DeadlineExceeded),
			"expected context.DeadlineExceeded, got: %v", err)
	})

	t.Run("start_after_failed_start", func(t *testing.T) {
		comp := factory()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = comp.Start(ctx)

		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		err := comp.Start(ctx2)
		assert.NoError(t, err, "Start should succeed after a rejected Start")
		assert.NoError(t, comp.Stop(5*time.Second))
	})
}

func testConcurrentLifecycle(t *testing.T, factory ComponentFactory) {
	comp := factory()
	require.NotNil(t, comp)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers * 2)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = comp.Start(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = comp.Stop(time.Second)
		}()
	}
	wg.Wait()

	// Whatever state the race left behind, the component must still
	// complete one clean cycle.
	_ = comp.Stop(5 * time.Second)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	require.NoError(t, comp.Start(ctx2), "Start should succeed after concurrent churn")
	require.NoError(t, comp.Stop(5*time.Second), "Stop should succeed after concurrent churn")
}
