package hub

import (
	"context"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/stats"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

func frameItem(seq uint64) Item {
	frame := vision.FromImage(image.NewNRGBA(image.Rect(0, 0, 4, 4)), seq, time.Now())
	return NewFrameItem(frame, nil)
}

func testContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// receiveOne pulls the next item or fails the test.
func receiveOne(t *testing.T, sub *Subscription) Item {
	t.Helper()
	select {
	case item, ok := <-sub.Items():
		require.True(t, ok, "channel closed before an item arrived")
		return item
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an item")
		return Item{}
	}
}

func TestHub_Lifecycle(t *testing.T) {
	component.StandardLifecycleTests(t, func() component.Component {
		return New(Config{}, Deps{})
	})
}

func TestHub_PublishDelivers(t *testing.T) {
	h := New(Config{SubscriberBuffer: 4}, Deps{})
	sub := h.Subscribe()
	defer sub.Close()

	det := vision.NewDetection("motion_detection", "motion", vision.Box{X: 1, Y: 2, W: 3, H: 4}, 0.9)
	frame := vision.FromImage(image.NewNRGBA(image.Rect(0, 0, 4, 4)), 1, time.Now())
	h.Publish(NewFrameItem(frame, []vision.Detection{det}))

	item := receiveOne(t, sub)
	assert.Equal(t, ItemFrame, item.Type)
	assert.Same(t, frame, item.Frame)
	require.Len(t, item.Detections, 1)
	assert.Equal(t, "motion_detection", item.Detections[0].Stage)

	st := sub.Stats()
	assert.Equal(t, uint64(1), st.Delivered)
	assert.Zero(t, st.Dropped)
}

func TestHub_DropOldestWhenFull(t *testing.T) {
	h := New(Config{SubscriberBuffer: 2}, Deps{})
	sub := h.Subscribe()
	defer sub.Close()

	for seq := uint64(1); seq <= 3; seq++ {
		h.Publish(frameItem(seq))
	}

	// Ring held 1 and 2; publishing 3 evicted 1.
	assert.Equal(t, uint64(2), receiveOne(t, sub).Frame.Seq)
	assert.Equal(t, uint64(3), receiveOne(t, sub).Frame.Seq)

	st := sub.Stats()
	assert.Equal(t, uint64(3), st.Delivered)
	assert.Equal(t, uint64(1), st.Dropped)
}

func TestHub_ProducerNeverBlocks(t *testing.T) {
	h := New(Config{SubscriberBuffer: 1}, Deps{})
	sub := h.Subscribe()
	defer sub.Close()

	start := time.Now()
	for seq := uint64(1); seq <= 500; seq++ {
		h.Publish(frameItem(seq))
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	st := sub.Stats()
	assert.Equal(t, uint64(500), st.Delivered)
	assert.Equal(t, uint64(499), st.Dropped)
	assert.LessOrEqual(t, st.Buffered, 1)
}

func TestHub_SubscribeSeesOnlyNewerItems(t *testing.T) {
	h := New(Config{}, Deps{})

	h.Publish(frameItem(1))
	sub := h.Subscribe()
	defer sub.Close()
	h.Publish(frameItem(2))

	assert.Equal(t, uint64(2), receiveOne(t, sub).Frame.Seq)
}

func TestHub_PerSubscriberOrder(t *testing.T) {
	h := New(Config{SubscriberBuffer: 4}, Deps{})
	sub := h.Subscribe()

	done := make(chan []uint64, 1)
	go func() {
		var seqs []uint64
		for item := range sub.Items() {
			if item.Type == ItemFrame {
				seqs = append(seqs, item.Frame.Seq)
				// An uneven consumer forces evictions.
				time.Sleep(time.Millisecond)
			}
		}
		done <- seqs
	}()

	for seq := uint64(1); seq <= 100; seq++ {
		h.Publish(frameItem(seq))
	}
	h.Terminate(nil)

	seqs := <-done
	require.NotEmpty(t, seqs)
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1],
			"sequence numbers must increase per subscriber")
	}
}

func TestHub_TerminateDeliversTerminalThenCloses(t *testing.T) {
	h := New(Config{SubscriberBuffer: 2}, Deps{})
	idle := h.Subscribe()
	full := h.Subscribe()

	// Saturate one subscriber so the terminal must evict.
	h.Publish(frameItem(1))
	h.Publish(frameItem(2))

	cause := errors.ErrSourceLost
	h.Terminate(cause)

	for _, sub := range []*Subscription{idle, full} {
		var last Item
		var sawItem bool
		for item := range sub.Items() {
			last = item
			sawItem = true
		}
		require.True(t, sawItem)
		assert.Equal(t, ItemTerminal, last.Type)
		assert.ErrorIs(t, last.Cause, errors.ErrSourceLost)
	}

	// The hub survives the session and serves new subscribers.
	next := h.Subscribe()
	defer next.Close()
	h.Publish(frameItem(3))
	assert.Equal(t, uint64(3), receiveOne(t, next).Frame.Seq)
}

func TestHub_PublishAfterTerminateIsDropped(t *testing.T) {
	h := New(Config{}, Deps{})
	sub := h.Subscribe()

	h.Terminate(nil)
	h.Publish(frameItem(1))

	var items []Item
	for item := range sub.Items() {
		items = append(items, item)
	}
	require.Len(t, items, 1)
	assert.Equal(t, ItemTerminal, items[0].Type)
	assert.NoError(t, items[0].Cause)
}

func TestHub_UnsubscribeDuringPublish(t *testing.T) {
	h := New(Config{SubscriberBuffer: 2}, Deps{})

	stop := make(chan struct{})
	go func() {
		var seq uint64
		for {
			select {
			case <-stop:
				return
			default:
				seq++
				h.Publish(frameItem(seq))
			}
		}
	}()

	for i := 0; i < 50; i++ {
		sub := h.Subscribe()
		// Drain a little, then leave mid-stream.
		select {
		case <-sub.Items():
		case <-time.After(100 * time.Millisecond):
		}
		sub.Close()
		sub.Close()
	}
	close(stop)

	assert.Empty(t, h.SubscriberStats())
}

func TestHub_StatsTicker(t *testing.T) {
	h := New(
		Config{StatsInterval: 10 * time.Millisecond},
		Deps{Snapshot: func() stats.Snapshot { return stats.Snapshot{FPS: 12.5} }},
	)
	sub := h.Subscribe()
	defer sub.Close()

	ctx, cancel := testContext(t)
	defer cancel()
	require.NoError(t, h.Start(ctx))
	defer func() { require.NoError(t, h.Stop(time.Second)) }()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case item := <-sub.Items():
			if item.Type != ItemStats {
				continue
			}
			require.NotNil(t, item.Stats)
			assert.Equal(t, 12.5, item.Stats.FPS)
			return
		case <-deadline:
			t.Fatal("no stats item arrived")
		}
	}
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h := New(Config{}, Deps{})
	sub := h.Subscribe()

	ctx, cancel := testContext(t)
	defer cancel()
	require.NoError(t, h.Start(ctx))
	require.NoError(t, h.Stop(time.Second))

	item := receiveOne(t, sub)
	assert.Equal(t, ItemTerminal, item.Type)
	assert.NoError(t, item.Cause)

	_, open := <-sub.Items()
	assert.False(t, open)
}

func TestHub_SubscriberStatsSorted(t *testing.T) {
	h := New(Config{}, Deps{})
	for i := 0; i < 5; i++ {
		h.Subscribe()
	}

	all := h.SubscriberStats()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
	h.Terminate(nil)
}

func TestItemTypeString(t *testing.T) {
	assert.Equal(t, "frame", ItemFrame.String())
	assert.Equal(t, "stats", ItemStats.String())
	assert.Equal(t, "terminal", ItemTerminal.String())
	assert.Equal(t, "unknown", ItemType(42).String())
}

func TestItemConstructors(t *testing.T) {
	frame := vision.FromImage(image.NewNRGBA(image.Rect(0, 0, 4, 4)), 9, time.Now())
	fi := NewFrameItem(frame, nil)
	assert.Equal(t, ItemFrame, fi.Type)
	assert.Same(t, frame, fi.Frame)

	si := NewStatsItem(stats.Snapshot{FramesProcessed: 3})
	assert.Equal(t, ItemStats, si.Type)
	require.NotNil(t, si.Stats)
	assert.Equal(t, int64(3), si.Stats.FramesProcessed)

	ti := NewTerminalItem(fmt.Errorf("gone"))
	assert.Equal(t, ItemTerminal, ti.Type)
	assert.EqualError(t, ti.Cause, "gone")
}
