package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"videobase-go/internal/models"
)

func frame(camera string, seq uint64) models.Frame {
	return models.Frame{
		CameraID:   camera,
		Sequence:   seq,
		Payload:    []byte(fmt.Sprintf("jpeg-%d", seq)),
		CapturedAt: time.Now(),
	}
}

func recvFrame(t *testing.T, sub *Subscription) models.Frame {
	t.Helper()
	select {
	case f := <-sub.Frames():
		return f
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
		return models.Frame{}
	}
}

// TestFanoutToTwoSubscribers verifies both subscribers receive the
// identical frame.
func TestFanoutToTwoSubscribers(t *testing.T) {
	h := New(Options{})
	a := h.Subscribe("cam1")
	b := h.Subscribe("cam1")
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish(frame("cam1", 1))

	fa := recvFrame(t, a)
	fb := recvFrame(t, b)
	if fa.Sequence != 1 || fb.Sequence != 1 {
		t.Errorf("sequences = %d, %d; want 1, 1", fa.Sequence, fb.Sequence)
	}
	if string(fa.Payload) != string(fb.Payload) {
		t.Errorf("payloads differ: %q vs %q", fa.Payload, fb.Payload)
	}
}

// TestSlowSubscriberDoesNotStallOthers saturates subscriber B and checks
// that A still receives every frame while B only misses, never blocks.
func TestSlowSubscriberDoesNotStallOthers(t *testing.T) {
	h := New(Options{FrameQueueSize: 2})
	fast := h.Subscribe("cam1")
	slow := h.Subscribe("cam1")
	defer h.Unsubscribe(fast)
	defer h.Unsubscribe(slow)

	const total = 20
	for i := 1; i <= total; i++ {
		h.Publish(frame("cam1", uint64(i)))
		// Fast consumer drains as frames arrive; slow one never reads.
		if f := recvFrame(t, fast); f.Sequence != uint64(i) {
			t.Fatalf("fast subscriber got sequence %d, want %d", f.Sequence, i)
		}
	}

	if dropped := slow.DroppedFrames(); dropped == 0 {
		t.Error("saturated subscriber reported no drops")
	}
	if dropped := fast.DroppedFrames(); dropped != 0 {
		t.Errorf("fast subscriber dropped %d frames, want 0", dropped)
	}
}

// TestDropOldestKeepsNewestFrames fills a small queue and verifies the
// survivors are the most recent frames in increasing order.
func TestDropOldestKeepsNewestFrames(t *testing.T) {
	h := New(Options{FrameQueueSize: 3})
	sub := h.Subscribe("cam1")
	defer h.Unsubscribe(sub)

	for i := 1; i <= 10; i++ {
		h.Publish(frame("cam1", uint64(i)))
	}

	var got []uint64
	for len(got) < 3 {
		got = append(got, recvFrame(t, sub).Sequence)
	}

	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("sequences not increasing: %v", got)
		}
	}
	if got[len(got)-1] != 10 {
		t.Errorf("newest surviving frame = %d, want 10", got[len(got)-1])
	}
}

// TestDetectionsSurviveFramePressure saturates the frame queue and checks
// detections are still delivered on their own queue.
func TestDetectionsSurviveFramePressure(t *testing.T) {
	h := New(Options{FrameQueueSize: 1})
	sub := h.Subscribe("cam1")
	defer h.Unsubscribe(sub)

	for i := 1; i <= 50; i++ {
		h.Publish(frame("cam1", uint64(i)))
	}
	h.Publish(models.Detection{
		CameraID:   "cam1",
		Payload:    json.RawMessage(`{"boxes":[]}`),
		ReceivedAt: time.Now(),
	})

	select {
	case ev := <-sub.Events():
		if _, ok := ev.(models.Detection); !ok {
			t.Errorf("event = %T, want models.Detection", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("detection lost under frame pressure")
	}
}

// TestNoBackfillForLateSubscriber: a viewer joining after sequence 3 sees
// frames from its connect point onward, never earlier ones.
func TestNoBackfillForLateSubscriber(t *testing.T) {
	h := New(Options{})

	early := h.Subscribe("cam1")
	defer h.Unsubscribe(early)
	for i := 1; i <= 3; i++ {
		h.Publish(frame("cam1", uint64(i)))
	}

	late := h.Subscribe("cam1")
	defer h.Unsubscribe(late)
	for i := 4; i <= 5; i++ {
		h.Publish(frame("cam1", uint64(i)))
	}

	first := recvFrame(t, late)
	if first.Sequence != 4 {
		t.Errorf("late subscriber first frame = %d, want 4", first.Sequence)
	}
	if second := recvFrame(t, late); second.Sequence != 5 {
		t.Errorf("late subscriber second frame = %d, want 5", second.Sequence)
	}
}

// TestCameraIsolation: events for one camera never reach another camera's
// subscribers.
func TestCameraIsolation(t *testing.T) {
	h := New(Options{})
	a := h.Subscribe("cam1")
	b := h.Subscribe("cam2")
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish(frame("cam1", 1))

	recvFrame(t, a)
	select {
	case f := <-b.Frames():
		t.Errorf("cam2 subscriber received cam1 frame %d", f.Sequence)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestSubscribeUnknownCamera never errors; events arrive once ingest does.
func TestSubscribeUnknownCamera(t *testing.T) {
	h := New(Options{})
	sub := h.Subscribe("ghost")
	defer h.Unsubscribe(sub)

	select {
	case <-sub.Frames():
		t.Error("received frame for camera with no ingest")
	case <-time.After(50 * time.Millisecond):
	}

	h.Publish(frame("ghost", 1))
	if f := recvFrame(t, sub); f.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", f.Sequence)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := New(Options{})
	sub := h.Subscribe("cam1")

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	select {
	case <-sub.Done():
	default:
		t.Error("Done not closed after Unsubscribe")
	}

	// Publishing after teardown must not deliver to the torn-down sink.
	h.Publish(frame("cam1", 1))
	select {
	case f := <-sub.Frames():
		t.Errorf("torn-down subscription received frame %d", f.Sequence)
	case <-time.After(50 * time.Millisecond):
	}

	if n := h.SubscriberCount("cam1"); n != 0 {
		t.Errorf("subscriber count = %d, want 0", n)
	}
}

// TestConcurrentChurn hammers subscribe/publish/unsubscribe across several
// cameras to exercise the sharded locking under race conditions.
func TestConcurrentChurn(t *testing.T) {
	h := New(Options{FrameQueueSize: 4})
	cameras := []string{"cam1", "cam2", "cam3", "cam4"}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for _, cam := range cameras {
		wg.Add(1)
		go func(cam string) {
			defer wg.Done()
			var seq uint64
			for {
				select {
				case <-stop:
					return
				default:
					seq++
					h.Publish(frame(cam, seq))
				}
			}
		}(cam)
	}

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cam := cameras[i%len(cameras)]
			for j := 0; j < 100; j++ {
				sub := h.Subscribe(cam)
				select {
				case <-sub.Frames():
				case <-time.After(10 * time.Millisecond):
				}
				h.Unsubscribe(sub)
			}
		}(i)
	}

	waitDone := make(chan struct{})
	go func() {
		time.Sleep(300 * time.Millisecond)
		close(stop)
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent churn deadlocked")
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	h := New(Options{})
	sub := h.Subscribe("cam1")
	defer h.Unsubscribe(sub)

	h.Close()
	h.Publish(frame("cam1", 1))

	select {
	case f := <-sub.Frames():
		t.Errorf("closed hub delivered frame %d", f.Sequence)
	case <-time.After(50 * time.Millisecond):
	}
}
