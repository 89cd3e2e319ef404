package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

func recvFrame(t *testing.T, s *Session) map[string]any {
	t.Helper()
	select {
	case data := <-s.Out():
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func assertNoFrame(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data := <-s.Out():
		t.Fatalf("unexpected frame %q", data)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPublishToEmptySubjectIsNoop(t *testing.T) {
	h := New()
	defer h.Close()

	// No channels for S001; must not panic or error.
	h.Publish(TopicLocation, "S001", LocationFrame("S001", 1, 2, nil))
}

func TestPublishFanOutOrdering(t *testing.T) {
	h := New()
	defer h.Close()

	a, err := h.Connect(TopicLocation, "S001")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Connect(TopicLocation, "S001")
	if err != nil {
		t.Fatal(err)
	}
	other, err := h.Connect(TopicLocation, "S002")
	if err != nil {
		t.Fatal(err)
	}

	h.Publish(TopicLocation, "S001", LocationFrame("S001", 1.0, 2.0, nil))
	h.Publish(TopicLocation, "S001", LocationFrame("S001", 1.1, 2.1, nil))

	for _, s := range []*Session{a, b} {
		first := recvFrame(t, s)
		second := recvFrame(t, s)
		if first["latitude"] != 1.0 || second["latitude"] != 1.1 {
			t.Errorf("frames out of order: %v then %v", first["latitude"], second["latitude"])
		}
	}
	assertNoFrame(t, other)
}

func TestDisconnectLeavesSiblings(t *testing.T) {
	h := New()
	defer h.Close()

	a, _ := h.Connect(TopicNotification, "user-1")
	b, _ := h.Connect(TopicNotification, "user-1")

	h.Disconnect(a)
	select {
	case <-a.Done():
	default:
		t.Error("disconnected session not marked done")
	}

	h.Publish(TopicNotification, "user-1", NotificationFrame("arrival", "hi", nil))
	if frame := recvFrame(t, b); frame["message"] != "hi" {
		t.Errorf("sibling missed publish: %v", frame)
	}
}

func TestStalledSessionDroppedSiblingsDelivered(t *testing.T) {
	h := New()
	defer h.Close()

	stalled, _ := h.Connect(TopicLocation, "S001")
	healthy, _ := h.Connect(TopicLocation, "S001")

	// Fill both buffers; only the healthy session gets drained.
	for i := 0; i < sessionBuffer; i++ {
		h.Publish(TopicLocation, "S001", LocationFrame("S001", float64(i), 0, nil))
	}
	for i := 0; i < sessionBuffer; i++ {
		frame := recvFrame(t, healthy)
		if frame["latitude"] != float64(i) {
			t.Fatalf("healthy session frame %d = %v", i, frame["latitude"])
		}
	}

	// The next publish overflows the stalled session: it must be removed
	// while the sibling still receives the event.
	h.Publish(TopicLocation, "S001", LocationFrame("S001", 99, 0, nil))

	select {
	case <-stalled.Done():
	case <-time.After(time.Second):
		t.Fatal("stalled session was not removed")
	}
	if frame := recvFrame(t, healthy); frame["latitude"] != float64(99) {
		t.Errorf("sibling missed the publish that dropped the stalled session: %v", frame)
	}
}

func TestPongBeforeSubsequentPublish(t *testing.T) {
	h := New()
	defer h.Close()

	s, _ := h.Connect(TopicLocation, "S001")

	if !s.SendJSON(PongFrame()) {
		t.Fatal("pong enqueue failed")
	}
	h.Publish(TopicLocation, "S001", LocationFrame("S001", 1, 2, nil))

	if frame := recvFrame(t, s); frame["type"] != "pong" {
		t.Fatalf("first frame = %v, want pong", frame["type"])
	}
	if frame := recvFrame(t, s); frame["type"] != "location_update" {
		t.Fatalf("second frame = %v, want location_update", frame["type"])
	}
}

func TestSubjectsDoNotShareState(t *testing.T) {
	h := New()
	defer h.Close()

	const subjects = 8
	const events = sessionBuffer // never overflows an undrained buffer

	var wg sync.WaitGroup
	for i := 0; i < subjects; i++ {
		subject := fmt.Sprintf("S%03d", i)
		s, err := h.Connect(TopicLocation, subject)
		if err != nil {
			t.Fatal(err)
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < events; j++ {
				h.Publish(TopicLocation, subject, LocationFrame(subject, float64(j), 0, nil))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < events; j++ {
				frame := recvFrame(t, s)
				if frame["student_id"] != subject {
					t.Errorf("cross-subject delivery: got %v on %s", frame["student_id"], subject)
				}
				if frame["latitude"] != float64(j) {
					t.Errorf("subject %s: frame %d arrived as %v", subject, j, frame["latitude"])
				}
			}
		}()
	}
	wg.Wait()
}

func TestConnectAfterClose(t *testing.T) {
	h := New()
	s, _ := h.Connect(TopicLocation, "S001")
	h.Close()

	select {
	case <-s.Done():
	default:
		t.Error("session survived hub shutdown")
	}
	if _, err := h.Connect(TopicLocation, "S001"); err == nil {
		t.Error("Connect succeeded on a closed hub")
	}
}

func TestEmptySubjectEntryRemoved(t *testing.T) {
	h := New()
	defer h.Close()

	s, _ := h.Connect(TopicLocation, "S001")
	h.Disconnect(s)

	h.mu.RLock()
	_, ok := h.topics[TopicLocation]["S001"]
	h.mu.RUnlock()
	if ok {
		t.Error("empty subject entry retained after last disconnect")
	}
}
