package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingForwarder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (f *recordingForwarder) Forward(_ context.Context, e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func TestQueuePushFillsIDAndTimestamp(t *testing.T) {
	at := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	q := NewQueue(WithNow(func() time.Time { return at }))

	stored := q.Push(Event{Event: EventFormSubmit, FormID: "f-1", Source: "contact"})
	if stored.ID == "" {
		t.Fatalf("expected generated id")
	}
	if !stored.At.Equal(at) {
		t.Fatalf("expected timestamp %s, got %s", at, stored.At)
	}
	if q.Len() != 1 || q.Count(EventFormSubmit) != 1 {
		t.Fatalf("unexpected queue state len=%d", q.Len())
	}
}

func TestQueueEventsIsSnapshot(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Event: EventPageView})
	snap := q.Events()
	snap[0].Event = "mutated"
	if q.Events()[0].Event != EventPageView {
		t.Fatalf("snapshot mutation leaked into queue")
	}
}

func TestQueueForwardsAsynchronously(t *testing.T) {
	fwd := &recordingForwarder{err: errors.New("downstream unavailable")}
	q := NewQueue(WithForwarder(fwd))
	q.Push(Event{Event: EventFormSubmit, FormID: "f-1"})
	q.Push(Event{Event: EventPageView})
	q.Flush()

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	if len(fwd.events) != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", len(fwd.events))
	}
	if q.Len() != 2 {
		t.Fatalf("forward failures must not drop events, len=%d", q.Len())
	}
}
