// Package analytics collects page-level marketing events (form submissions,
// page views) in a process-wide append-only queue and optionally forwards
// them downstream.
package analytics

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Event names emitted by the site.
const (
	EventFormSubmit = "form_submit"
	EventPageView   = "page_view"
	EventDownload   = "download"
)

const (
	defaultForwardTimeout = 5 * time.Second
	meterName             = "finitefield.org/marketing-web/internal/analytics"
)

// Event is one structured analytics record.
type Event struct {
	ID     string    `json:"id"`
	Event  string    `json:"event"`
	FormID string    `json:"formId,omitempty"`
	Source string    `json:"source,omitempty"`
	Page   string    `json:"page,omitempty"`
	Path   string    `json:"path,omitempty"`
	Lang   string    `json:"lang,omitempty"`
	At     time.Time `json:"timestamp"`
}

// Forwarder ships events to an external system.
type Forwarder interface {
	Forward(ctx context.Context, e Event) error
}

// Queue is an append-only, concurrency-safe event log.
type Queue struct {
	mu        sync.RWMutex
	events    []Event
	forwarder Forwarder
	logger    *zap.Logger
	now       func() time.Time
	inflight  sync.WaitGroup

	counter metric.Int64Counter
}

// Option customises a Queue.
type Option func(*Queue)

// WithForwarder forwards every pushed event asynchronously.
func WithForwarder(f Forwarder) Option {
	return func(q *Queue) { q.forwarder = f }
}

// WithLogger sets the logger used for forwarding failures.
func WithLogger(logger *zap.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// NewQueue builds an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	counter, err := otel.Meter(meterName).Int64Counter("site.analytics.events",
		metric.WithDescription("Analytics events accepted by the site"))
	if err == nil {
		q.counter = counter
	}
	return q
}

// Push appends e, filling ID and timestamp when missing, and returns the stored copy.
func (q *Queue) Push(e Event) Event {
	e.Event = strings.TrimSpace(e.Event)
	if e.At.IsZero() {
		e.At = q.now().UTC()
	}
	if e.ID == "" {
		e.ID = newEventID(e.At)
	}
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()

	if q.counter != nil {
		q.counter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", e.Event)))
	}
	if q.forwarder != nil {
		q.inflight.Add(1)
		go q.forward(e)
	}
	return e
}

func (q *Queue) forward(e Event) {
	defer q.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), defaultForwardTimeout)
	defer cancel()
	if err := q.forwarder.Forward(ctx, e); err != nil {
		q.logger.Warn("analytics forward failed",
			zap.String("event", e.Event),
			zap.String("event_id", e.ID),
			zap.Error(err),
		)
	}
}

// Flush waits for in-flight forwards to finish.
func (q *Queue) Flush() { q.inflight.Wait() }

// Events returns a snapshot of all events in push order.
func (q *Queue) Events() []Event {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Event, len(q.events))
	copy(out, q.events)
	return out
}

// Len returns the number of events pushed so far.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.events)
}

// Count returns how many events carry the given name.
func (q *Queue) Count(name string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	n := 0
	for _, e := range q.events {
		if e.Event == name {
			n++
		}
	}
	return n
}

func newEventID(at time.Time) string {
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return strings.ToLower(id.String())
}
