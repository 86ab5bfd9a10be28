package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientWithoutURLIsOperational(t *testing.T) {
	c := NewClient("")
	if c.Maintenance(context.Background()) {
		t.Fatal("expected operational")
	}
	if !NewClient("", WithForcedMaintenance(true)).Maintenance(context.Background()) {
		t.Fatal("expected forced maintenance")
	}
}

func TestClientCachesAndKeepsLastKnownState(t *testing.T) {
	var hits atomic.Int32
	var state atomic.Value
	state.Store(`{"state":"maintenance","message":"Wartung","updated_at":"2025-03-01T10:00:00Z"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body := state.Load().(string)
		if body == "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewClient(srv.URL, WithTTL(time.Minute), WithNow(func() time.Time { return now }))
	ctx := context.Background()

	s := c.Summary(ctx)
	if !s.Maintenance() || s.Message != "Wartung" || s.UpdatedAt.IsZero() {
		t.Fatalf("unexpected summary %+v", s)
	}
	c.Summary(ctx)
	if hits.Load() != 1 {
		t.Fatalf("expected cached result, got %d hits", hits.Load())
	}

	state.Store("")
	now = now.Add(2 * time.Minute)
	if !c.Maintenance(ctx) {
		t.Fatal("expected last known state after failed refresh")
	}
	if hits.Load() != 2 {
		t.Fatalf("expected refresh attempt, got %d hits", hits.Load())
	}

	state.Store(`{"state":"operational"}`)
	now = now.Add(2 * time.Minute)
	if c.Maintenance(ctx) {
		t.Fatal("expected operational after recovery")
	}
}

func TestClientRejectsUnknownState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"on-fire"}`))
	}))
	defer srv.Close()
	if got := NewClient(srv.URL).Summary(context.Background()).State; got != StateOperational {
		t.Fatalf("expected previous state operational, got %q", got)
	}
}
