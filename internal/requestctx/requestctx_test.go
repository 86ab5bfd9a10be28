package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerDefaultsToNoop(t *testing.T) {
	if Logger(context.Background()) != NoopLogger() {
		t.Fatal("expected noop logger for empty context")
	}
	//nolint:staticcheck // nil context is handled explicitly
	if Logger(nil) != NoopLogger() {
		t.Fatal("expected noop logger for nil context")
	}
}

func TestLoggerRoundTrip(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if Logger(ctx) != logger {
		t.Fatal("expected stored logger")
	}
}

func TestTraceRoundTrip(t *testing.T) {
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", SpanID: "def", Sampled: true})
	if got := TraceID(ctx); got != "abc" {
		t.Fatalf("expected trace id abc, got %q", got)
	}
	if _, ok := Trace(context.Background()); ok {
		t.Fatal("expected no trace on empty context")
	}
	if TraceID(context.Background()) != "" {
		t.Fatal("expected empty trace id")
	}
}

func TestWithPageTagsLoggerAndKeepsTrace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = WithTrace(ctx, TraceInfo{TraceID: "trace-1"})
	ctx = WithPage(ctx, Page{ID: "pricing", Lang: "en", Path: "/en/pricing"})

	p, ok := PageOf(ctx)
	if !ok || p.ID != "pricing" || p.Path != "/en/pricing" {
		t.Fatalf("unexpected page %+v (ok=%v)", p, ok)
	}
	if TraceID(ctx) != "trace-1" {
		t.Fatal("expected trace to survive WithPage")
	}

	Logger(ctx).Info("rendered")
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["page"] != "pricing" || fields["lang"] != "en" {
		t.Fatalf("expected page fields, got %v", fields)
	}
}

func TestWithPageDoesNotLeakIntoParent(t *testing.T) {
	parent := WithLogger(context.Background(), zap.NewNop())
	_ = WithPage(parent, Page{ID: "home", Lang: "de", Path: "/de"})
	if _, ok := PageOf(parent); ok {
		t.Fatal("parent context must not see the page")
	}
}
