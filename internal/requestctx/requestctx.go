// Package requestctx carries request-scoped values through context.Context:
// the request logger, trace metadata and the localized page being served.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type scopeKey struct{}

// scope is never mutated once stored; setters store a modified copy.
type scope struct {
	logger *zap.Logger
	trace  TraceInfo
	traced bool
	page   Page
	paged  bool
}

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// Page identifies the localized page a request resolved to.
type Page struct {
	ID   string
	Lang string
	Path string
}

func load(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	if s, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return *s
	}
	return scope{}
}

func store(ctx context.Context, s scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, &s)
}

// WithLogger stores the request logger. A nil logger stores the no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = noopLogger
	}
	s := load(ctx)
	s.logger = logger
	return store(ctx, s)
}

// Logger returns the request logger, or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if l := load(ctx).logger; l != nil {
		return l
	}
	return noopLogger
}

// NoopLogger exposes the shared no-op logger.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores trace metadata.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	s := load(ctx)
	s.trace, s.traced = info, true
	return store(ctx, s)
}

// Trace returns the trace metadata when present.
func Trace(ctx context.Context) (TraceInfo, bool) {
	s := load(ctx)
	return s.trace, s.traced
}

// TraceID returns the trace id, or "".
func TraceID(ctx context.Context) string {
	return load(ctx).trace.TraceID
}

// WithPage records the resolved page. The request logger, when set, is
// tagged with the page id and language so later log lines carry them.
func WithPage(ctx context.Context, p Page) context.Context {
	s := load(ctx)
	s.page, s.paged = p, true
	if s.logger != nil {
		s.logger = s.logger.With(zap.String("page", p.ID), zap.String("lang", p.Lang))
	}
	return store(ctx, s)
}

// PageOf returns the page recorded by WithPage.
func PageOf(ctx context.Context) (Page, bool) {
	s := load(ctx)
	return s.page, s.paged
}
