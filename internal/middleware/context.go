// Package middleware holds the HTTP middleware of the site: signed session
// cookie, CSRF protection, page language, maintenance redirect and static
// asset caching.
package middleware

import (
	"context"

	"finitefield.org/marketing-web/internal/routes"
)

type ctxKey string

const (
	ctxKeySession  ctxKey = "session"
	ctxKeyLang     ctxKey = "lang"
	ctxKeyWantJSON ctxKey = "want_json"
)

// WithLang stores the page language in ctx.
func WithLang(ctx context.Context, lang routes.Lang) context.Context {
	return context.WithValue(ctx, ctxKeyLang, lang)
}

// LangFrom returns the page language, routes.DefaultLang when unset.
func LangFrom(ctx context.Context) routes.Lang {
	if v, ok := ctx.Value(ctxKeyLang).(routes.Lang); ok && v != "" {
		return v
	}
	return routes.DefaultLang
}

// WithWantsJSON marks the request as expecting JSON errors.
func WithWantsJSON(ctx context.Context, is bool) context.Context {
	return context.WithValue(ctx, ctxKeyWantJSON, is)
}

// WantsJSON reports whether errors should be rendered as JSON.
func WantsJSON(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyWantJSON).(bool)
	return v
}
