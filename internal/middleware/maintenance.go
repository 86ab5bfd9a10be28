package middleware

import (
	"context"
	"net/http"

	"finitefield.org/marketing-web/internal/requestctx"
	"finitefield.org/marketing-web/internal/routes"
)

// MaintenanceSource reports whether the site is in maintenance mode.
type MaintenanceSource interface {
	Maintenance(ctx context.Context) bool
}

// Maintenance redirects localized pages to the maintenance page while the
// source reports maintenance. Other paths (assets, api, health) pass through.
func Maintenance(src MaintenanceSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if src == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (r.URL.Path == "/" || routes.IsLocalizedPath(r.URL.Path)) && src.Maintenance(r.Context()) {
				requestctx.Logger(r.Context()).Debug("maintenance redirect")
				w.Header().Set("Cache-Control", "no-store")
				http.Redirect(w, r, routes.MaintenancePath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
