package main

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/analytics"
	"finitefield.org/marketing-web/internal/config"
	"finitefield.org/marketing-web/internal/content"
	"finitefield.org/marketing-web/internal/downloads"
	"finitefield.org/marketing-web/internal/handlers"
	"finitefield.org/marketing-web/internal/i18n"
	mw "finitefield.org/marketing-web/internal/middleware"
	"finitefield.org/marketing-web/internal/observability"
	"finitefield.org/marketing-web/internal/routes"
	"finitefield.org/marketing-web/internal/status"
)

// app holds the dependencies shared by the site's handlers.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	table     *routes.Table
	bundle    *i18n.Bundle
	content   *content.Client
	events    *analytics.Queue
	downloads downloads.URLResolver
	status    *status.Client
	templates *templateSet
	// devMode reparses templates on every render.
	devMode bool
	now     func() time.Time
}

func (a *app) layout() handlers.Layout {
	return handlers.Layout{
		Table:    a.table,
		Bundle:   a.bundle,
		BaseURL:  a.cfg.Site.BaseURL,
		SiteName: a.cfg.Site.Name,
		Analytics: handlers.Analytics{
			GTMContainerID: a.cfg.Analytics.GTMContainerID,
			EventsEndpoint: "/api/analytics/events",
		},
		FormsScript: handlers.FormsScript{
			Src:    a.cfg.Forms.ScriptSrc,
			Global: a.cfg.Forms.ScriptGlobal,
		},
	}
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; the site runs behind the load balancer only.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware(a.cfg.Analytics.ProjectID))
	r.Use(observability.InjectLogger(a.logger))
	r.Use(observability.RequestLogger())
	r.Use(observability.Recovery(a.logger, a.renderPanic))
	r.Use(chimw.Compress(5))
	r.Use(mw.JSONErrors)
	r.Use(mw.Session(mw.SessionConfig{
		CookieName: a.cfg.Session.CookieName,
		SigningKey: []byte(a.cfg.Session.SigningKey),
		Secure:     a.cfg.Session.Secure,
		Logger:     a.logger.Named("session"),
	}))
	r.Use(mw.CSRF(a.cfg.Session.Secure))
	r.Use(mw.Locale(a.bundle))
	r.Use(mw.Maintenance(a.status))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle("/assets/*", mw.AssetsWithCache(os.DirFS(a.cfg.Site.AssetsDir), "/assets"))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, a.table.ResolvePath(routes.Home, routes.DefaultLang, nil), http.StatusFound)
	})
	r.Get(routes.MaintenancePath, a.maintenancePage)
	r.Post("/api/analytics/events", a.analyticsEvents)

	r.Get("/{lang:de|en}/language", a.switchLanguage)
	r.Post("/{lang:de|en}/downloads/{id}", a.requestDownload)
	r.Post("/{lang:de|en}/forms/{source}", a.submitForm)
	r.Get("/{lang:de|en}", a.page)
	r.Get("/{lang:de|en}/*", a.page)

	r.NotFound(a.notFound)
	return r
}
