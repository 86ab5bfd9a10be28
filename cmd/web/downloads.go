package main

import (
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/analytics"
	"finitefield.org/marketing-web/internal/downloads"
	mw "finitefield.org/marketing-web/internal/middleware"
	"finitefield.org/marketing-web/internal/requestctx"
	"finitefield.org/marketing-web/internal/routes"
)

// requestDownload stores the chosen file as the session's pending download
// and sends the visitor to the thank-you page, which hands out the link.
func (a *app) requestDownload(w http.ResponseWriter, r *http.Request) {
	lang := mw.LangFrom(r.Context())
	d, err := a.content.Download(r.Context(), string(lang), chi.URLParam(r, "id"))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	if d.Gated {
		if _, err := mail.ParseAddress(strings.TrimSpace(r.PostForm.Get("email"))); err != nil {
			a.renderError(w, r, http.StatusBadRequest, "error.invalid_email")
			return
		}
	}

	mw.GetSession(r).SetPendingDownload(downloads.NewPending(d.FileURL, d.Title, d.ID, a.now()))
	e := analytics.Event{
		Event:  analytics.EventDownload,
		Source: "download:" + d.ID,
		Page:   string(routes.Downloads),
		Path:   refererPath(r),
		Lang:   string(lang),
	}
	if d.Gated {
		e.FormID = a.cfg.Forms.DownloadFormID
	}
	a.events.Push(e)
	requestctx.Logger(r.Context()).Info("download requested", zap.String("download_id", d.ID), zap.Bool("gated", d.Gated))

	target := a.table.ResolvePath(routes.ThankYou, lang, nil) + "?source=" + url.QueryEscape(sourceDownload)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type thankYouContent struct {
	Source   string
	Download *downloadLink
}

type downloadLink struct {
	Title string
	URL   string
}

// thankYouPage consumes the pending download. A descriptor older than the
// configured max age is dropped without a link.
func (a *app) thankYouPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	logger := requestctx.Logger(r.Context())
	data := a.layout().Page(r, "page.thankYou.title", "", "")
	data.SEO.NoIndex = true
	tc := thankYouContent{Source: r.URL.Query().Get("source")}

	if p, ok := mw.GetSession(r).TakePendingDownload(); ok {
		maxAge := a.cfg.Downloads.PendingMaxAge
		if maxAge <= 0 {
			maxAge = downloads.DefaultMaxAge
		}
		switch err := p.Check(a.now(), maxAge); {
		case errors.Is(err, downloads.ErrExpired):
			logger.Debug("pending download expired", zap.String("download_id", p.ID), zap.Time("created_at", p.CreatedAt()))
		case err != nil:
			logger.Warn("invalid pending download", zap.Error(err))
		default:
			link, err := a.downloads.ResolveURL(r.Context(), p.FileURL)
			if err != nil {
				logger.Error("download link unavailable", zap.String("download_id", p.ID), zap.Error(err))
				break
			}
			tc.Download = &downloadLink{Title: p.Title, URL: link}
		}
	}

	data.Content = tc
	w.Header().Set("Cache-Control", "no-store")
	a.render(w, r, "thank-you", http.StatusOK, data)
}
