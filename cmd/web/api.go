package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/analytics"
	mw "finitefield.org/marketing-web/internal/middleware"
	"finitefield.org/marketing-web/internal/observability"
	"finitefield.org/marketing-web/internal/requestctx"
	"finitefield.org/marketing-web/internal/routes"
)

const maxEventBody = 16 << 10

// browserEvents lists the events the browser may report.
var browserEvents = map[string]bool{
	analytics.EventFormSubmit: true,
	analytics.EventPageView:   true,
}

type analyticsEventRequest struct {
	Event  string `json:"event"`
	FormID string `json:"formId"`
	Source string `json:"source"`
	Path   string `json:"path"`
}

// analyticsEvents appends an event reported by the browser, e.g. the
// form_submit the embed script sends once per mounted form.
func (a *app) analyticsEvents(w http.ResponseWriter, r *http.Request) {
	var req analyticsEventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			mw.WriteAPIError(w, r, mw.NewAPIError(http.StatusBadRequest, "invalid_request", "request body is empty"))
			return
		}
		mw.WriteAPIError(w, r, mw.NewAPIError(http.StatusBadRequest, "invalid_json", "request body is not valid JSON"))
		return
	}
	name := strings.TrimSpace(req.Event)
	if !browserEvents[name] {
		mw.WriteAPIError(w, r, mw.NewAPIError(http.StatusUnprocessableEntity, "unsupported_event", "event is not accepted").
			WithDetail("event", observability.SanitizeValue(name)))
		return
	}
	path := strings.TrimSpace(req.Path)
	if !strings.HasPrefix(path, "/") {
		path = refererPath(r)
	}
	if path != "" {
		path = observability.SanitizeRoute(path)
	}
	lang := mw.LangFrom(r.Context())
	if routes.IsLocalizedPath(path) {
		lang = routes.LanguageOf(path)
	}

	e := a.events.Push(analytics.Event{
		Event:  name,
		FormID: strings.TrimSpace(req.FormID),
		Source: strings.TrimSpace(req.Source),
		Page:   string(a.table.LogicalPageOf(path)),
		Path:   path,
		Lang:   string(lang),
	})
	requestctx.Logger(r.Context()).Debug("analytics event accepted",
		zap.String("event", e.Event),
		zap.String("event_id", e.ID),
	)
	mw.WriteJSON(w, http.StatusAccepted, map[string]string{"id": e.ID})
}

// switchLanguage sends the visitor to the page they came from in the
// requested language. Unrecognised pages land on the target home page.
func (a *app) switchLanguage(w http.ResponseWriter, r *http.Request) {
	current := mw.LangFrom(r.Context())
	target, ok := routes.ParseLang(r.URL.Query().Get("to"))
	if !ok {
		target = current.Other()
	}
	from := refererPath(r)
	if from == "" {
		from = a.table.ResolvePath(routes.Home, current, nil)
	}
	dest, known := a.table.TryTranslate(from, target)
	if !known {
		requestctx.Logger(r.Context()).Debug("language switch fell back to home",
			zap.String("from", observability.SanitizeRoute(from)),
			zap.String("target", string(target)),
		)
	}
	http.Redirect(w, r, dest, http.StatusFound)
}
