package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/analytics"
	"finitefield.org/marketing-web/internal/dom"
	"finitefield.org/marketing-web/internal/formembed"
	"finitefield.org/marketing-web/internal/handlers"
	mw "finitefield.org/marketing-web/internal/middleware"
	"finitefield.org/marketing-web/internal/requestctx"
	"finitefield.org/marketing-web/internal/routes"
)

// Form sources accepted by the fallback form endpoint.
const (
	sourceContact  = "contact"
	sourceEvent    = "event"
	sourceDownload = "download"
)

var formContainers = map[string]string{
	sourceContact:  "contact-form",
	sourceEvent:    "event-form",
	sourceDownload: "download-form",
}

func (a *app) formID(source string) (string, bool) {
	switch source {
	case sourceContact:
		return a.cfg.Forms.ContactFormID, true
	case sourceEvent:
		return a.cfg.Forms.EventFormID, true
	case sourceDownload:
		return a.cfg.Forms.DownloadFormID, true
	}
	return "", false
}

// formEmbed describes the provider form for source on a page in lang.
func (a *app) formEmbed(lang routes.Lang, source string) handlers.FormEmbed {
	formID, _ := a.formID(source)
	return handlers.FormEmbed{
		ContainerID: formContainers[source],
		Source:      source,
		Provider: formembed.ProviderConfig{
			Region:    a.cfg.Forms.Region,
			AccountID: a.cfg.Forms.PortalID,
			FormID:    formID,
		},
		Action: "/" + string(lang) + "/forms/" + source,
	}
}

func (a *app) formLabels(lang routes.Lang, source string) formembed.FormLabels {
	l := string(lang)
	labels := formembed.FormLabels{
		Name:   a.bundle.T(l, "form.name"),
		Email:  a.bundle.T(l, "form.email"),
		Submit: a.bundle.T(l, "form.submit."+source),
	}
	switch source {
	case sourceContact:
		labels.Company = a.bundle.T(l, "form.company")
		labels.Message = a.bundle.T(l, "form.message")
	case sourceDownload:
		labels.Company = a.bundle.T(l, "form.company")
	}
	return labels
}

// embedForms mounts the page's forms into the rendered document. The server
// installs the plain HTML provider under the provider global, so the shared
// script settles at once and every form is ready before the page is sent.
// The hosted provider replaces these forms in the browser when it loads.
func (a *app) embedForms(r *http.Request, page []byte, data handlers.PageData) ([]byte, error) {
	logger := requestctx.Logger(r.Context()).Named("formembed")
	doc, err := dom.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	win := dom.NewWindow(doc)
	hidden := map[string]string{mw.CSRFFormField: data.CSRFToken}
	win.SetGlobal(a.cfg.Forms.ScriptGlobal, formembed.ProviderFunc(func(opts formembed.CreateOptions) error {
		f := data.Form(strings.TrimPrefix(opts.Target, "#"))
		if f == nil {
			return fmt.Errorf("no form configured for %s", opts.Target)
		}
		return formembed.StaticProvider{
			Doc:    doc,
			Action: f.Action,
			Labels: a.formLabels(data.Lang, f.Source),
			Hidden: hidden,
		}.Create(opts)
	}))

	loader := formembed.NewSharedScript(win, a.cfg.Forms.ScriptSrc, a.cfg.Forms.ScriptGlobal,
		formembed.WithScriptLogger(logger))
	ctrl := formembed.NewController(win, loader,
		formembed.WithSink(a.events),
		formembed.WithLogger(logger),
	)
	for _, f := range data.Forms {
		ctrl.Mount(formembed.MountRequest{
			ContainerID: f.ContainerID,
			Provider:    f.Provider,
			Enabled:     true,
			Source:      f.Source,
		})
	}
	var failed []string
	for _, f := range data.Forms {
		if ctrl.State(f.ContainerID) != formembed.StatusReady {
			failed = append(failed, f.ContainerID)
		}
	}
	ctrl.Close()
	if len(failed) > 0 {
		return nil, fmt.Errorf("forms not ready: %s", strings.Join(failed, ", "))
	}
	out, err := doc.HTML()
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// submitForm accepts the fallback forms and records the submission the way
// the hosted provider would report it in the browser.
func (a *app) submitForm(w http.ResponseWriter, r *http.Request) {
	lang := mw.LangFrom(r.Context())
	source := chi.URLParam(r, "source")
	formID, ok := a.formID(source)
	if !ok {
		a.notFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, "error.bad_request")
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.PostForm.Get("email"))); err != nil {
		a.renderError(w, r, http.StatusBadRequest, "error.invalid_email")
		return
	}

	from := refererPath(r)
	e := a.events.Push(analytics.Event{
		Event:  analytics.EventFormSubmit,
		FormID: formID,
		Source: source,
		Page:   string(a.table.LogicalPageOf(from)),
		Path:   from,
		Lang:   string(lang),
	})
	requestctx.Logger(r.Context()).Info("form submitted",
		zap.String("source", source),
		zap.String("form_id", formID),
		zap.String("event_id", e.ID),
	)

	target := a.table.ResolvePath(routes.ThankYou, lang, nil) + "?source=" + url.QueryEscape(source)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// refererPath returns the path of the Referer header, or "" when missing.
// Only the path is kept so it can never point off-site.
func refererPath(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || !strings.HasPrefix(u.Path, "/") {
		return ""
	}
	return u.Path
}
