package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/format"
	"finitefield.org/marketing-web/internal/handlers"
	"finitefield.org/marketing-web/internal/i18n"
	mw "finitefield.org/marketing-web/internal/middleware"
	"finitefield.org/marketing-web/internal/requestctx"
	"finitefield.org/marketing-web/internal/routes"
)

// templateSet holds one template tree per page. Layouts and partials are
// shared; every file under pages/ defines "content" for its own tree.
type templateSet struct {
	dir    string
	bundle *i18n.Bundle
	table  *routes.Table
	pages  map[string]*template.Template
}

func parseTemplates(dir string, bundle *i18n.Bundle, table *routes.Table) (*templateSet, error) {
	// Recursively discover all .tmpl files. ParseGlob doesn't support **.
	var shared, pages []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pages = append(pages, path)
		} else {
			shared = append(shared, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(shared) == 0 || len(pages) == 0 {
		return nil, fmt.Errorf("no templates found under %s", dir)
	}
	base, err := template.New("_root").Funcs(templateFuncs(bundle, table)).ParseFiles(shared...)
	if err != nil {
		return nil, err
	}
	set := &templateSet{dir: dir, bundle: bundle, table: table, pages: map[string]*template.Template{}}
	for _, p := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFiles(p); err != nil {
			return nil, err
		}
		set.pages[strings.TrimSuffix(filepath.Base(p), ".tmpl")] = t
	}
	return set, nil
}

func templateFuncs(bundle *i18n.Bundle, table *routes.Table) template.FuncMap {
	return template.FuncMap{
		"t": func(lang routes.Lang, key string) string { return bundle.T(string(lang), key) },
		"tf": func(lang routes.Lang, key string, args ...any) string {
			return bundle.Tf(string(lang), key, args...)
		},
		"euro":      func(cents int64, lang routes.Lang) string { return format.Euro(cents, string(lang)) },
		"date":      func(t time.Time, lang routes.Lang) string { return format.Date(t, string(lang)) },
		"dateRange": func(start, end time.Time, lang routes.Lang) string { return format.DateRange(start, end, string(lang)) },
		"iso":       func(t time.Time) string { return t.Format("2006-01-02") },
		// path resolves a page for lang; kv are placeholder name/value pairs.
		"path": func(page string, lang routes.Lang, kv ...string) string {
			var params map[string]string
			if len(kv) > 1 {
				params = make(map[string]string, len(kv)/2)
				for i := 0; i+1 < len(kv); i += 2 {
					params[kv[i]] = kv[i+1]
				}
			}
			return table.ResolvePath(routes.PageID(page), lang, params)
		},
		"year": func() int { return time.Now().Year() },
	}
}

// render executes the base layout for page and mounts the page's forms into
// the result. In dev mode, templates are reparsed on each request.
func (a *app) render(w http.ResponseWriter, r *http.Request, page string, status int, data handlers.PageData) {
	logger := requestctx.Logger(r.Context())
	set := a.templates
	if a.devMode {
		fresh, err := parseTemplates(set.dir, set.bundle, set.table)
		if err != nil {
			logger.Error("template parse error", zap.Error(err))
			http.Error(w, "template parse error", http.StatusInternalServerError)
			return
		}
		set = fresh
	}
	t, ok := set.pages[page]
	if !ok {
		logger.Error("template not found", zap.String("template", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		logger.Error("template exec error", zap.String("template", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	out := buf.Bytes()
	if data.HasForms() {
		embedded, err := a.embedForms(r, out, data)
		if err != nil {
			logger.Warn("form embedding failed", zap.String("template", page), zap.Error(err))
		} else {
			out = embedded
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

// renderError renders the error page with the message stored under msgKey.
func (a *app) renderError(w http.ResponseWriter, r *http.Request, status int, msgKey string) {
	data := a.layout().Page(r, "error.title", "", "")
	data.SEO.NoIndex = true
	data.Content = errorContent{Status: status, MessageKey: msgKey}
	a.render(w, r, "error", status, data)
}

// renderPanic runs outside the locale middleware, so the language comes
// from the path alone.
func (a *app) renderPanic(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(mw.WithLang(r.Context(), routes.LanguageOf(r.URL.Path)))
	a.renderError(w, r, http.StatusInternalServerError, "error.internal")
}

type errorContent struct {
	Status     int
	MessageKey string
}
