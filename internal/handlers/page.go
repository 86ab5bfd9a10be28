// Package handlers holds the view models shared by the page templates.
package handlers

import (
	"html/template"
	"net/http"

	"finitefield.org/marketing-web/internal/i18n"
	mw "finitefield.org/marketing-web/internal/middleware"
	"finitefield.org/marketing-web/internal/nav"
	"finitefield.org/marketing-web/internal/routes"
	"finitefield.org/marketing-web/internal/seo"
)

// PageData is the view model of every page using the shared layout.
type PageData struct {
	Title       string
	Lang        routes.Lang
	Page        routes.PageID
	Path        string
	SiteName    string
	SEO         seo.Meta
	JSONLD      []template.JS
	Nav         []nav.RenderedItem
	Footer      []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	Switch      LangSwitch
	CSRFToken   string
	Analytics   Analytics
	FormsScript FormsScript
	Forms       []FormEmbed

	// Per-page payload.
	Content any
}

// LangSwitch points at the current page in the other language.
type LangSwitch struct {
	Lang routes.Lang
	Href string
}

// HasForms reports whether the page embeds provider forms.
func (p PageData) HasForms() bool { return len(p.Forms) > 0 }

// Form returns the embed for containerID, or nil.
func (p PageData) Form(containerID string) *FormEmbed {
	for i := range p.Forms {
		if p.Forms[i].ContainerID == containerID {
			return &p.Forms[i]
		}
	}
	return nil
}

// Layout assembles the parts of PageData every page shares.
type Layout struct {
	Table       *routes.Table
	Bundle      *i18n.Bundle
	BaseURL     string
	SiteName    string
	Analytics   Analytics
	FormsScript FormsScript
}

// Page builds the shared view model for r. titleKey is an i18n key; title
// overrides it for pages named by content.
func (l Layout) Page(r *http.Request, titleKey, title, descriptionKey string) PageData {
	lang := mw.LangFrom(r.Context())
	path := r.URL.Path
	if title == "" {
		title = l.Bundle.T(string(lang), titleKey)
	}
	description := ""
	if descriptionKey != "" {
		description = l.Bundle.T(string(lang), descriptionKey)
	}
	other := lang.Other()
	fullTitle := title
	if l.SiteName != "" && title != l.SiteName {
		fullTitle = title + " | " + l.SiteName
	}
	return PageData{
		Title:       title,
		Lang:        lang,
		Page:        l.Table.LogicalPageOf(path),
		Path:        path,
		SiteName:    l.SiteName,
		SEO:         seo.Build(l.Table, l.BaseURL, path, fullTitle, description),
		JSONLD:      []template.JS{seo.JSON(seo.Organization(l.SiteName, l.BaseURL, l.BaseURL+"/assets/logo.svg"))},
		Nav:         nav.Build(nav.Main, l.Table, path, lang),
		Footer:      nav.Build(nav.Footer, l.Table, path, lang),
		Breadcrumbs: nav.Breadcrumbs(l.Table, path, lang, ""),
		Switch:      LangSwitch{Lang: other, Href: l.Table.Translate(path, other)},
		CSRFToken:   mw.CSRFToken(r),
		Analytics:   l.Analytics,
		FormsScript: l.FormsScript,
	}
}

// WithDetail names the last breadcrumb of a detail page.
func (p PageData) WithDetail(l Layout, label string) PageData {
	p.Breadcrumbs = nav.Breadcrumbs(l.Table, p.Path, p.Lang, label)
	return p
}
