// Package seo builds page metadata: title, canonical and hreflang links,
// Open Graph tags and schema.org JSON-LD.
package seo

import (
	"strings"

	"finitefield.org/marketing-web/internal/routes"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	Locale      string
}

// Alternate is one hreflang link.
type Alternate struct {
	HrefLang string
	Href     string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	Alternates  []Alternate
	OG          OpenGraph
	NoIndex     bool
}

var ogLocales = map[routes.Lang]string{
	routes.German:  "de_DE",
	routes.English: "en_US",
}

// Build returns Meta for path on baseURL. Alternates cover every language
// plus x-default (German) when path is a known page.
func Build(table *routes.Table, baseURL, path, title, description string) Meta {
	baseURL = strings.TrimRight(baseURL, "/")
	lang := routes.LanguageOf(path)
	m := Meta{
		Title:       title,
		Description: description,
		Canonical:   baseURL + path,
		OG: OpenGraph{
			Title:       title,
			Description: description,
			Type:        "website",
			Locale:      ogLocales[lang],
		},
	}
	alts := table.Alternates(path)
	if alts == nil {
		return m
	}
	m.Canonical = baseURL + alts[lang]
	for _, l := range routes.Langs() {
		m.Alternates = append(m.Alternates, Alternate{HrefLang: string(l), Href: baseURL + alts[l]})
	}
	m.Alternates = append(m.Alternates, Alternate{HrefLang: "x-default", Href: baseURL + alts[routes.DefaultLang]})
	return m
}
