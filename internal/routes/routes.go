// Package routes maps logical pages to localized URL paths and back. All
// functions are pure and safe for concurrent use.
package routes

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// PageID names a logical page independent of language.
type PageID string

// Lang is a supported site language.
type Lang string

const (
	German  Lang = "de"
	English Lang = "en"

	DefaultLang = German
)

// Langs lists the supported languages, default first.
func Langs() []Lang { return []Lang{German, English} }

// ParseLang returns the supported language for s, or false.
func ParseLang(s string) (Lang, bool) {
	switch Lang(strings.ToLower(strings.TrimSpace(s))) {
	case German:
		return German, true
	case English:
		return English, true
	}
	return DefaultLang, false
}

// Other returns the language a switcher offers from l.
func (l Lang) Other() Lang {
	if l == English {
		return German
	}
	return English
}

// Templates holds one path template per language.
type Templates struct {
	DE string
	EN string
}

// For returns the template for lang.
func (t Templates) For(lang Lang) string {
	if lang == English {
		return t.EN
	}
	return t.DE
}

// Route binds a page to its templates.
type Route struct {
	Page      PageID
	Templates Templates
}

// ResolvedRoute is the outcome of matching a concrete path.
type ResolvedRoute struct {
	Page   PageID
	Lang   Lang
	Params map[string]string
}

// Table is an immutable route table.
type Table struct {
	routes  []Route
	byPage  map[PageID]Templates
	details []PageID
	reverse map[string]PageID
}

// NewTable validates routes and builds a Table.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{
		routes:  append([]Route(nil), routes...),
		byPage:  make(map[PageID]Templates, len(routes)),
		reverse: map[string]PageID{},
	}
	for _, r := range routes {
		if r.Page == "" {
			return nil, fmt.Errorf("routes: empty page id")
		}
		if _, dup := t.byPage[r.Page]; dup {
			return nil, fmt.Errorf("routes: duplicate page %q", r.Page)
		}
		for _, lang := range Langs() {
			tmpl := r.Templates.For(lang)
			if tmpl != string("/"+lang) && !strings.HasPrefix(tmpl, "/"+string(lang)+"/") {
				return nil, fmt.Errorf("routes: %s/%s template %q lacks language prefix", r.Page, lang, tmpl)
			}
		}
		de, en := placeholders(r.Templates.DE), placeholders(r.Templates.EN)
		if strings.Join(de, ",") != strings.Join(en, ",") {
			return nil, fmt.Errorf("routes: %s placeholders differ: de=%v en=%v", r.Page, de, en)
		}
		t.byPage[r.Page] = r.Templates
		if len(de) > 0 {
			t.details = append(t.details, r.Page)
			continue
		}
		for _, lang := range Langs() {
			path := r.Templates.For(lang)
			if prev, dup := t.reverse[path]; dup {
				return nil, fmt.Errorf("routes: path %q used by %s and %s", path, prev, r.Page)
			}
			t.reverse[path] = r.Page
		}
	}
	if _, ok := t.byPage[Home]; !ok {
		return nil, fmt.Errorf("routes: table has no %q page", Home)
	}
	return t, nil
}

func mustTable(routes []Route) *Table {
	t, err := NewTable(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the site's route table.
func Default() *Table { return defaultTable }

// Routes returns the table entries in declaration order.
func (t *Table) Routes() []Route { return append([]Route(nil), t.routes...) }

// Template returns the raw template of page in lang.
func (t *Table) Template(page PageID, lang Lang) (string, bool) {
	tmpl, ok := t.byPage[page]
	if !ok {
		return "", false
	}
	return tmpl.For(lang), true
}

// ResolvePath substitutes params into the template of page in lang. Each
// ":name" segment is replaced whole by the path-escaped value; placeholders
// with a missing or empty value stay as they are. Unknown pages resolve to "".
func (t *Table) ResolvePath(page PageID, lang Lang, params map[string]string) string {
	tmpl, ok := t.Template(page, lang)
	if !ok {
		return ""
	}
	if len(params) == 0 {
		return tmpl
	}
	segs := strings.Split(tmpl, "/")
	for i, seg := range segs {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		if v := params[seg[1:]]; v != "" {
			segs[i] = url.PathEscape(v)
		}
	}
	return strings.Join(segs, "/")
}

// Translate maps path to the equivalent page in target. Paths that match no
// page fall back to the target home page.
func (t *Table) Translate(path string, target Lang) string {
	out, _ := t.TryTranslate(path, target)
	return out
}

// TryTranslate is Translate that also reports whether the page was
// recognised. On false the returned path is the target home page.
func (t *Table) TryTranslate(path string, target Lang) (string, bool) {
	path = normalize(path)
	home := t.ResolvePath(Home, target, nil)

	if path == "/" || path == "/de" || path == "/en" {
		return home, true
	}
	if languageAgnostic[path] {
		return path, true
	}
	if hasLangPrefix(path, target) {
		return path, true
	}
	if r, ok := t.match(path); ok {
		return t.ResolvePath(r.Page, target, r.Params), true
	}
	return home, false
}

// LogicalPageOf returns the page a localized path belongs to, or "".
func (t *Table) LogicalPageOf(path string) PageID {
	if r, ok := t.match(normalize(path)); ok {
		return r.Page
	}
	return ""
}

// Match resolves a concrete path to its page, language and parameters.
func (t *Table) Match(path string) (ResolvedRoute, bool) {
	return t.match(normalize(path))
}

// Alternates returns the path of the same page in every language, or nil
// when path is not a known page.
func (t *Table) Alternates(path string) map[Lang]string {
	r, ok := t.Match(path)
	if !ok {
		return nil
	}
	out := make(map[Lang]string, 2)
	for _, lang := range Langs() {
		out[lang] = t.ResolvePath(r.Page, lang, r.Params)
	}
	return out
}

// match tries detail routes first, then the static reverse table.
func (t *Table) match(path string) (ResolvedRoute, bool) {
	for _, page := range t.details {
		tmpls := t.byPage[page]
		for _, lang := range Langs() {
			if params, ok := matchTemplate(tmpls.For(lang), path); ok {
				return ResolvedRoute{Page: page, Lang: lang, Params: params}, true
			}
		}
	}
	if page, ok := t.reverse[path]; ok {
		return ResolvedRoute{Page: page, Lang: LanguageOf(path)}, true
	}
	return ResolvedRoute{}, false
}

func matchTemplate(tmpl, path string) (map[string]string, bool) {
	want := strings.Split(tmpl, "/")
	got := strings.Split(path, "/")
	if len(want) != len(got) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return nil, false
			}
			if params == nil {
				params = map[string]string{}
			}
			params[seg[1:]] = unescapeSegment(got[i])
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

// unescapeSegment decodes an escaped segment. Already decoded request paths
// may hold a literal '%'; those are kept as they are.
func unescapeSegment(seg string) string {
	if v, err := url.PathUnescape(seg); err == nil {
		return v
	}
	return seg
}

func placeholders(tmpl string) []string {
	var names []string
	for _, seg := range strings.Split(tmpl, "/") {
		if strings.HasPrefix(seg, ":") {
			names = append(names, seg[1:])
		}
	}
	sort.Strings(names)
	return names
}

// normalize drops query, fragment and a trailing slash.
func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

func hasLangPrefix(path string, lang Lang) bool {
	prefix := "/" + string(lang)
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// LanguageOf returns the language a path is written in: en for paths
// starting with /en, de otherwise.
func LanguageOf(path string) Lang {
	if strings.HasPrefix(path, "/en") {
		return English
	}
	return German
}

// IsLocalizedPath reports whether path starts with a language segment.
func IsLocalizedPath(path string) bool {
	return hasLangPrefix(path, German) || hasLangPrefix(path, English)
}

// Package-level helpers on the default table.

// ResolvePath resolves page in lang against the default table.
func ResolvePath(page PageID, lang Lang, params map[string]string) string {
	return defaultTable.ResolvePath(page, lang, params)
}

// Translate translates path against the default table.
func Translate(path string, target Lang) string { return defaultTable.Translate(path, target) }

// TryTranslate translates path against the default table.
func TryTranslate(path string, target Lang) (string, bool) {
	return defaultTable.TryTranslate(path, target)
}

// LogicalPageOf matches path against the default table.
func LogicalPageOf(path string) PageID { return defaultTable.LogicalPageOf(path) }
