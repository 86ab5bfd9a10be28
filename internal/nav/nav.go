// Package nav builds the header, footer and breadcrumb view models from the
// route table.
package nav

import "finitefield.org/marketing-web/internal/routes"

// Item is a navigation entry pointing at a logical page.
type Item struct {
	Page     routes.PageID
	LabelKey string
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Crumb is a breadcrumb entry. Label wins over LabelKey when set.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the header navigation.
var Main = []Item{
	{Page: routes.SuccessStories, LabelKey: "nav.successStories"},
	{Page: routes.UseCases, LabelKey: "nav.useCases"},
	{Page: routes.Pricing, LabelKey: "nav.pricing"},
	{Page: routes.Partners, LabelKey: "nav.partners"},
	{Page: routes.Events, LabelKey: "nav.events"},
	{Page: routes.Blog, LabelKey: "nav.blog"},
	{Page: routes.Contact, LabelKey: "nav.contact"},
}

// Footer is the footer navigation.
var Footer = []Item{
	{Page: routes.Team, LabelKey: "nav.team"},
	{Page: routes.Downloads, LabelKey: "nav.downloads"},
	{Page: routes.Imprint, LabelKey: "nav.imprint"},
	{Page: routes.Privacy, LabelKey: "nav.privacy"},
}

// sections maps detail pages to the list page they belong to.
var sections = map[routes.PageID]routes.PageID{
	routes.SuccessStoryDetail: routes.SuccessStories,
	routes.UseCaseDetail:      routes.UseCases,
	routes.BlogPost:           routes.Blog,
	routes.ThankYou:           routes.Downloads,
}

// Section returns the list page a page belongs to, or the page itself.
func Section(page routes.PageID) routes.PageID {
	if s, ok := sections[page]; ok {
		return s
	}
	return page
}

// Build renders items for lang with the entry of the current path active.
func Build(items []Item, table *routes.Table, currentPath string, lang routes.Lang) []RenderedItem {
	current := Section(table.LogicalPageOf(currentPath))
	out := make([]RenderedItem, 0, len(items))
	for _, it := range items {
		out = append(out, RenderedItem{
			Href:     table.ResolvePath(it.Page, lang, nil),
			LabelKey: it.LabelKey,
			Active:   current != "" && it.Page == current,
		})
	}
	return out
}

// Breadcrumbs returns Home, the section, and the detail page when the
// current path is one. detailLabel names the last crumb of a detail page.
func Breadcrumbs(table *routes.Table, currentPath string, lang routes.Lang, detailLabel string) []Crumb {
	home := Crumb{Href: table.ResolvePath(routes.Home, lang, nil), LabelKey: "nav.home"}
	match, ok := table.Match(currentPath)
	if !ok || match.Page == routes.Home {
		home.Active = true
		return []Crumb{home}
	}
	crumbs := []Crumb{home}
	section := Section(match.Page)
	if section != match.Page {
		crumbs = append(crumbs, Crumb{
			Href:     table.ResolvePath(section, lang, nil),
			LabelKey: labelKey(section),
		})
	}
	last := Crumb{
		Href:     table.ResolvePath(match.Page, lang, match.Params),
		LabelKey: labelKey(match.Page),
		Label:    detailLabel,
		Active:   true,
	}
	return append(crumbs, last)
}

func labelKey(page routes.PageID) string {
	return "nav." + string(page)
}
