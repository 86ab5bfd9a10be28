package main

import (
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/content"
	"finitefield.org/marketing-web/internal/handlers"
	mw "finitefield.org/marketing-web/internal/middleware"
	"finitefield.org/marketing-web/internal/requestctx"
	"finitefield.org/marketing-web/internal/routes"
	"finitefield.org/marketing-web/internal/seo"
)

type pageHandler func(w http.ResponseWriter, r *http.Request, match routes.ResolvedRoute)

// page dispatches localized paths through the route table.
func (a *app) page(w http.ResponseWriter, r *http.Request) {
	match, ok := a.table.Match(r.URL.Path)
	if !ok {
		a.notFound(w, r)
		return
	}
	r = r.WithContext(requestctx.WithPage(r.Context(), requestctx.Page{
		ID:   string(match.Page),
		Lang: string(match.Lang),
		Path: r.URL.Path,
	}))
	var h pageHandler
	switch match.Page {
	case routes.Home:
		h = a.homePage
	case routes.Pricing:
		h = a.pricingPage
	case routes.SuccessStories:
		h = a.successStoriesPage
	case routes.SuccessStoryDetail:
		h = a.successStoryPage
	case routes.UseCases:
		h = a.useCasesPage
	case routes.UseCaseDetail:
		h = a.useCasePage
	case routes.Partners:
		h = a.partnersPage
	case routes.Team:
		h = a.teamPage
	case routes.Events:
		h = a.eventsPage
	case routes.Downloads:
		h = a.downloadsPage
	case routes.ThankYou:
		h = a.thankYouPage
	case routes.Blog:
		h = a.blogPage
	case routes.BlogPost:
		h = a.blogPostPage
	case routes.Contact:
		h = a.contactPage
	case routes.Imprint, routes.Privacy:
		h = a.legalPage
	default:
		a.notFound(w, r)
		return
	}
	h(w, r, match)
}

// contentError renders 404 for missing content and 500 otherwise.
func (a *app) contentError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, content.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	requestctx.Logger(r.Context()).Error("content load failed", zap.Error(err))
	a.renderError(w, r, http.StatusInternalServerError, "error.internal")
}

func reqLang(r *http.Request) string { return string(mw.LangFrom(r.Context())) }

type homeContent struct {
	Stories  []content.SuccessStory
	UseCases []content.UseCase
	Events   []content.Event
	Posts    []content.BlogPost
}

func (a *app) homePage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	ctx, l := r.Context(), reqLang(r)
	stories, err := listOrEmpty(a.content.SuccessStories(ctx, l))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	useCases, err := listOrEmpty(a.content.UseCases(ctx, l))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	events, err := listOrEmpty(a.content.Events(ctx, l, true))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	posts, err := listOrEmpty(a.content.BlogPosts(ctx, l))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.home.title", "", "page.home.description")
	data.Content = homeContent{
		Stories:  firstN(stories, 3),
		UseCases: firstN(useCases, 3),
		Events:   firstN(events, 2),
		Posts:    firstN(posts, 3),
	}
	a.render(w, r, "home", http.StatusOK, data)
}

type pricingContent struct {
	Plans  []content.PricingPlan
	Yearly bool
}

func (a *app) pricingPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	plans, err := listOrEmpty(a.content.Pricing(r.Context(), reqLang(r)))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.pricing.title", "", "page.pricing.description")
	data.Content = pricingContent{Plans: plans, Yearly: r.URL.Query().Get("billing") == "yearly"}
	a.render(w, r, "pricing", http.StatusOK, data)
}

func (a *app) successStoriesPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	stories, err := listOrEmpty(a.content.SuccessStories(r.Context(), reqLang(r)))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.successStories.title", "", "page.successStories.description")
	data.Content = stories
	a.render(w, r, "success-stories", http.StatusOK, data)
}

func (a *app) successStoryPage(w http.ResponseWriter, r *http.Request, match routes.ResolvedRoute) {
	story, err := a.content.SuccessStory(r.Context(), reqLang(r), match.Params["companyName"])
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	l := a.layout()
	data := l.Page(r, "", story.Title, "").WithDetail(l, story.Company)
	data.SEO.Description = story.Summary
	data.SEO.OG.Description = story.Summary
	data.JSONLD = append(data.JSONLD, a.breadcrumbJSONLD(data))
	data.Content = story
	a.render(w, r, "success-story", http.StatusOK, data)
}

func (a *app) useCasesPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	useCases, err := listOrEmpty(a.content.UseCases(r.Context(), reqLang(r)))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.useCases.title", "", "page.useCases.description")
	data.Content = useCases
	a.render(w, r, "use-cases", http.StatusOK, data)
}

func (a *app) useCasePage(w http.ResponseWriter, r *http.Request, match routes.ResolvedRoute) {
	uc, err := a.content.UseCase(r.Context(), reqLang(r), match.Params["useCase"])
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	l := a.layout()
	data := l.Page(r, "", uc.Title, "").WithDetail(l, uc.Title)
	data.SEO.Description = uc.Summary
	data.SEO.OG.Description = uc.Summary
	data.JSONLD = append(data.JSONLD, a.breadcrumbJSONLD(data))
	data.Content = uc
	a.render(w, r, "use-case", http.StatusOK, data)
}

func (a *app) partnersPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	partners, err := listOrEmpty(a.content.Partners(r.Context(), reqLang(r)))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.partners.title", "", "page.partners.description")
	data.Content = partners
	a.render(w, r, "partners", http.StatusOK, data)
}

func (a *app) teamPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	team, err := listOrEmpty(a.content.Team(r.Context(), reqLang(r)))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.team.title", "", "page.team.description")
	data.Content = team
	a.render(w, r, "team", http.StatusOK, data)
}

func (a *app) eventsPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	events, err := listOrEmpty(a.content.Events(r.Context(), reqLang(r), true))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.events.title", "", "page.events.description")
	for _, e := range events {
		data.JSONLD = append(data.JSONLD, seo.JSON(seo.Event(e.Title, e.URL, e.Location, e.Start, e.End, e.Online)))
	}
	if len(events) > 0 {
		data.Forms = append(data.Forms, a.formEmbed(data.Lang, sourceEvent))
	}
	data.Content = events
	a.render(w, r, "events", http.StatusOK, data)
}

func (a *app) downloadsPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	items, err := listOrEmpty(a.content.Downloads(r.Context(), reqLang(r)))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.downloads.title", "", "page.downloads.description")
	data.Forms = append(data.Forms, a.formEmbed(data.Lang, sourceDownload))
	data.Content = items
	a.render(w, r, "downloads", http.StatusOK, data)
}

func (a *app) contactPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	data := a.layout().Page(r, "page.contact.title", "", "page.contact.description")
	data.Forms = append(data.Forms, a.formEmbed(data.Lang, sourceContact))
	a.render(w, r, "contact", http.StatusOK, data)
}

func (a *app) blogPage(w http.ResponseWriter, r *http.Request, _ routes.ResolvedRoute) {
	posts, err := listOrEmpty(a.content.BlogPosts(r.Context(), reqLang(r)))
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	data := a.layout().Page(r, "page.blog.title", "", "page.blog.description")
	data.Content = posts
	a.render(w, r, "blog", http.StatusOK, data)
}

func (a *app) blogPostPage(w http.ResponseWriter, r *http.Request, match routes.ResolvedRoute) {
	post, err := a.content.BlogPost(r.Context(), reqLang(r), match.Params["slug"])
	if err != nil {
		a.contentError(w, r, err)
		return
	}
	l := a.layout()
	data := l.Page(r, "", post.Title, "").WithDetail(l, post.Title)
	data.SEO.Description = post.Summary
	data.SEO.OG.Description = post.Summary
	data.SEO.OG.Type = "article"
	data.JSONLD = append(data.JSONLD,
		a.breadcrumbJSONLD(data),
		seo.JSON(seo.Article(post.Title, data.SEO.Canonical, a.absolute(post.Image), post.Author, post.Published)),
	)
	data.Content = post
	a.render(w, r, "blog-post", http.StatusOK, data)
}

func (a *app) legalPage(w http.ResponseWriter, r *http.Request, match routes.ResolvedRoute) {
	key := "page." + string(match.Page)
	data := a.layout().Page(r, key+".title", "", "")
	a.render(w, r, string(match.Page), http.StatusOK, data)
}

// notFound renders the 404 page in the language of the requested path.
func (a *app) notFound(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(mw.WithLang(r.Context(), routes.LanguageOf(r.URL.Path)))
	data := a.layout().Page(r, "error.not_found.title", "", "")
	data.SEO.NoIndex = true
	a.render(w, r, "not-found", http.StatusNotFound, data)
}

func (a *app) maintenancePage(w http.ResponseWriter, r *http.Request) {
	data := a.layout().Page(r, "page.maintenance.title", "", "")
	data.SEO.NoIndex = true
	data.Content = a.status.Summary(r.Context())
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "300")
	a.render(w, r, "maintenance", http.StatusServiceUnavailable, data)
}

func (a *app) breadcrumbJSONLD(data handlers.PageData) template.JS {
	items := make([]seo.BreadcrumbItem, 0, len(data.Breadcrumbs))
	for _, c := range data.Breadcrumbs {
		name := c.Label
		if name == "" {
			name = a.bundle.T(string(data.Lang), c.LabelKey)
		}
		items = append(items, seo.BreadcrumbItem{Name: name, Item: a.cfg.Site.BaseURL + c.Href})
	}
	return seo.JSON(seo.BreadcrumbList(items))
}

// absolute turns a site-relative asset path into an absolute URL.
func (a *app) absolute(path string) string {
	if path == "" || path[0] != '/' {
		return path
	}
	return a.cfg.Site.BaseURL + path
}

// listOrEmpty treats a collection missing in every language as empty.
func listOrEmpty[T any](items []T, err error) ([]T, error) {
	if errors.Is(err, content.ErrNotFound) {
		return nil, nil
	}
	return items, err
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
