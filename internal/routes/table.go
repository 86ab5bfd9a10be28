package routes

// Logical page identifiers.
const (
	Home               PageID = "home"
	Pricing            PageID = "pricing"
	SuccessStories     PageID = "successStories"
	SuccessStoryDetail PageID = "successStoryDetail"
	UseCases           PageID = "useCases"
	UseCaseDetail      PageID = "useCaseDetail"
	Partners           PageID = "partners"
	Team               PageID = "team"
	Events             PageID = "events"
	Downloads          PageID = "downloads"
	ThankYou           PageID = "thankYou"
	Blog               PageID = "blog"
	BlogPost           PageID = "blogPost"
	Contact            PageID = "contact"
	Imprint            PageID = "imprint"
	Privacy            PageID = "privacy"
)

// MaintenancePath is served in every language under the same path.
const MaintenancePath = "/maintenance"

var languageAgnostic = map[string]bool{
	MaintenancePath: true,
}

// defaultTable is the site's route table. Order is the nav and sitemap order.
var defaultTable = mustTable([]Route{
	{Home, Templates{DE: "/de", EN: "/en"}},
	{Pricing, Templates{DE: "/de/preise", EN: "/en/pricing"}},
	{SuccessStories, Templates{DE: "/de/erfolgsgeschichten", EN: "/en/success-stories"}},
	{SuccessStoryDetail, Templates{DE: "/de/success-story/:companyName", EN: "/en/success-story/:companyName"}},
	{UseCases, Templates{DE: "/de/anwendungsfaelle", EN: "/en/use-cases"}},
	{UseCaseDetail, Templates{DE: "/de/anwendungsfaelle/:useCase", EN: "/en/use-cases/:useCase"}},
	{Partners, Templates{DE: "/de/partner", EN: "/en/partners"}},
	{Team, Templates{DE: "/de/team", EN: "/en/team"}},
	{Events, Templates{DE: "/de/veranstaltungen", EN: "/en/events"}},
	{Downloads, Templates{DE: "/de/downloads", EN: "/en/downloads"}},
	{ThankYou, Templates{DE: "/de/danke", EN: "/en/thank-you"}},
	{Blog, Templates{DE: "/de/blog", EN: "/en/blog"}},
	{BlogPost, Templates{DE: "/de/blog/:slug", EN: "/en/blog/:slug"}},
	{Contact, Templates{DE: "/de/kontakt", EN: "/en/contact"}},
	{Imprint, Templates{DE: "/de/impressum", EN: "/en/imprint"}},
	{Privacy, Templates{DE: "/de/datenschutz", EN: "/en/privacy"}},
})
