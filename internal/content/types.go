package content

import (
	"html/template"
	"time"
)

// Partner is a technology or consulting partner.
type Partner struct {
	Slug        string `yaml:"slug" json:"slug"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Logo        string `yaml:"logo" json:"logo"`
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description" json:"description"`
}

// TeamMember is a person on the team page.
type TeamMember struct {
	Name     string `yaml:"name" json:"name"`
	Role     string `yaml:"role" json:"role"`
	Photo    string `yaml:"photo" json:"photo"`
	Bio      string `yaml:"bio" json:"bio"`
	LinkedIn string `yaml:"linkedin" json:"linkedin"`
}

// Event is a webinar, fair or meetup. FormID selects the registration form.
type Event struct {
	ID       string    `yaml:"id" json:"id"`
	Title    string    `yaml:"title" json:"title"`
	Summary  string    `yaml:"summary" json:"summary"`
	Location string    `yaml:"location" json:"location"`
	Online   bool      `yaml:"online" json:"online"`
	URL      string    `yaml:"url" json:"url"`
	Start    time.Time `yaml:"start" json:"start"`
	End      time.Time `yaml:"end" json:"end"`
	FormID   string    `yaml:"form_id" json:"form_id"`
}

// Upcoming reports whether the event has not ended at now.
func (e Event) Upcoming(now time.Time) bool {
	end := e.End
	if end.IsZero() {
		end = e.Start
	}
	return !end.Before(now)
}

// SuccessStory is a customer reference; Slug is the company identifier in
// the detail URL.
type SuccessStory struct {
	Slug        string        `yaml:"slug" json:"slug"`
	Company     string        `yaml:"company" json:"company"`
	Industry    string        `yaml:"industry" json:"industry"`
	Logo        string        `yaml:"logo" json:"logo"`
	Title       string        `yaml:"title" json:"title"`
	Summary     string        `yaml:"summary" json:"summary"`
	Quote       string        `yaml:"quote" json:"quote"`
	QuoteAuthor string        `yaml:"quote_author" json:"quote_author"`
	Results     []string      `yaml:"results" json:"results"`
	Markdown    string        `yaml:"body" json:"body"`
	Body        template.HTML `yaml:"-" json:"-"`
}

// UseCase is an application scenario with its own detail page.
type UseCase struct {
	Slug     string        `yaml:"slug" json:"slug"`
	Title    string        `yaml:"title" json:"title"`
	Summary  string        `yaml:"summary" json:"summary"`
	Icon     string        `yaml:"icon" json:"icon"`
	Benefits []string      `yaml:"benefits" json:"benefits"`
	Markdown string        `yaml:"body" json:"body"`
	Body     template.HTML `yaml:"-" json:"-"`
}

// Download is a gated or public file. FileURL may be an http(s) URL, a site
// path or a gs:// location.
type Download struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Kind        string `yaml:"kind" json:"kind"`
	Image       string `yaml:"image" json:"image"`
	FileURL     string `yaml:"file_url" json:"file_url"`
	Gated       bool   `yaml:"gated" json:"gated"`
}

// PricingPlan is one column of the pricing table. Prices are in euro cents.
type PricingPlan struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Tagline      string   `yaml:"tagline" json:"tagline"`
	MonthlyCents int64    `yaml:"monthly_cents" json:"monthly_cents"`
	YearlyCents  int64    `yaml:"yearly_cents" json:"yearly_cents"`
	OnRequest    bool     `yaml:"on_request" json:"on_request"`
	Highlight    bool     `yaml:"highlight" json:"highlight"`
	Features     []string `yaml:"features" json:"features"`
}

// BlogPost is a rendered article.
type BlogPost struct {
	Slug      string
	Lang      string
	Title     string
	Summary   string
	Author    string
	Image     string
	Tags      []string
	Published time.Time
	Body      template.HTML
}
