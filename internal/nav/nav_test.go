package nav

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"finitefield.org/marketing-web/internal/routes"
)

func TestBuildMarksSectionActive(t *testing.T) {
	table := routes.Default()
	cases := map[string]string{
		"/en/success-story/hector": "/en/success-stories",
		"/de/anwendungsfaelle":     "/de/anwendungsfaelle",
		"/de/blog/ein-artikel":     "/de/blog",
		"/en/imprint":              "",
		"/fr/unknown":              "",
	}
	for path, wantActive := range cases {
		items := Build(Main, table, path, routes.LanguageOf(path))
		var active string
		for _, it := range items {
			if it.Active {
				if active != "" {
					t.Fatalf("%s: more than one active item", path)
				}
				active = it.Href
			}
		}
		if active != wantActive {
			t.Errorf("%s: active %q, want %q", path, active, wantActive)
		}
	}
}

func TestBuildLocalizesHrefs(t *testing.T) {
	items := Build(Footer, routes.Default(), "/de", routes.German)
	got := make([]string, 0, len(items))
	for _, it := range items {
		got = append(got, it.Href)
	}
	want := []string{"/de/team", "/de/downloads", "/de/impressum", "/de/datenschutz"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hrefs mismatch (-want +got):\n%s", diff)
	}
}

func TestBreadcrumbs(t *testing.T) {
	table := routes.Default()
	got := Breadcrumbs(table, "/en/success-story/hector", routes.English, "Hector GmbH")
	want := []Crumb{
		{Href: "/en", LabelKey: "nav.home"},
		{Href: "/en/success-stories", LabelKey: "nav.successStories"},
		{Href: "/en/success-story/hector", LabelKey: "nav.successStoryDetail", Label: "Hector GmbH", Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}

	home := Breadcrumbs(table, "/de", routes.German, "")
	if len(home) != 1 || !home[0].Active {
		t.Fatalf("expected single active home crumb, got %+v", home)
	}

	pricing := Breadcrumbs(table, "/de/preise", routes.German, "")
	if len(pricing) != 2 || pricing[1].LabelKey != "nav.pricing" {
		t.Fatalf("unexpected crumbs %+v", pricing)
	}
}
