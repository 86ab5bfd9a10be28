package seo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"finitefield.org/marketing-web/internal/routes"
)

func TestBuildAlternates(t *testing.T) {
	m := Build(routes.Default(), "https://www.example.com/", "/en/use-cases/forecasting", "Forecasting", "desc")
	want := []Alternate{
		{HrefLang: "de", Href: "https://www.example.com/de/anwendungsfaelle/forecasting"},
		{HrefLang: "en", Href: "https://www.example.com/en/use-cases/forecasting"},
		{HrefLang: "x-default", Href: "https://www.example.com/de/anwendungsfaelle/forecasting"},
	}
	if diff := cmp.Diff(want, m.Alternates); diff != "" {
		t.Fatalf("alternates mismatch (-want +got):\n%s", diff)
	}
	if m.Canonical != "https://www.example.com/en/use-cases/forecasting" {
		t.Fatalf("unexpected canonical %q", m.Canonical)
	}
	if m.OG.Locale != "en_US" {
		t.Fatalf("unexpected og locale %q", m.OG.Locale)
	}
}

func TestBuildUnknownPathHasNoAlternates(t *testing.T) {
	m := Build(routes.Default(), "https://www.example.com", "/maintenance", "Wartung", "")
	if len(m.Alternates) != 0 || m.Canonical != "https://www.example.com/maintenance" {
		t.Fatalf("unexpected meta %+v", m)
	}
}

func TestEventJSONLD(t *testing.T) {
	start := time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)
	var got map[string]any
	if err := json.Unmarshal([]byte(JSON(Event("Summit", "https://x", "Berlin", start, time.Time{}, false))), &got); err != nil {
		t.Fatal(err)
	}
	if got["@type"] != "Event" || got["startDate"] != "2025-05-06T09:00:00Z" {
		t.Fatalf("unexpected event %v", got)
	}
	loc, _ := got["location"].(map[string]any)
	if loc["name"] != "Berlin" {
		t.Fatalf("unexpected location %v", got["location"])
	}
	if _, ok := got["endDate"]; ok {
		t.Fatal("expected no endDate")
	}
}

func TestArticleJSONLD(t *testing.T) {
	m := Article("Hello", "https://x/de/blog/hello", "", "Ada", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if m["datePublished"] != "2025-01-02" {
		t.Fatalf("unexpected date %v", m["datePublished"])
	}
	if _, ok := m["image"]; ok {
		t.Fatal("expected no image")
	}
}
