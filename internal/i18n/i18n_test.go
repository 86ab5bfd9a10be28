package i18n

import (
	"testing"
	"testing/fstest"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	fsys := fstest.MapFS{
		"de.json": {Data: []byte(`{"nav.pricing":"Preise","greeting":"Hallo %s","only.de":"nur deutsch"}`)},
		"en.json": {Data: []byte(`{"nav.pricing":"Pricing","greeting":"Hello %s"}`)},
	}
	b, err := LoadFS(fsys, "de", []string{"de", "en"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := testBundle(t)
	if got := b.Resolve("de;q=0.8, en;q=0.9"); got != "en" {
		t.Fatalf("expected en, got %s", got)
	}
	if got := b.Resolve("en-GB,en;q=0.9"); got != "en" {
		t.Fatalf("expected en for en-GB, got %s", got)
	}
	if got := b.Resolve("de-AT"); got != "de" {
		t.Fatalf("expected de for de-AT, got %s", got)
	}
}

func TestResolveFallsBack(t *testing.T) {
	b := testBundle(t)
	for _, header := range []string{"", "ja", "not a header;;"} {
		if got := b.Resolve(header); got != "de" {
			t.Fatalf("Resolve(%q) = %s, want de", header, got)
		}
	}
}

func TestTranslateFallbacks(t *testing.T) {
	b := testBundle(t)
	if got := b.T("en", "nav.pricing"); got != "Pricing" {
		t.Fatalf("got %q", got)
	}
	if got := b.T("en", "only.de"); got != "nur deutsch" {
		t.Fatalf("expected fallback to de, got %q", got)
	}
	if got := b.T("en", "missing.key"); got != "missing.key" {
		t.Fatalf("expected key echo, got %q", got)
	}
	if got := b.Tf("en", "greeting", "Ada"); got != "Hello Ada" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadRequiresFallback(t *testing.T) {
	fsys := fstest.MapFS{"en.json": {Data: []byte(`{}`)}}
	if _, err := LoadFS(fsys, "de", []string{"de", "en"}); err == nil {
		t.Fatal("expected error when fallback dictionary is missing")
	}
}

func TestLoadRealLocales(t *testing.T) {
	b, err := Load("../../locales", "de", []string{"de", "en"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.T("de", "nav.contact") == "nav.contact" || b.T("en", "nav.contact") == "nav.contact" {
		t.Fatal("nav.contact missing from locale files")
	}
}
