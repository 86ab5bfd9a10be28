package format

import (
	"testing"
	"time"
)

func TestEuro(t *testing.T) {
	cases := []struct {
		cents int64
		lang  string
		want  string
	}{
		{4900, "de", "49 €"},
		{4900, "en", "€49"},
		{123400, "de", "1.234 €"},
		{123400, "en", "€1,234"},
		{-500, "de", "-5 €"},
		{4900, "fr", "49 €"},
	}
	for _, tc := range cases {
		if got := Euro(tc.cents, tc.lang); got != tc.want {
			t.Errorf("Euro(%d, %s) = %q, want %q", tc.cents, tc.lang, got, tc.want)
		}
	}
}

func TestDate(t *testing.T) {
	d := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	if got := Date(d, "de"); got != "2. März 2025" {
		t.Fatalf("unexpected de date %q", got)
	}
	if got := Date(d, "en"); got != "March 2, 2025" {
		t.Fatalf("unexpected en date %q", got)
	}
	if got := DateRange(d, d.Add(2*time.Hour), "en"); got != "March 2, 2025" {
		t.Fatalf("unexpected same-day range %q", got)
	}
	if got := DateRange(d, d.AddDate(0, 0, 1), "de"); got != "2. März 2025 – 3. März 2025" {
		t.Fatalf("unexpected range %q", got)
	}
}
