// Package format renders prices and dates for the site's two languages.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printers = map[string]*message.Printer{
	"de": message.NewPrinter(language.German),
	"en": message.NewPrinter(language.English),
}

func printer(lang string) *message.Printer {
	if p, ok := printers[strings.ToLower(lang)]; ok {
		return p
	}
	return printers["de"]
}

// Euro formats an amount in cents: "1.234 €" in German, "€1,234" in English.
// Whole amounts omit the decimals.
func Euro(cents int64, lang string) string {
	p := printer(lang)
	neg := cents < 0
	if neg {
		cents = -cents
	}
	var num string
	if cents%100 == 0 {
		num = p.Sprintf("%d", cents/100)
	} else {
		num = p.Sprintf("%.2f", float64(cents)/100)
	}
	sign := ""
	if neg {
		sign = "-"
	}
	if strings.ToLower(lang) == "en" {
		return sign + "€" + num
	}
	return sign + num + " €"
}

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// Date formats t as "2. März 2025" (de) or "March 2, 2025" (en).
func Date(t time.Time, lang string) string {
	if strings.ToLower(lang) == "en" {
		return t.Format("January 2, 2006")
	}
	return fmt.Sprintf("%d. %s %d", t.Day(), germanMonths[t.Month()-1], t.Year())
}

// DateRange formats an event period; the end is dropped when it falls on the
// start day.
func DateRange(start, end time.Time, lang string) string {
	if end.IsZero() || sameDay(start, end) {
		return Date(start, lang)
	}
	return Date(start, lang) + " – " + Date(end, lang)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
