package formembed

import (
	"strings"

	"finitefield.org/marketing-web/internal/dom"
)

// Class names the provider puts on its confirmation markup.
var successClasses = []string{
	"submitted-message",
	"hs-submitted-message",
	"hs-form-success",
	"form-success",
	"success-message",
}

// Lower-case confirmation phrases in both site languages.
var successPhrases = []string{
	"vielen dank",
	"danke für",
	"erfolgreich",
	"wir melden uns",
	"thank you",
	"thanks for",
	"successfully",
	"we'll be in touch",
}

// hasLiveForm reports whether container holds a visible form element.
func hasLiveForm(container dom.Element) bool {
	for _, f := range container.Find("form") {
		if !f.Hidden(container) {
			return true
		}
	}
	return false
}

// looksSubmitted applies the DOM heuristics for a completed submission to a
// container whose form has been seen at least once.
func looksSubmitted(container dom.Element, forms []dom.Element) bool {
	if len(forms) == 0 {
		return true
	}
	for _, f := range forms {
		if f.Hidden(container) {
			return true
		}
	}
	for _, class := range successClasses {
		if len(container.Find("."+class)) > 0 {
			return true
		}
	}
	return containsSuccessText(textOutsideForms(container, forms))
}

func textOutsideForms(container dom.Element, forms []dom.Element) string {
	text := container.Text()
	for _, f := range forms {
		if ft := f.Text(); ft != "" {
			text = strings.Replace(text, ft, " ", 1)
		}
	}
	return text
}

func containsSuccessText(text string) bool {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	if text == "" {
		return false
	}
	for _, phrase := range successPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
