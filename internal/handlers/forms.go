package handlers

import (
	"encoding/json"
	"html/template"

	"finitefield.org/marketing-web/internal/formembed"
)

// FormsScript is the hosted form provider script every embedding page loads.
type FormsScript struct {
	Src    string
	Global string
}

// FormEmbed describes one form container on a page. Markup holds the
// server-rendered fallback form placed inside the container.
type FormEmbed struct {
	ContainerID string
	Source      string
	Provider    formembed.ProviderConfig
	Action      string
	Markup      template.HTML
}

// Enabled reports whether the provider is configured for this form.
func (f FormEmbed) Enabled() bool {
	return f.Provider.AccountID != "" && f.Provider.FormID != ""
}

// ClientConfig is the JSON the browser-side embed script reads from the
// container's data-form attribute.
func (f FormEmbed) ClientConfig() string {
	b, err := json.Marshal(struct {
		formembed.ProviderConfig
		Source string `json:"source"`
	}{f.Provider, f.Source})
	if err != nil {
		return "{}"
	}
	return string(b)
}
