package formembed

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"finitefield.org/marketing-web/internal/dom"
)

// FormLabels are the visible strings of the fallback form.
type FormLabels struct {
	Name    string
	Email   string
	Company string
	Message string
	Submit  string
}

// StaticProvider renders a plain HTML form that posts to Action. It stands in
// for the hosted provider when pages are rendered on the server or the
// provider script is unavailable.
type StaticProvider struct {
	Doc    *dom.Document
	Action string
	Labels FormLabels
	// Hidden fields are posted with the form, e.g. a CSRF token.
	Hidden map[string]string
}

var staticFormTmpl = template.Must(template.New("form").Parse(
	`<form class="hs-form" method="post" action="{{.Action}}" data-portal-id="{{.AccountID}}" data-form-id="{{.FormID}}" data-region="{{.Region}}">` +
		`{{range $k, $v := .Hidden}}<input type="hidden" name="{{$k}}" value="{{$v}}">{{end}}` +
		`<label>{{.Labels.Name}}<input type="text" name="name" required></label>` +
		`<label>{{.Labels.Email}}<input type="email" name="email" required></label>` +
		`{{if .Labels.Company}}<label>{{.Labels.Company}}<input type="text" name="company"></label>{{end}}` +
		`{{if .Labels.Message}}<label>{{.Labels.Message}}<textarea name="message" rows="4"></textarea></label>{{end}}` +
		`<button type="submit" class="hs-button">{{.Labels.Submit}}</button>` +
		`</form>`))

// Create implements Provider.
func (p StaticProvider) Create(opts CreateOptions) error {
	if p.Doc == nil {
		return fmt.Errorf("static provider: no document")
	}
	id := strings.TrimPrefix(opts.Target, "#")
	container, ok := p.Doc.ByID(id)
	if !ok {
		return fmt.Errorf("static provider: target %q not found", opts.Target)
	}
	labels := p.Labels
	if labels.Submit == "" {
		labels.Submit = "Submit"
	}
	var buf bytes.Buffer
	err := staticFormTmpl.Execute(&buf, struct {
		ProviderConfig
		Action string
		Labels FormLabels
		Hidden map[string]string
	}{opts.ProviderConfig, p.Action, labels, p.Hidden})
	if err != nil {
		return fmt.Errorf("static provider: render: %w", err)
	}
	if err := p.Doc.SetInnerHTML(container, buf.String()); err != nil {
		return fmt.Errorf("static provider: %w", err)
	}
	if opts.OnFormReady != nil {
		opts.OnFormReady()
	}
	return nil
}
