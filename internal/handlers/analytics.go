package handlers

// Analytics holds client instrumentation configuration surfaced to templates.
type Analytics struct {
	GTMContainerID string
	// EventsEndpoint receives browser-side events such as form submissions.
	EventsEndpoint string
}
