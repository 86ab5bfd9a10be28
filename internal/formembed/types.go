// Package formembed manages third-party form widgets embedded into a page:
// loading the provider script once, creating at most one live form per
// container, and reporting each submission exactly once even when the
// provider's own callbacks never fire.
package formembed

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of one mount.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusScriptLoading Status = "scriptLoading"
	StatusMounting      Status = "mounting"
	StatusReady         Status = "ready"
	StatusSubmitted     Status = "submitted"
	StatusError         Status = "error"
)

var (
	// ErrScriptLoad means the provider script failed to load or timed out.
	ErrScriptLoad = errors.New("formembed: provider script failed to load")
	// ErrContainerMissing means the target container never appeared.
	ErrContainerMissing = errors.New("formembed: form container not found")
	// ErrProviderReported means the provider signalled an error itself or
	// never rendered a form.
	ErrProviderReported = errors.New("formembed: provider reported an error")
)

// MountError is handed to MountRequest.OnError.
type MountError struct {
	ContainerID string
	Kind        error
	Err         error
}

func (e *MountError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%v (container %q): %v", e.Kind, e.ContainerID, e.Err)
	}
	return fmt.Sprintf("%v (container %q)", e.Kind, e.ContainerID)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *MountError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ProviderConfig holds the opaque identifiers the form provider needs.
type ProviderConfig struct {
	Region    string `json:"region" yaml:"region"`
	AccountID string `json:"accountId" yaml:"account_id"`
	FormID    string `json:"formId" yaml:"form_id"`
}

// MountRequest describes what to embed and where.
type MountRequest struct {
	ContainerID string
	Provider    ProviderConfig
	Enabled     bool
	// Source labels the analytics event, e.g. "contact" or "download-modal".
	Source string

	OnReady  func()
	OnSubmit func()
	OnError  func(*MountError)
}

// CreateOptions is passed to the provider's create entry point.
type CreateOptions struct {
	ProviderConfig
	// Target is a CSS selector for the container, e.g. "#contact-form".
	Target string

	OnFormReady  func()
	OnFormSubmit func()
	OnFormError  func(error)
}

// Provider is the entry point a loaded provider script exposes.
type Provider interface {
	Create(opts CreateOptions) error
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(CreateOptions) error

// Create implements Provider.
func (f ProviderFunc) Create(opts CreateOptions) error { return f(opts) }

// Timing bounds every wait the controller performs.
type Timing struct {
	ContainerPollInterval time.Duration
	ContainerWait         time.Duration
	ReadyFallback         time.Duration
	SubmitPollInterval    time.Duration
	SubmitWindow          time.Duration
}

// DefaultTiming mirrors the windows the provider integration was tuned with.
func DefaultTiming() Timing {
	return Timing{
		ContainerPollInterval: 100 * time.Millisecond,
		ContainerWait:         5 * time.Second,
		ReadyFallback:         2 * time.Second,
		SubmitPollInterval:    time.Second,
		SubmitWindow:          30 * time.Second,
	}
}

func (t Timing) withDefaults() Timing {
	def := DefaultTiming()
	if t.ContainerPollInterval <= 0 {
		t.ContainerPollInterval = def.ContainerPollInterval
	}
	if t.ContainerWait <= 0 {
		t.ContainerWait = def.ContainerWait
	}
	if t.ReadyFallback <= 0 {
		t.ReadyFallback = def.ReadyFallback
	}
	if t.SubmitPollInterval <= 0 {
		t.SubmitPollInterval = def.SubmitPollInterval
	}
	if t.SubmitWindow <= 0 {
		t.SubmitWindow = def.SubmitWindow
	}
	return t
}
