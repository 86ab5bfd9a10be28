package dom

import (
	"errors"
	"sync"
)

// ScriptState tracks the load lifecycle of a <script src> element.
type ScriptState int

const (
	ScriptPending ScriptState = iota
	ScriptLoaded
	ScriptFailed
)

// ErrScriptFailed is passed to error listeners when no specific cause is known.
var ErrScriptFailed = errors.New("dom: script failed to load")

// Window bundles a Document with the page-global state embedded widgets use:
// named globals installed by scripts and script element load events.
type Window struct {
	Document *Document

	mu      sync.Mutex
	globals map[string]any
	scripts map[string]*scriptEntry
	nextID  int
}

type scriptEntry struct {
	el        Element
	state     ScriptState
	err       error
	listeners map[int]scriptListener
}

type scriptListener struct {
	onLoad  func()
	onError func(error)
}

// NewWindow wraps doc. A nil doc gets an empty page.
func NewWindow(doc *Document) *Window {
	if doc == nil {
		doc = NewDocument()
	}
	return &Window{
		Document: doc,
		globals:  map[string]any{},
		scripts:  map[string]*scriptEntry{},
	}
}

// Global returns a named global.
func (w *Window) Global(name string) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.globals[name]
	return v, ok
}

// SetGlobal installs a named global, as an executed script would.
func (w *Window) SetGlobal(name string, v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.globals[name] = v
}

// FindScript returns the first script element whose src equals src.
func (w *Window) FindScript(src string) (Element, bool) {
	for _, el := range w.Document.Query("script[src]") {
		if v, _ := el.Attr("src"); v == src {
			return el, true
		}
	}
	return Element{}, false
}

// InjectScript appends an async script element for src to <head> (or <body>).
func (w *Window) InjectScript(src string) (Element, error) {
	parent, ok := w.Document.Head()
	if !ok {
		if parent, ok = w.Document.Body(); !ok {
			return Element{}, ErrDetached
		}
	}
	return w.Document.AppendElement(parent, "script", map[string]string{
		"src":     src,
		"async":   "",
		"charset": "utf-8",
	})
}

// ScriptState reports what the window knows about el. Elements never seen by
// DispatchScriptLoad/DispatchScriptError are pending.
func (w *Window) ScriptState(el Element) ScriptState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e := w.scripts[scriptKey(el)]; e != nil {
		return e.state
	}
	return ScriptPending
}

// OnScriptEvent subscribes to the next load or error event of el. Events that
// already happened are not replayed.
func (w *Window) OnScriptEvent(el Element, onLoad func(), onError func(error)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := w.entryLocked(el)
	w.nextID++
	id := w.nextID
	e.listeners[id] = scriptListener{onLoad: onLoad, onError: onError}
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(e.listeners, id)
	}
}

// DispatchScriptLoad marks el loaded and fires its load listeners.
func (w *Window) DispatchScriptLoad(el Element) {
	for _, l := range w.settle(el, ScriptLoaded, nil) {
		if l.onLoad != nil {
			l.onLoad()
		}
	}
}

// DispatchScriptError marks el failed and fires its error listeners.
func (w *Window) DispatchScriptError(el Element, err error) {
	if err == nil {
		err = ErrScriptFailed
	}
	for _, l := range w.settle(el, ScriptFailed, err) {
		if l.onError != nil {
			l.onError(err)
		}
	}
}

func (w *Window) settle(el Element, state ScriptState, err error) []scriptListener {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := w.entryLocked(el)
	e.state = state
	e.err = err
	out := make([]scriptListener, 0, len(e.listeners))
	for id, l := range e.listeners {
		out = append(out, l)
		delete(e.listeners, id)
	}
	return out
}

func (w *Window) entryLocked(el Element) *scriptEntry {
	key := scriptKey(el)
	e := w.scripts[key]
	if e == nil {
		e = &scriptEntry{el: el, listeners: map[int]scriptListener{}}
		w.scripts[key] = e
	}
	return e
}

func scriptKey(el Element) string {
	src, _ := el.Attr("src")
	return src
}
