package formembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/clock"
	"finitefield.org/marketing-web/internal/dom"
)

const (
	defaultScriptTimeout      = 10 * time.Second
	defaultScriptPollInterval = 100 * time.Millisecond
	maxScriptBytes            = 2 << 20
)

// ScriptLoader resolves the provider entry point.
type ScriptLoader interface {
	// Then calls fn once the provider script has settled. When it already
	// has, fn runs before Then returns.
	Then(fn func(Provider, error))
}

// Fetcher downloads a script body and reports the result through done.
type Fetcher interface {
	Fetch(ctx context.Context, src string, done func(body []byte, err error))
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, src string, done func([]byte, error))

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, src string, done func([]byte, error)) {
	f(ctx, src, done)
}

// Installer executes a fetched script body against the window, which is
// expected to install the provider global.
type Installer func(win *dom.Window, body []byte) error

// InstallProvider returns an Installer that registers p under global once a
// non-empty script body arrived.
func InstallProvider(global string, p Provider) Installer {
	return func(win *dom.Window, body []byte) error {
		if len(body) == 0 {
			return errors.New("empty script body")
		}
		win.SetGlobal(global, p)
		return nil
	}
}

type loadState int

const (
	loadUnstarted loadState = iota
	loadInFlight
	loadSettled
)

// SharedScript is the page-wide memoized loader for one provider script.
// The first Then starts the load; every later caller shares the outcome. It
// never resets, so the network fetch happens at most once per window.
type SharedScript struct {
	win          *dom.Window
	src          string
	global       string
	fetcher      Fetcher
	install      Installer
	clock        clock.Clock
	timeout      time.Duration
	pollInterval time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	state    loadState
	provider Provider
	err      error
	waiters  []func(Provider, error)
	cleanup  []func()
	fetches  int
}

// ScriptOption customises a SharedScript.
type ScriptOption func(*SharedScript)

// WithFetcher sets how the script body is downloaded.
func WithFetcher(f Fetcher) ScriptOption {
	return func(s *SharedScript) { s.fetcher = f }
}

// WithInstaller sets how a downloaded body installs the provider global.
func WithInstaller(i Installer) ScriptOption {
	return func(s *SharedScript) { s.install = i }
}

// WithScriptClock sets the clock used for the load deadline and tag polling.
func WithScriptClock(c clock.Clock) ScriptOption {
	return func(s *SharedScript) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithScriptTimeout bounds how long a load may take.
func WithScriptTimeout(d time.Duration) ScriptOption {
	return func(s *SharedScript) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithScriptLogger sets the logger.
func WithScriptLogger(l *zap.Logger) ScriptOption {
	return func(s *SharedScript) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSharedScript builds a loader for src whose provider registers itself
// under global.
func NewSharedScript(win *dom.Window, src, global string, opts ...ScriptOption) *SharedScript {
	s := &SharedScript{
		win:          win,
		src:          src,
		global:       global,
		fetcher:      HTTPFetcher{},
		clock:        clock.Real(),
		timeout:      defaultScriptTimeout,
		pollInterval: defaultScriptPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Then implements ScriptLoader.
func (s *SharedScript) Then(fn func(Provider, error)) {
	s.mu.Lock()
	switch s.state {
	case loadSettled:
		p, err := s.provider, s.err
		s.mu.Unlock()
		fn(p, err)
		return
	case loadInFlight:
		s.waiters = append(s.waiters, fn)
		s.mu.Unlock()
		return
	}
	s.state = loadInFlight
	s.waiters = append(s.waiters, fn)
	s.mu.Unlock()
	s.start()
}

// Load blocks until the script settles or ctx is done.
func (s *SharedScript) Load(ctx context.Context) (Provider, error) {
	type result struct {
		p   Provider
		err error
	}
	ch := make(chan result, 1)
	s.Then(func(p Provider, err error) { ch <- result{p, err} })
	select {
	case r := <-ch:
		return r.p, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetches reports how many network fetches were started.
func (s *SharedScript) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *SharedScript) start() {
	if p, ok := s.lookup(); ok {
		s.logger.Debug("provider already present", zap.String("global", s.global))
		s.settle(p, nil)
		return
	}
	if el, ok := s.win.FindScript(s.src); ok {
		s.attach(el)
		return
	}
	s.fetch()
}

// attach waits for a script tag someone else inserted. Its load event may
// already have fired, so a poll on the provider global backs up the listeners.
func (s *SharedScript) attach(el dom.Element) {
	s.logger.Debug("attaching to existing provider script", zap.String("src", s.src))
	s.addCleanup(s.win.OnScriptEvent(el,
		func() { s.settleFromGlobal() },
		func(err error) { s.settle(nil, fmt.Errorf("%w: %v", ErrScriptLoad, err)) },
	))
	s.addCleanup(PollUntil(s.clock, func() bool {
		_, ok := s.lookup()
		return ok
	}, s.pollInterval, s.timeout, func(ok bool) {
		if ok {
			s.settleFromGlobal()
			return
		}
		s.settle(nil, fmt.Errorf("%w: timed out after %s", ErrScriptLoad, s.timeout))
	}))
}

func (s *SharedScript) fetch() {
	el, err := s.win.InjectScript(s.src)
	if err != nil {
		s.settle(nil, fmt.Errorf("%w: inject script: %v", ErrScriptLoad, err))
		return
	}
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()
	s.logger.Debug("fetching provider script", zap.String("src", s.src))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.addCleanup(cancel)
	deadline := s.clock.AfterFunc(s.timeout, func() {
		s.win.DispatchScriptError(el, context.DeadlineExceeded)
		s.settle(nil, fmt.Errorf("%w: timed out after %s", ErrScriptLoad, s.timeout))
	})
	s.addCleanup(func() { deadline.Stop() })

	s.fetcher.Fetch(ctx, s.src, func(body []byte, err error) {
		if err != nil {
			s.win.DispatchScriptError(el, err)
			s.settle(nil, fmt.Errorf("%w: %v", ErrScriptLoad, err))
			return
		}
		if s.install == nil {
			err = errors.New("no installer configured")
		} else {
			err = s.install(s.win, body)
		}
		if err != nil {
			s.win.DispatchScriptError(el, err)
			s.settle(nil, fmt.Errorf("%w: %v", ErrScriptLoad, err))
			return
		}
		s.win.DispatchScriptLoad(el)
		s.settleFromGlobal()
	})
}

func (s *SharedScript) settleFromGlobal() {
	if p, ok := s.lookup(); ok {
		s.settle(p, nil)
		return
	}
	s.settle(nil, fmt.Errorf("%w: script loaded but %q is not defined", ErrScriptLoad, s.global))
}

func (s *SharedScript) settle(p Provider, err error) {
	s.mu.Lock()
	if s.state == loadSettled {
		s.mu.Unlock()
		return
	}
	s.state = loadSettled
	s.provider, s.err = p, err
	waiters, cleanup := s.waiters, s.cleanup
	s.waiters, s.cleanup = nil, nil
	s.mu.Unlock()

	for _, fn := range cleanup {
		fn()
	}
	if err != nil {
		s.logger.Warn("provider script unavailable", zap.String("src", s.src), zap.Error(err))
	} else {
		s.logger.Debug("provider script ready", zap.String("src", s.src))
	}
	for _, fn := range waiters {
		fn(p, err)
	}
}

func (s *SharedScript) addCleanup(fn func()) {
	s.mu.Lock()
	if s.state == loadSettled {
		s.mu.Unlock()
		fn()
		return
	}
	s.cleanup = append(s.cleanup, fn)
	s.mu.Unlock()
}

func (s *SharedScript) lookup() (Provider, bool) {
	v, ok := s.win.Global(s.global)
	if !ok {
		return nil, false
	}
	p, ok := v.(Provider)
	return p, ok
}

// HTTPFetcher downloads scripts over HTTP on a background goroutine.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch implements Fetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, src string, done func([]byte, error)) {
	go func() {
		body, err := f.get(ctx, src)
		done(body, err)
	}()
}

func (f HTTPFetcher) get(ctx context.Context, src string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: defaultScriptTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("script status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
}
