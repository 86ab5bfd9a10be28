package formembed

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/analytics"
	"finitefield.org/marketing-web/internal/clock"
	"finitefield.org/marketing-web/internal/dom"
)

const meterName = "finitefield.org/marketing-web/internal/formembed"

var (
	errContainerVanished = errors.New("container removed before the form was created")
	errNoForm            = errors.New("no form rendered within the submission window")
)

// Sink receives analytics events for completed submissions.
type Sink interface {
	Push(e analytics.Event) analytics.Event
}

type nopSink struct{}

func (nopSink) Push(e analytics.Event) analytics.Event { return e }

// Controller owns every form mounted into one window. Each container holds
// at most one live form, and each mount reports its submission at most once.
type Controller struct {
	win    *dom.Window
	loader ScriptLoader
	sink   Sink
	clock  clock.Clock
	logger *zap.Logger
	timing Timing

	submissions metric.Int64Counter

	mu      sync.Mutex
	mounts  map[string]*mount
	nextGen uint64
}

type mount struct {
	req       MountRequest
	gen       uint64
	status    Status
	submitted bool
	formSeen  bool
	cancels   []func()
}

// Option customises a Controller.
type Option func(*Controller)

// WithSink routes submission events to s.
func WithSink(s Sink) Option {
	return func(c *Controller) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTiming overrides poll intervals and deadlines. Zero fields keep defaults.
func WithTiming(t Timing) Option {
	return func(c *Controller) { c.timing = t.withDefaults() }
}

// NewController builds a controller for win that obtains the provider from loader.
func NewController(win *dom.Window, loader ScriptLoader, opts ...Option) *Controller {
	c := &Controller{
		win:    win,
		loader: loader,
		sink:   nopSink{},
		clock:  clock.Real(),
		logger: zap.NewNop(),
		timing: DefaultTiming(),
		mounts: map[string]*mount{},
	}
	for _, opt := range opts {
		opt(c)
	}
	counter, err := otel.Meter(meterName).Int64Counter("site.forms.submissions",
		metric.WithDescription("Embedded form submissions detected"))
	if err == nil {
		c.submissions = counter
	}
	return c
}

// State reports the status of the mount in containerID.
func (c *Controller) State(containerID string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m := c.mounts[containerID]; m != nil {
		return m.status
	}
	return StatusIdle
}

// SetEnabled reconciles req.Enabled: enabled mounts, disabled unmounts.
func (c *Controller) SetEnabled(req MountRequest) {
	if req.Enabled {
		c.Mount(req)
		return
	}
	c.Unmount(req.ContainerID)
}

// Mount embeds the requested form. It is a no-op while a mount for the same
// container is in progress or a live form is already present; any other
// previous state is torn down first. Failures are reported via OnError.
func (c *Controller) Mount(req MountRequest) {
	if !req.Enabled {
		c.Unmount(req.ContainerID)
		return
	}
	id := req.ContainerID
	log := c.logger.With(zap.String("container", id))

	c.mu.Lock()
	if prev := c.mounts[id]; prev != nil {
		switch prev.status {
		case StatusIdle, StatusScriptLoading, StatusMounting:
			c.mu.Unlock()
			log.Debug("mount already in progress", zap.String("status", string(prev.status)))
			return
		case StatusReady, StatusSubmitted:
			if container, ok := c.win.Document.ByID(id); ok && hasLiveForm(container) {
				c.mu.Unlock()
				log.Debug("form already live")
				return
			}
			log.Debug("form missing from container, remounting")
		}
	}
	stale := c.mounts[id]
	var cancels []func()
	if stale != nil {
		cancels = stale.cancels
		stale.cancels = nil
	}
	c.nextGen++
	m := &mount{req: req, gen: c.nextGen, status: StatusIdle}
	c.mounts[id] = m
	gen := m.gen
	c.mu.Unlock()

	for _, fn := range cancels {
		fn()
	}

	timing := c.timing
	c.track(id, gen, PollUntil(c.clock, func() bool {
		_, ok := c.win.Document.ByID(id)
		return ok
	}, timing.ContainerPollInterval, timing.ContainerWait, func(ok bool) {
		if !ok {
			c.fail(id, gen, ErrContainerMissing, nil)
			return
		}
		c.loadScript(id, gen)
	}))
}

// ReportSubmission records the submission of the form in containerID. Only
// the first call per mount emits OnSubmit and the analytics event.
func (c *Controller) ReportSubmission(containerID string) {
	c.mu.Lock()
	m := c.mounts[containerID]
	c.mu.Unlock()
	if m == nil {
		return
	}
	c.reportSubmission(containerID, m.gen)
}

// Unmount clears the container and cancels every timer and observer of the
// mount. It is safe in any state, including for containers never mounted.
func (c *Controller) Unmount(containerID string) {
	c.release(containerID)
	if container, ok := c.win.Document.ByID(containerID); ok {
		c.win.Document.Clear(container)
	}
	c.logger.Debug("form unmounted", zap.String("container", containerID))
}

// Detach forgets the mount in containerID and cancels its timers but leaves
// the rendered markup in place.
func (c *Controller) Detach(containerID string) {
	c.release(containerID)
}

// Close detaches every mount.
func (c *Controller) Close() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.mounts))
	for id := range c.mounts {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	for _, id := range ids {
		c.release(id)
	}
}

func (c *Controller) release(id string) {
	c.mu.Lock()
	m := c.mounts[id]
	delete(c.mounts, id)
	var cancels []func()
	if m != nil {
		cancels = m.cancels
		m.cancels = nil
	}
	c.mu.Unlock()
	for _, fn := range cancels {
		fn()
	}
}

func (c *Controller) loadScript(id string, gen uint64) {
	if !c.transition(id, gen, StatusIdle, StatusScriptLoading) {
		return
	}
	c.loader.Then(func(p Provider, err error) {
		if err != nil {
			c.fail(id, gen, ErrScriptLoad, err)
			return
		}
		c.create(id, gen, p)
	})
}

func (c *Controller) create(id string, gen uint64, p Provider) {
	if !c.transition(id, gen, StatusScriptLoading, StatusMounting) {
		return
	}
	container, ok := c.win.Document.ByID(id)
	if !ok {
		c.fail(id, gen, ErrContainerMissing, errContainerVanished)
		return
	}
	req, ok := c.request(id, gen)
	if !ok {
		return
	}
	c.win.Document.Clear(container)

	err := p.Create(CreateOptions{
		ProviderConfig: req.Provider,
		Target:         "#" + id,
		OnFormReady:    func() { c.markReady(id, gen) },
		OnFormSubmit:   func() { c.reportSubmission(id, gen) },
		OnFormError:    func(err error) { c.fail(id, gen, ErrProviderReported, err) },
	})
	if err != nil {
		c.fail(id, gen, ErrProviderReported, err)
		return
	}

	switch c.statusOf(id, gen) {
	case StatusMounting, StatusReady:
	default:
		return
	}
	fallback := c.clock.AfterFunc(c.timing.ReadyFallback, func() { c.readyFallback(id, gen) })
	c.track(id, gen, func() { fallback.Stop() })
	c.watchSubmission(id, gen, container)
}

func (c *Controller) readyFallback(id string, gen uint64) {
	if c.statusOf(id, gen) != StatusMounting {
		return
	}
	container, ok := c.win.Document.ByID(id)
	if !ok {
		c.fail(id, gen, ErrContainerMissing, errContainerVanished)
		return
	}
	if hasLiveForm(container) {
		c.logger.Debug("form detected without ready callback", zap.String("container", id))
		c.markReady(id, gen)
	}
}

// abandon fails a mount that is still waiting for its form once the
// submission window has closed.
func (c *Controller) abandon(id string, gen uint64) {
	if c.statusOf(id, gen) != StatusMounting {
		return
	}
	if _, ok := c.win.Document.ByID(id); !ok {
		c.fail(id, gen, ErrContainerMissing, errContainerVanished)
		return
	}
	c.fail(id, gen, ErrProviderReported, errNoForm)
}

// watchSubmission observes the container for the submission window and
// polls as a backstop for changes the observer cannot see. A mount that has
// not reached ready when the window closes fails.
func (c *Controller) watchSubmission(id string, gen uint64, container dom.Element) {
	check := func() bool { return c.checkSubmission(id, gen) }
	disconnect := c.win.Document.Observe(container, func([]dom.MutationRecord) { check() })
	c.track(id, gen, disconnect)
	c.track(id, gen, PollUntil(c.clock, check, c.timing.SubmitPollInterval, c.timing.SubmitWindow, func(bool) {
		disconnect()
		c.abandon(id, gen)
	}))
}

// checkSubmission reports true once there is nothing left to watch.
func (c *Controller) checkSubmission(id string, gen uint64) bool {
	c.mu.Lock()
	m := c.currentLocked(id, gen)
	if m == nil || m.submitted || (m.status != StatusMounting && m.status != StatusReady) {
		c.mu.Unlock()
		return true
	}
	formSeen := m.formSeen
	c.mu.Unlock()

	container, ok := c.win.Document.ByID(id)
	if !ok {
		return false
	}
	forms := container.Find("form")
	if !formSeen {
		if len(forms) == 0 {
			return false
		}
		c.mu.Lock()
		if m := c.currentLocked(id, gen); m != nil {
			m.formSeen = true
		}
		c.mu.Unlock()
	}
	if !looksSubmitted(container, forms) {
		return false
	}
	c.logger.Debug("submission detected in page", zap.String("container", id))
	c.reportSubmission(id, gen)
	return true
}

func (c *Controller) markReady(id string, gen uint64) {
	c.mu.Lock()
	m := c.currentLocked(id, gen)
	if m == nil || m.status != StatusMounting {
		c.mu.Unlock()
		return
	}
	c.setStatusLocked(m, StatusReady)
	onReady := m.req.OnReady
	c.mu.Unlock()
	if onReady != nil {
		onReady()
	}
}

func (c *Controller) reportSubmission(id string, gen uint64) {
	c.markReady(id, gen)

	c.mu.Lock()
	m := c.currentLocked(id, gen)
	if m == nil || m.submitted || m.status != StatusReady {
		c.mu.Unlock()
		return
	}
	m.submitted = true
	c.setStatusLocked(m, StatusSubmitted)
	req := m.req
	cancels := m.cancels
	m.cancels = nil
	c.mu.Unlock()

	for _, fn := range cancels {
		fn()
	}
	c.sink.Push(analytics.Event{
		Event:  analytics.EventFormSubmit,
		FormID: req.Provider.FormID,
		Source: req.Source,
	})
	if c.submissions != nil {
		c.submissions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("source", req.Source)))
	}
	if req.OnSubmit != nil {
		req.OnSubmit()
	}
}

func (c *Controller) fail(id string, gen uint64, kind, cause error) {
	c.mu.Lock()
	m := c.currentLocked(id, gen)
	if m == nil || m.status == StatusError || m.status == StatusSubmitted {
		c.mu.Unlock()
		return
	}
	c.setStatusLocked(m, StatusError)
	m.submitted = false
	m.formSeen = false
	req := m.req
	cancels := m.cancels
	m.cancels = nil
	c.mu.Unlock()

	for _, fn := range cancels {
		fn()
	}
	mErr := &MountError{ContainerID: id, Kind: kind, Err: cause}
	c.logger.Warn("form mount failed", zap.String("container", id), zap.Error(mErr))
	if req.OnError != nil {
		req.OnError(mErr)
	}
}

// track attaches a cancel func to the mount, or runs it at once when the
// mount is already gone.
func (c *Controller) track(id string, gen uint64, cancel func()) {
	c.mu.Lock()
	m := c.currentLocked(id, gen)
	if m == nil || m.status == StatusError || m.status == StatusSubmitted {
		c.mu.Unlock()
		cancel()
		return
	}
	m.cancels = append(m.cancels, cancel)
	c.mu.Unlock()
}

func (c *Controller) transition(id string, gen uint64, from, to Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.currentLocked(id, gen)
	if m == nil || m.status != from {
		return false
	}
	c.setStatusLocked(m, to)
	return true
}

func (c *Controller) statusOf(id string, gen uint64) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m := c.currentLocked(id, gen); m != nil {
		return m.status
	}
	return StatusIdle
}

func (c *Controller) request(id string, gen uint64) (MountRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m := c.currentLocked(id, gen); m != nil {
		return m.req, true
	}
	return MountRequest{}, false
}

func (c *Controller) currentLocked(id string, gen uint64) *mount {
	m := c.mounts[id]
	if m == nil || m.gen != gen {
		return nil
	}
	return m
}

func (c *Controller) setStatusLocked(m *mount, to Status) {
	c.logger.Debug("form state",
		zap.String("container", m.req.ContainerID),
		zap.String("from", string(m.status)),
		zap.String("to", string(to)))
	m.status = to
}
