package formembed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/marketing-web/internal/clock"
	"finitefield.org/marketing-web/internal/dom"
)

var noopProvider = ProviderFunc(func(CreateOptions) error { return nil })

func failingFetcher(t *testing.T) Fetcher {
	return FetcherFunc(func(context.Context, string, func([]byte, error)) {
		t.Fatal("unexpected fetch")
	})
}

// settled reports the loader outcome if it is already known.
func settled(s *SharedScript) (p Provider, err error, ok bool) {
	s.Then(func(gotP Provider, gotErr error) {
		p, err, ok = gotP, gotErr, true
	})
	return p, err, ok
}

func TestSharedScriptUsesExistingGlobal(t *testing.T) {
	win := dom.NewWindow(nil)
	win.SetGlobal(testGlobal, noopProvider)
	s := NewSharedScript(win, testScriptSrc, testGlobal, WithFetcher(failingFetcher(t)))

	p, err, ok := settled(s)
	require.True(t, ok)
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Empty(t, win.Document.Query("script"))
	assert.Zero(t, s.Fetches())
}

func TestSharedScriptAttachesToPendingTag(t *testing.T) {
	doc, err := dom.ParseString(`<html><head><script src="` + testScriptSrc + `" async></script></head><body></body></html>`)
	require.NoError(t, err)
	win := dom.NewWindow(doc)
	clk := clock.NewFake(time.Unix(0, 0))
	s := NewSharedScript(win, testScriptSrc, testGlobal, WithFetcher(failingFetcher(t)), WithScriptClock(clk))

	_, _, ok := settled(s)
	require.False(t, ok)

	tag, found := win.FindScript(testScriptSrc)
	require.True(t, found)
	win.SetGlobal(testGlobal, noopProvider)
	win.DispatchScriptLoad(tag)

	_, err, ok = settled(s)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Len(t, doc.Query("script"), 1)
	assert.Zero(t, clk.Pending())
}

func TestSharedScriptPollsWhenLoadEventWasMissed(t *testing.T) {
	doc, err := dom.ParseString(`<html><head><script src="` + testScriptSrc + `"></script></head><body></body></html>`)
	require.NoError(t, err)
	win := dom.NewWindow(doc)
	clk := clock.NewFake(time.Unix(0, 0))
	s := NewSharedScript(win, testScriptSrc, testGlobal, WithFetcher(failingFetcher(t)), WithScriptClock(clk))

	_, _, ok := settled(s)
	require.False(t, ok)

	// the tag finished loading before anyone listened
	win.SetGlobal(testGlobal, noopProvider)
	clk.Advance(100 * time.Millisecond)

	_, err, ok = settled(s)
	require.True(t, ok)
	assert.NoError(t, err)
}

func TestSharedScriptPendingTagTimesOut(t *testing.T) {
	doc, err := dom.ParseString(`<html><head><script src="` + testScriptSrc + `"></script></head><body></body></html>`)
	require.NoError(t, err)
	win := dom.NewWindow(doc)
	clk := clock.NewFake(time.Unix(0, 0))
	s := NewSharedScript(win, testScriptSrc, testGlobal, WithFetcher(failingFetcher(t)), WithScriptClock(clk))

	settled(s)
	clk.Advance(9900 * time.Millisecond)
	_, _, ok := settled(s)
	require.False(t, ok)

	clk.Advance(100 * time.Millisecond)
	_, err, ok = settled(s)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrScriptLoad)
	assert.Zero(t, clk.Pending())
}

func TestSharedScriptPendingTagError(t *testing.T) {
	doc, err := dom.ParseString(`<html><head><script src="` + testScriptSrc + `"></script></head><body></body></html>`)
	require.NoError(t, err)
	win := dom.NewWindow(doc)
	clk := clock.NewFake(time.Unix(0, 0))
	s := NewSharedScript(win, testScriptSrc, testGlobal, WithFetcher(failingFetcher(t)), WithScriptClock(clk))

	settled(s)
	tag, _ := win.FindScript(testScriptSrc)
	win.DispatchScriptError(tag, errors.New("net::ERR_BLOCKED_BY_CLIENT"))

	_, err, ok := settled(s)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrScriptLoad)
	assert.Contains(t, err.Error(), "ERR_BLOCKED_BY_CLIENT")
}

func TestSharedScriptFetchFailureMarksTag(t *testing.T) {
	win := dom.NewWindow(nil)
	fetcher := FetcherFunc(func(_ context.Context, _ string, done func([]byte, error)) {
		done(nil, errors.New("dns failure"))
	})
	s := NewSharedScript(win, testScriptSrc, testGlobal, WithFetcher(fetcher), WithScriptClock(clock.NewFake(time.Unix(0, 0))))

	_, err, ok := settled(s)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrScriptLoad)

	tag, found := win.FindScript(testScriptSrc)
	require.True(t, found)
	assert.Equal(t, dom.ScriptFailed, win.ScriptState(tag))
	assert.Equal(t, 1, s.Fetches())
}

func TestSharedScriptInstallWithoutGlobalFails(t *testing.T) {
	win := dom.NewWindow(nil)
	fetcher := FetcherFunc(func(_ context.Context, _ string, done func([]byte, error)) {
		done([]byte("console.log('nothing')"), nil)
	})
	install := func(*dom.Window, []byte) error { return nil }
	s := NewSharedScript(win, testScriptSrc, testGlobal, WithFetcher(fetcher), WithInstaller(install),
		WithScriptClock(clock.NewFake(time.Unix(0, 0))))

	_, err, ok := settled(s)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrScriptLoad)
	assert.Contains(t, err.Error(), testGlobal)
}

func TestSharedScriptLoadOverHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("window.hbspt = {}"))
	}))
	defer srv.Close()

	win := dom.NewWindow(nil)
	s := NewSharedScript(win, srv.URL+"/v2.js", testGlobal,
		WithFetcher(HTTPFetcher{Client: srv.Client()}),
		WithInstaller(InstallProvider(testGlobal, noopProvider)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := s.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = s.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.EqualValues(t, 1, hits.Load())
	assert.Equal(t, 1, s.Fetches())
}

func TestHTTPFetcherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	s := NewSharedScript(dom.NewWindow(nil), srv.URL+"/v2.js", testGlobal,
		WithFetcher(HTTPFetcher{Client: srv.Client()}),
		WithInstaller(InstallProvider(testGlobal, noopProvider)),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrScriptLoad)
	assert.Contains(t, err.Error(), "410")
}
