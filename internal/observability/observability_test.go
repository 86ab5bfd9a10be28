package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/marketing-web/internal/requestctx"
)

func TestParseCloudTraceContext(t *testing.T) {
	info, sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	if !ok {
		t.Fatal("expected header to parse")
	}
	if info.TraceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("unexpected trace id %q", info.TraceID)
	}
	if info.SpanID != "0000000000000001" {
		t.Fatalf("unexpected span id %q", info.SpanID)
	}
	if !info.Sampled || !sc.IsSampled() || !sc.IsRemote() {
		t.Fatalf("expected sampled remote span context, got %+v", sc)
	}
}

func TestParseCloudTraceContextRejectsGarbage(t *testing.T) {
	for _, header := range []string{"", "abc", "short/1", "105445aa7843bc8bf206b12000100000/", "105445aa7843bc8bf206b12000100000/0"} {
		if _, _, ok := parseCloudTraceContext(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestTraceMiddlewareEchoesHeader(t *testing.T) {
	var got requestctx.TraceInfo
	h := TraceMiddleware("proj")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/de", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/42;o=1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got.TraceID != "105445aa7843bc8bf206b12000100000" || got.ProjectID != "proj" {
		t.Fatalf("unexpected trace info %+v", got)
	}
	if !strings.HasPrefix(rec.Header().Get(cloudTraceHeader), got.TraceID+"/") {
		t.Fatalf("expected trace header echoed, got %q", rec.Header().Get(cloudTraceHeader))
	}
}

func TestRequestLoggerLogsCompletion(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := chi.NewRouter()
	r.Use(InjectLogger(zap.New(core)), RequestLogger())
	r.Get("/de/blog/{slug}", func(w http.ResponseWriter, r *http.Request) {
		requestctx.Logger(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/de/blog/hello", nil))

	inside := logs.FilterMessage("inside").All()
	if len(inside) != 1 || inside[0].ContextMap()["path"] != "/de/blog/hello" {
		t.Fatalf("expected request fields on handler logger, got %+v", inside)
	}
	done := logs.FilterMessage("request completed").All()
	if len(done) != 1 {
		t.Fatalf("expected one completion entry, got %d", len(done))
	}
	fields := done[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["route"] != "/de/blog/{slug}" || fields["bytes"] != int64(2) {
		t.Fatalf("unexpected fields %v", fields)
	}
	if done[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for 4xx, got %v", done[0].Level)
	}
}

func TestRecoveryWritesFallback(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Recovery(zap.New(core), func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oops page"))
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "oops page" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatal("expected panic to be logged")
	}
}

func TestSanitizeRoute(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"control characters", "/de\n/x\x00", "/de/x"},
		{"empty", "", "/"},
		{"query dropped", "/en/contact?email=a@example.com", "/en/contact"},
		{"fragment dropped", "/de/preise#faq", "/de/preise"},
		{"only query", "?x=1", "/"},
		{"pattern kept", "/{lang}/success-story/{companyName}", "/{lang}/success-story/{companyName}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeRoute(tc.in); got != tc.want {
				t.Fatalf("SanitizeRoute(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
	if got := SanitizeRoute("/" + strings.Repeat("ä", 300)); len([]rune(got)) != routeLimit {
		t.Fatalf("expected %d runes, got %d", routeLimit, len([]rune(got)))
	}
}

func TestSanitizeMethodAndValue(t *testing.T) {
	if got := SanitizeMethod("getgetgetgetget"); got != "GETGETGETG" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeValue("  cta_click\r\n "); got != "cta_click" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeValue(strings.Repeat("x", 100)); len(got) != valueLimit {
		t.Fatalf("expected value capped at %d, got %d", valueLimit, len(got))
	}
}

func TestNewLoggerFallsBackOnInvalidLevel(t *testing.T) {
	logger, err := newLogger("chatty", []string{"stderr"})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected info level")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info enabled")
	}
}
