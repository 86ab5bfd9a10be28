package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"finitefield.org/marketing-web/internal/downloads"
	"finitefield.org/marketing-web/internal/i18n"
	"finitefield.org/marketing-web/internal/routes"
)

var testSession = SessionConfig{CookieName: "test_session", SigningKey: []byte("0123456789abcdef0123456789abcdef")}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionRoundTripsPendingDownload(t *testing.T) {
	stack := Session(testSession)

	write := stack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetSession(r).SetPendingDownload(downloads.NewPending("/files/a.pdf", "A", "a", time.Now()))
		http.Redirect(w, r, "/de/danke", http.StatusSeeOther)
	}))
	rec := httptest.NewRecorder()
	write.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/de/downloads/a", nil))
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatal("expected session cookie on redirect")
	}

	var got downloads.Pending
	var ok bool
	read := stack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetSession(r).TakePendingDownload()
		_, _ = w.Write([]byte("thanks"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/de/danke", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	read.ServeHTTP(rec, req)
	if !ok || got.FileURL != "/files/a.pdf" {
		t.Fatalf("expected pending download, got %+v ok=%v", got, ok)
	}
	next := findCookie(rec.Result().Cookies(), "test_session")
	if next == nil {
		t.Fatal("expected rewritten session cookie after take")
	}

	// Taken descriptors are gone on the following request.
	req = httptest.NewRequest(http.MethodGet, "/de/danke", nil)
	req.AddCookie(next)
	read.ServeHTTP(httptest.NewRecorder(), req)
	if ok {
		t.Fatal("expected pending download to be consumed")
	}
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	var id string
	h := Session(testSession)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = GetSession(r).ID
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/de", nil))
	first := id
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil || first == "" {
		t.Fatal("expected new session")
	}

	req := httptest.NewRequest(http.MethodGet, "/de", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if id != first {
		t.Fatal("expected session to be restored from cookie")
	}

	cookie.Value = "x" + cookie.Value
	req = httptest.NewRequest(http.MethodGet, "/de", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if id == first {
		t.Fatal("expected tampered cookie to be ignored")
	}
}

func TestCSRF(t *testing.T) {
	h := Session(testSession)(JSONErrors(CSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/de", nil))
	session := findCookie(rec.Result().Cookies(), "test_session")
	csrf := findCookie(rec.Result().Cookies(), csrfCookieName)
	if session == nil || csrf == nil {
		t.Fatal("expected session and csrf cookies")
	}

	post := func(body string, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/analytics/events", strings.NewReader(body))
		if header != "" {
			req.Header.Set(csrfHeaderName, header)
		}
		if strings.Contains(body, "=") {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		req.AddCookie(session)
		req.AddCookie(csrf)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := post("", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", rec.Code)
	} else {
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] != "invalid_csrf_token" {
			t.Fatalf("expected JSON error envelope, got %q", rec.Body.String())
		}
	}
	if rec := post("", "wrong"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong token, got %d", rec.Code)
	}
	if rec := post("", csrf.Value); rec.Code != http.StatusNoContent {
		t.Fatalf("expected header token accepted, got %d", rec.Code)
	}
	form := url.Values{CSRFFormField: {csrf.Value}}.Encode()
	if rec := post(form, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected form token accepted, got %d", rec.Code)
	}
}

func testBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.LoadFS(fstest.MapFS{
		"de.json": {Data: []byte(`{"nav.home":"Start"}`)},
		"en.json": {Data: []byte(`{"nav.home":"Home"}`)},
	}, "de", []string{"de", "en"})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestLocale(t *testing.T) {
	var got routes.Lang
	h := Locale(testBundle(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LangFrom(r.Context())
	}))

	cases := []struct {
		path, accept, cookie string
		want                 routes.Lang
	}{
		{"/en/pricing", "de-DE", "", routes.English},
		{"/de/preise", "en-US", "en", routes.German},
		{"/maintenance", "en-GB,en;q=0.8", "", routes.English},
		{"/maintenance", "en-GB", "de", routes.German},
		{"/maintenance", "fr-FR", "", routes.German},
		{"/english", "", "", routes.German},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.accept != "" {
			req.Header.Set("Accept-Language", tc.accept)
		}
		if tc.cookie != "" {
			req.AddCookie(&http.Cookie{Name: LangCookie, Value: tc.cookie})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got != tc.want {
			t.Errorf("%s (%s, cookie %q): got %s want %s", tc.path, tc.accept, tc.cookie, got, tc.want)
		}
		if rec.Header().Get("Content-Language") != string(tc.want) {
			t.Errorf("%s: unexpected Content-Language %q", tc.path, rec.Header().Get("Content-Language"))
		}
	}
}

func TestLocaleRemembersLanguage(t *testing.T) {
	h := Locale(testBundle(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/en/contact", nil))
	c := findCookie(rec.Result().Cookies(), LangCookie)
	if c == nil || c.Value != "en" {
		t.Fatalf("expected hl=en cookie, got %+v", c)
	}
}

type fixedMaintenance bool

func (f fixedMaintenance) Maintenance(context.Context) bool { return bool(f) }

func TestMaintenance(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	for path, want := range map[string]int{
		"/de/preise":       http.StatusFound,
		"/":                http.StatusFound,
		"/maintenance":     http.StatusOK,
		"/assets/site.css": http.StatusOK,
		"/healthz":         http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		Maintenance(fixedMaintenance(true))(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("%s: got %d want %d", path, rec.Code, want)
		}
		if want == http.StatusFound && rec.Header().Get("Location") != routes.MaintenancePath {
			t.Errorf("%s: unexpected location %q", path, rec.Header().Get("Location"))
		}
	}

	rec := httptest.NewRecorder()
	Maintenance(fixedMaintenance(false))(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/de", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}

func TestAssetsWithCache(t *testing.T) {
	fsys := fstest.MapFS{"site.css": {Data: []byte("body{}")}}
	h := AssetsWithCache(fsys, "/assets")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/site.css", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	etag := rec.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak etag, got %q", etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/assets/site.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}
}
