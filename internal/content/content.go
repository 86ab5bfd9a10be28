// Package content serves the site's structured content: partners, team,
// events, success stories, use cases, downloads, pricing and blog posts.
// A remote CMS is consulted first when configured; local YAML and markdown
// files under content/<lang>/ are the fallback.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrNotFound reports a missing collection or item.
var ErrNotFound = errors.New("content: not found")

var tracer = otel.Tracer("finitefield.org/marketing-web/internal/content")

// Collection names, matching content/<lang>/<name>.yaml.
const (
	CollectionPartners       = "partners"
	CollectionTeam           = "team"
	CollectionEvents         = "events"
	CollectionSuccessStories = "success-stories"
	CollectionUseCases       = "use-cases"
	CollectionDownloads      = "downloads"
	CollectionPricing        = "pricing"
	collectionBlog           = "blog"
)

// Client loads and caches content.
type Client struct {
	files   fs.FS
	baseURL string
	http    *http.Client
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithRemote enables the remote CMS at baseURL.
func WithRemote(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

// WithHTTPClient overrides the HTTP client used for the remote CMS.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCacheTTL sets the cache lifetime; zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithNow injects the clock.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient reads local content from files (rooted at the content directory).
func NewClient(files fs.FS, opts ...Option) *Client {
	c := &Client{
		files:  files,
		http:   &http.Client{Timeout: 5 * time.Second},
		ttl:    5 * time.Minute,
		now:    time.Now,
		logger: zap.NewNop(),
		cache:  map[string]cacheEntry{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// langOrder is the lookup order for lang: itself, then de, then en.
func langOrder(lang string) []string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	out := []string{}
	for _, l := range []string{lang, "de", "en"} {
		if l == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			dup = dup || seen == l
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out
}

func (c *Client) cached(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (c *Client) store(key string, v any) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.cache[key] = cacheEntry{value: v, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// loadCollection returns the items of a collection for the first language in
// langOrder that has it. Results are cached per requested language.
func loadCollection[T any](ctx context.Context, c *Client, name, lang string) ([]T, error) {
	key := name + "|" + lang
	if v, ok := c.cached(key); ok {
		return v.([]T), nil
	}

	ctx, span := tracer.Start(ctx, "content.load")
	defer span.End()
	span.SetAttributes(attribute.String("content.collection", name), attribute.String("content.lang", lang))

	for _, candidate := range langOrder(lang) {
		items, source, err := fetchCollection[T](ctx, c, name, candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetAttributes(attribute.String("content.source", source), attribute.String("content.resolved_lang", candidate))
		if candidate != lang {
			c.logger.Debug("content language fallback",
				zap.String("collection", name), zap.String("lang", lang), zap.String("used", candidate))
		}
		c.store(key, items)
		return items, nil
	}
	return nil, fmt.Errorf("%s/%s: %w", lang, name, ErrNotFound)
}

func fetchCollection[T any](ctx context.Context, c *Client, name, lang string) ([]T, string, error) {
	if c.baseURL != "" {
		var payload struct {
			Items []T `json:"items"`
		}
		err := c.fetchRemote(ctx, []string{"collections", name}, lang, &payload)
		if err == nil {
			return payload.Items, "remote", nil
		}
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("remote content failed, using local files",
				zap.String("collection", name), zap.String("lang", lang), zap.Error(err))
		}
	}
	items, err := readYAML[T](c.files, lang+"/"+name+".yaml")
	return items, "local", err
}

func readYAML[T any](files fs.FS, path string) ([]T, error) {
	if files == nil {
		return nil, ErrNotFound
	}
	raw, err := fs.ReadFile(files, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	var items []T
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("content: parse %s: %w", path, err)
	}
	return items, nil
}

func (c *Client) fetchRemote(ctx context.Context, segments []string, lang string, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+url.Values{"lang": {lang}}.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("content: remote status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out)
}
