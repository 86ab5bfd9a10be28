package downloads

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsignable is returned when a gs:// location is resolved without a signer.
var ErrUnsignable = errors.New("downloads: storage location requires a signer")

// URLResolver turns a descriptor file location into a URL a browser can fetch.
type URLResolver interface {
	ResolveURL(ctx context.Context, location string) (string, error)
}

// ParseGSURL splits gs://bucket/object. ok is false for anything else.
func ParseGSURL(location string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(location), "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || strings.Trim(object, "/") == "" {
		return "", "", false
	}
	return bucket, object, true
}

// StaticResolver passes through http(s) URLs and site-relative paths.
type StaticResolver struct{}

// ResolveURL implements URLResolver.
func (StaticResolver) ResolveURL(_ context.Context, location string) (string, error) {
	return passthrough(location)
}

func passthrough(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.New("downloads: empty location")
	}
	if _, _, ok := ParseGSURL(location); ok {
		return "", ErrUnsignable
	}
	if strings.HasPrefix(location, "/") && !strings.HasPrefix(location, "//") {
		return location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("downloads: parse location: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("downloads: unsupported location %q", location)
	}
	return u.String(), nil
}
