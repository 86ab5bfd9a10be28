// Package downloads handles gated file delivery: the pending-download
// descriptor carried from the download form to the thank-you page, and the
// resolution of file locations into fetchable URLs.
package downloads

import (
	"errors"
	"strings"
	"time"
)

// DefaultMaxAge bounds how long a pending download stays claimable.
const DefaultMaxAge = 10 * time.Minute

// ErrExpired reports a pending download older than its max age.
var ErrExpired = errors.New("downloads: pending download expired")

// Pending is the descriptor written before redirecting to the thank-you page
// and consumed there exactly once. Timestamp is in Unix milliseconds.
type Pending struct {
	FileURL   string `json:"fileUrl"`
	Title     string `json:"title"`
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewPending stamps a descriptor with now.
func NewPending(fileURL, title, id string, now time.Time) Pending {
	return Pending{
		FileURL:   strings.TrimSpace(fileURL),
		Title:     strings.TrimSpace(title),
		ID:        strings.TrimSpace(id),
		Timestamp: now.UnixMilli(),
	}
}

// CreatedAt returns the descriptor timestamp as time.
func (p Pending) CreatedAt() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// Check validates p against now. maxAge <= 0 means DefaultMaxAge.
func (p Pending) Check(now time.Time, maxAge time.Duration) error {
	if p.FileURL == "" {
		return errors.New("downloads: pending download has no file")
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now.Sub(p.CreatedAt()) > maxAge {
		return ErrExpired
	}
	return nil
}
