package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/downloads"
)

const defaultSessionCookie = "FF_SITE_SESSION"

// SessionData is the state carried in the signed session cookie.
type SessionData struct {
	ID              string             `json:"id"`
	CSRFToken       string             `json:"csrf,omitempty"`
	PendingDownload *downloads.Pending `json:"dl,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`

	dirty bool
}

// MarkDirty flags the session for writing at end of request.
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// SetPendingDownload stores p, replacing any previous one.
func (s *SessionData) SetPendingDownload(p downloads.Pending) {
	s.PendingDownload = &p
	s.MarkDirty()
}

// TakePendingDownload returns and removes the pending download.
func (s *SessionData) TakePendingDownload() (downloads.Pending, bool) {
	if s.PendingDownload == nil {
		return downloads.Pending{}, false
	}
	p := *s.PendingDownload
	s.PendingDownload = nil
	s.MarkDirty()
	return p, true
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string
	SigningKey []byte
	Secure     bool
	MaxAge     time.Duration
	Logger     *zap.Logger
}

type sessionCodec struct {
	name   string
	key    []byte
	secure bool
	maxAge time.Duration
}

// Session loads or initialises the session and writes the cookie back when it
// changed, just before the response starts. An empty signing key gets a
// process-ephemeral one.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	codec := &sessionCodec{
		name:   strings.TrimSpace(cfg.CookieName),
		key:    cfg.SigningKey,
		secure: cfg.Secure,
		maxAge: cfg.MaxAge,
	}
	if codec.name == "" {
		codec.name = defaultSessionCookie
	}
	if codec.maxAge <= 0 {
		codec.maxAge = 30 * 24 * time.Hour
	}
	if len(codec.key) == 0 {
		codec.key = make([]byte, 32)
		_, _ = rand.Read(codec.key)
		logger.Warn("session: using ephemeral signing key; set SITE_SESSION_SIGNING_KEY in production")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sd, fromCookie := codec.read(r)
			if sd.ID == "" {
				sd.ID = randID()
				sd.CreatedAt = time.Now().UTC()
				sd.UpdatedAt = sd.CreatedAt
				sd.CSRFToken = newCSRFToken()
				sd.dirty = true
			}
			rw := NewResponseRecorder(w)
			rw.SetBeforeWrite(func(w http.ResponseWriter) {
				if sd.dirty || !fromCookie {
					codec.write(w, sd)
				}
			})
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), ctxKeySession, sd)))
			if !rw.Wrote() && (sd.dirty || !fromCookie) {
				codec.write(w, sd)
			}
		})
	}
}

// GetSession returns the request session. Without the Session middleware it
// returns a detached empty session.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(ctxKeySession).(*SessionData); ok && sd != nil {
		return sd
	}
	return &SessionData{}
}

func (c *sessionCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func (c *sessionCodec) read(r *http.Request) (*SessionData, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return &SessionData{}, false
	}
	payloadPart, sigPart, ok := strings.Cut(cookie.Value, ".")
	if !ok {
		return &SessionData{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return &SessionData{}, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(sig, c.sign(payload)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (c *sessionCodec) write(w http.ResponseWriter, sd *SessionData) {
	payload, _ := json.Marshal(sd)
	value := base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(c.sign(payload))
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.maxAge / time.Second),
	})
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
