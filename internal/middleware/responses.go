package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"finitefield.org/marketing-web/internal/requestctx"
)

// JSONErrors marks /api requests and clients that accept JSON, so middleware
// errors are written as the JSON envelope instead of plain text.
func JSONErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is := strings.HasPrefix(r.URL.Path, "/api/") ||
			strings.Contains(r.Header.Get("Accept"), "application/json")
		next.ServeHTTP(w, r.WithContext(WithWantsJSON(r.Context(), is)))
	})
}

// APIError is the JSON error body of the site's endpoints.
type APIError struct {
	Code      string         `json:"error"`
	Message   string         `json:"message"`
	Status    int            `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
}

// NewAPIError builds an error with a machine readable code. A zero status
// means 500.
func NewAPIError(status int, code, message string) APIError {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return APIError{Code: code, Message: message, Status: status}
}

// WithDetail returns a copy of e carrying key.
func (e APIError) WithDetail(key string, value any) APIError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// WriteAPIError writes e, filling the request and trace ids from r.
func WriteAPIError(w http.ResponseWriter, r *http.Request, e APIError) {
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	e.Code = oneLine(e.Code, 80)
	e.Message = oneLine(e.Message, 512)
	if e.RequestID == "" {
		e.RequestID = oneLine(chimw.GetReqID(r.Context()), 80)
	}
	if e.TraceID == "" {
		e.TraceID = oneLine(requestctx.TraceID(r.Context()), 64)
	}
	WriteJSON(w, e.Status, e)
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, errCode, msg string) {
	if WantsJSON(r.Context()) {
		WriteAPIError(w, r, NewAPIError(code, errCode, msg))
		return
	}
	http.Error(w, msg, code)
}

func oneLine(s string, limit int) string {
	s = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(s))
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
