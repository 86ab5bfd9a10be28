package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"finitefield.org/marketing-web/internal/requestctx"
)

func TestWriteAPIErrorEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/events", nil)
	req = req.WithContext(requestctx.WithTrace(req.Context(), requestctx.TraceInfo{TraceID: "trace-1"}))
	rec := httptest.NewRecorder()

	base := NewAPIError(http.StatusUnprocessableEntity, "unsupported_event", "event\nis not accepted")
	WriteAPIError(rec, req, base.WithDetail("event", "purchase"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body struct {
		Error     string            `json:"error"`
		Message   string            `json:"message"`
		Status    int               `json:"status"`
		Details   map[string]string `json:"details"`
		TraceID   string            `json:"trace_id"`
		RequestID *string           `json:"request_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "unsupported_event" || body.Message != "event is not accepted" || body.Status != 422 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Details["event"] != "purchase" || body.TraceID != "trace-1" {
		t.Fatalf("missing details or trace id: %+v", body)
	}
	if body.RequestID != nil {
		t.Fatalf("unexpected request_id without a chi request id: %q", *body.RequestID)
	}
	if base.Details != nil {
		t.Fatal("WithDetail must not modify the receiver")
	}
}

func TestNewAPIErrorDefaultsStatus(t *testing.T) {
	if got := NewAPIError(0, "x", "y").Status; got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}
