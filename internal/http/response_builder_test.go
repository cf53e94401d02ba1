package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusAccepted).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger should not be set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerRefreshed("run-1", 42).
		TriggerSuccessNotification("Contributions refreshed").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	expectedParts := []string{
		`"contributions:refreshed"`,
		`"run_id":"run-1"`,
		`"total":42`,
		`"show-notification"`,
		`"type":"success"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_Queued(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().TriggerQueued().Write(w)

	if got := w.Header().Get("HX-Trigger"); got != `{"contributions:queued":{}}` {
		t.Errorf("HX-Trigger = %s", got)
	}
}

func TestHTMXResponseBuilder_Headers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		BodyHTML("<p>ok</p>").
		Write(w)

	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q", got)
	}
	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusServiceUnavailable, "<not ready>").Write(w)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Status code = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "&lt;not ready&gt;") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Errorf("missing error notification: %s", w.Header().Get("HX-Trigger"))
	}
}
