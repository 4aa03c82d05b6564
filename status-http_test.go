//go:build !tinygo

package ttgo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusEndpoint(t *testing.T) {
	n := newTestNode(t, Config{})
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	n.OnEvent(EventTxComplete)

	srv := httptest.NewServer(NewStatusServer(n.Node, &nopLogger{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["state"] != "idle" || body["counter"] != float64(1) || body["rssi"] != float64(39) {
		t.Errorf("Unexpected status %v", body)
	}
	if body["lastEvent"] != "tx complete" {
		t.Errorf("Expected last event, got %v", body["lastEvent"])
	}
}

func TestSendEndpoint(t *testing.T) {
	n := newTestNode(t, Config{})
	h := NewStatusServer(n.Node, &nopLogger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	if len(n.engine.payloads) != 1 {
		t.Errorf("Expected one uplink, got %d", len(n.engine.payloads))
	}

	// exchange still in flight
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
	if len(n.engine.payloads) != 1 {
		t.Errorf("Expected the busy uplink to be skipped, got %d", len(n.engine.payloads))
	}
}

func TestStatusEndpointCORS(t *testing.T) {
	n := newTestNode(t, Config{})
	h := NewStatusServer(n.Node, &nopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected CORS header, got %q", got)
	}
}
