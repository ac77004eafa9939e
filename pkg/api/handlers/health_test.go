package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jacobtread/rme3/pkg/adapter/blaze"
)

type stubServer struct {
	ready    bool
	sessions []blaze.SessionInfo
}

func (s *stubServer) Ready() bool                   { return s.ready }
func (s *stubServer) GetActiveConnections() int32   { return int32(len(s.sessions)) }
func (s *stubServer) GetListenerAddr() string       { return "0.0.0.0:14219" }
func (s *stubServer) Sessions() []blaze.SessionInfo { return s.sessions }

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestLiveness_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil)
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decode(t, w)
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", resp.Status)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected Data to be a map, got %T", resp.Data)
	}

	if data["service"] != "rme3" {
		t.Errorf("Expected service 'rme3', got '%s'", data["service"])
	}
	if _, err := time.Parse(time.RFC3339, data["started_at"].(string)); err != nil {
		t.Errorf("Expected RFC3339 started_at, got %v", data["started_at"])
	}
}

func TestReadiness_NoServer_Returns503(t *testing.T) {
	handler := NewHealthHandler(nil)
	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	resp := decode(t, w)
	if resp.Status != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got '%s'", resp.Status)
	}
	if resp.Error == "" {
		t.Error("Expected an error message")
	}
}

func TestReadiness_NotListening_Returns503(t *testing.T) {
	handler := NewHealthHandler(&stubServer{})
	w := httptest.NewRecorder()

	handler.Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestReadiness_Listening_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(&stubServer{
		ready:    true,
		sessions: []blaze.SessionInfo{{ID: "a"}},
	})
	w := httptest.NewRecorder()

	handler.Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	data, ok := decode(t, w).Data.(map[string]interface{})
	if !ok {
		t.Fatal("Expected Data to be a map")
	}
	if data["listen_addr"] != "0.0.0.0:14219" {
		t.Errorf("Expected listen_addr '0.0.0.0:14219', got '%v'", data["listen_addr"])
	}
	if data["active_connections"] != float64(1) {
		t.Errorf("Expected 1 active connection, got %v", data["active_connections"])
	}
}

func TestSessions_List(t *testing.T) {
	handler := NewSessionHandler(&stubServer{sessions: []blaze.SessionInfo{
		{ID: "a", RemoteAddr: "10.0.0.1:5000"},
		{ID: "b", RemoteAddr: "10.0.0.2:5000"},
	}})
	w := httptest.NewRecorder()

	handler.List(w, httptest.NewRequest("GET", "/api/v1/sessions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decode(t, w)
	if resp.Status != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", resp.Status)
	}
	data := resp.Data.(map[string]interface{})
	if data["count"] != float64(2) {
		t.Errorf("Expected count 2, got %v", data["count"])
	}
	if sessions := data["sessions"].([]interface{}); len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(sessions))
	}
}

func TestSessions_Get(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/sessions/{id}", NewSessionHandler(&stubServer{sessions: []blaze.SessionInfo{
		{ID: "a", RemoteAddr: "10.0.0.1:5000"},
	}}).Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sessions/a", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if data := decode(t, w).Data.(map[string]interface{}); data["remote_addr"] != "10.0.0.1:5000" {
		t.Errorf("Expected remote_addr '10.0.0.1:5000', got '%v'", data["remote_addr"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sessions/zzz", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if resp := decode(t, w); resp.Status != "error" {
		t.Errorf("Expected status 'error', got '%s'", resp.Status)
	}
}
