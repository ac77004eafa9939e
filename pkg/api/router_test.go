package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jacobtread/rme3/pkg/adapter/blaze"
	"github.com/jacobtread/rme3/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlaze struct {
	ready    bool
	sessions []blaze.SessionInfo
}

func (f *fakeBlaze) Ready() bool                   { return f.ready }
func (f *fakeBlaze) GetActiveConnections() int32   { return int32(len(f.sessions)) }
func (f *fakeBlaze) GetListenerAddr() string       { return "127.0.0.1:14219" }
func (f *fakeBlaze) Sessions() []blaze.SessionInfo { return f.sessions }

type envelope struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	Error  string         `json:"error"`
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

// ============================================================================
// Health Tests
// ============================================================================

func TestHealth(t *testing.T) {
	fb := &fakeBlaze{}
	r := NewRouter(fb)

	t.Run("Liveness", func(t *testing.T) {
		rec, env := get(t, r, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", env.Status)
		assert.Equal(t, "rme3", env.Data["service"])
	})

	t.Run("NotReady", func(t *testing.T) {
		rec, env := get(t, r, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy", env.Status)
	})

	t.Run("Ready", func(t *testing.T) {
		fb.ready = true
		rec, env := get(t, r, "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "127.0.0.1:14219", env.Data["listen_addr"])
	})

	t.Run("NoServer", func(t *testing.T) {
		rec, _ := get(t, NewRouter(nil), "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("RootRedirects", func(t *testing.T) {
		rec, _ := get(t, r, "/")
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "/health", rec.Header().Get("Location"))
	})
}

// ============================================================================
// Session Tests
// ============================================================================

func TestSessions(t *testing.T) {
	fb := &fakeBlaze{sessions: []blaze.SessionInfo{
		{ID: "a", RemoteAddr: "10.0.0.1:1", ConnectedAt: time.Unix(100, 0), PacketsIn: 3},
		{ID: "b", RemoteAddr: "10.0.0.2:1", ConnectedAt: time.Unix(200, 0)},
	}}
	r := NewRouter(fb)

	rec, env := get(t, r, "/api/v1/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), env.Data["count"])
	list := env.Data["sessions"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].(map[string]any)["id"])
	assert.Equal(t, float64(3), list[0].(map[string]any)["packets_in"])

	rec, env = get(t, r, "/api/v1/sessions/b")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.2:1", env.Data["remote_addr"])

	rec, env = get(t, r, "/api/v1/sessions/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", env.Status)
}

// ============================================================================
// Metrics Tests
// ============================================================================

func TestMetricsRoute(t *testing.T) {
	metrics.Disable()
	rec, _ := get(t, NewRouter(&fakeBlaze{}), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	metrics.InitRegistry()
	t.Cleanup(metrics.Disable)

	rec, _ = get(t, NewRouter(&fakeBlaze{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// ============================================================================
// Server Tests
// ============================================================================

func TestServerLifecycle(t *testing.T) {
	s := NewServer(APIConfig{BindAddress: "127.0.0.1", Port: 0}, &fakeBlaze{ready: true})
	// Port 0 is replaced by the default; bind an ephemeral port instead.
	s.server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	addr := s.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/health/ready")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-errCh)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestAPIConfigDefaults(t *testing.T) {
	var c APIConfig
	c.ApplyDefaults()
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, 10*time.Second, c.ReadTimeout)
	assert.Equal(t, 10*time.Second, c.WriteTimeout)
	assert.Equal(t, 60*time.Second, c.IdleTimeout)
}
