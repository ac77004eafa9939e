package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jacobtread/rme3/pkg/adapter/blaze"
	"github.com/jacobtread/rme3/pkg/api"
	"github.com/jacobtread/rme3/pkg/apiclient"
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

func newAPI(t *testing.T, fb *fakeBlaze) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(api.NewRouter(fb))
	t.Cleanup(srv.Close)
	return apiclient.New(srv.URL)
}

func closedAPI() *apiclient.Client {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return apiclient.New(url).WithTimeout(time.Second)
}

// ============================================================================
// Status Tests
// ============================================================================

func TestFetchStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Ready", func(t *testing.T) {
		fb := &fakeBlaze{ready: true, sessions: []blaze.SessionInfo{{ID: "a"}, {ID: "b"}}}
		status := fetchStatus(ctx, newAPI(t, fb))
		assert.True(t, status.Running)
		assert.True(t, status.Ready)
		assert.Equal(t, "127.0.0.1:14219", status.ListenAddr)
		assert.Equal(t, int32(2), status.ActiveConnections)
		assert.NotEmpty(t, status.StartedAt)
	})

	t.Run("NotReady", func(t *testing.T) {
		status := fetchStatus(ctx, newAPI(t, &fakeBlaze{}))
		assert.True(t, status.Running)
		assert.False(t, status.Ready)
		assert.Contains(t, status.Message, "not accepting connections")
	})

	t.Run("Unreachable", func(t *testing.T) {
		status := fetchStatus(ctx, closedAPI())
		assert.False(t, status.Running)
		assert.Equal(t, "Server is not running", status.Message)
	})
}

func TestServerStatus_RenderText(t *testing.T) {
	var buf bytes.Buffer
	s := ServerStatus{
		Running:           true,
		Ready:             true,
		Message:           "Server is running and accepting Blaze connections",
		StartedAt:         "2024-01-15T10:30:00Z",
		UptimeSec:         3725,
		ListenAddr:        "0.0.0.0:14219",
		ActiveConnections: 3,
	}
	require.NoError(t, s.RenderText(&buf))

	out := buf.String()
	assert.Contains(t, out, "Running")
	assert.Contains(t, out, "0.0.0.0:14219")
	assert.Contains(t, out, "accepting Blaze connections")

	buf.Reset()
	require.NoError(t, ServerStatus{Message: "Server is not running"}.RenderText(&buf))
	assert.Contains(t, buf.String(), "Stopped")
	assert.NotContains(t, buf.String(), "Listening")
}

// ============================================================================
// Sessions Tests
// ============================================================================

func TestFetchSessions(t *testing.T) {
	connected := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)

	fb := &fakeBlaze{ready: true, sessions: []blaze.SessionInfo{{
		ID:          "7f3c",
		RemoteAddr:  "10.0.0.5:50123",
		ConnectedAt: connected,
		PacketsIn:   12,
		PacketsOut:  11,
		BytesIn:     4096,
	}}}
	client := newAPI(t, fb)

	sessions, err := fetchSessions(context.Background(), client, nil)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "7f3c", sessions[0].ID)
	assert.Equal(t, uint64(12), sessions[0].PacketsIn)
	assert.True(t, connected.Equal(sessions[0].ConnectedAt))

	rows := sessions.Rows()
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(sessions.Headers()))
	assert.Equal(t, "10.0.0.5:50123", rows[0][1])
	assert.Equal(t, "-", rows[0][3])
	assert.Equal(t, "4096", rows[0][6])

	one, err := fetchSessions(context.Background(), client, []string{"7f3c"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "7f3c", one[0].ID)

	_, err = fetchSessions(context.Background(), client, []string{"missing"})
	apiErr, ok := apiclient.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
}

func TestFetchSessions_Unreachable(t *testing.T) {
	_, err := fetchSessions(context.Background(), closedAPI(), nil)
	assert.Error(t, err)
}
