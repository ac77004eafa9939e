package apiclient

import "context"

// Liveness is the payload of GET /health.
type Liveness struct {
	Service   string `json:"service" yaml:"service"`
	StartedAt string `json:"started_at" yaml:"started_at"`
	Uptime    string `json:"uptime" yaml:"uptime"`
	UptimeSec int64  `json:"uptime_sec" yaml:"uptime_sec"`
}

// Readiness is the payload of GET /health/ready.
type Readiness struct {
	ListenAddr        string `json:"listen_addr" yaml:"listen_addr"`
	ActiveConnections int32  `json:"active_connections" yaml:"active_connections"`
}

// Health queries the liveness probe.
func (c *Client) Health(ctx context.Context) (*Liveness, error) {
	return getResource[Liveness](ctx, c, "/health")
}

// Ready queries the readiness probe. A server that is up but not accepting
// Blaze connections returns an *APIError for which IsUnavailable is true.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	return getResource[Readiness](ctx, c, "/health/ready")
}
