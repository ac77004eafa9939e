package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jacobtread/rme3/internal/cli/output"
	"github.com/jacobtread/rme3/internal/cli/timeutil"
	"github.com/jacobtread/rme3/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	statusOutput string
	statusAPIURL string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of a running rme3 server.

The server is queried through its HTTP API (/health and /health/ready).

Examples:
  # Check status of a local server
  rme3 status

  # Check a server with the API on another port
  rme3 status --api http://127.0.0.1:9080

  # Output as JSON
  rme3 status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAPIURL, "api", "http://127.0.0.1:8080", "Base URL of the rme3 API")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus is the combined liveness and readiness view.
type ServerStatus struct {
	Running           bool   `json:"running" yaml:"running"`
	Ready             bool   `json:"ready" yaml:"ready"`
	Message           string `json:"message" yaml:"message"`
	StartedAt         string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	UptimeSec         int64  `json:"uptime_sec,omitempty" yaml:"uptime_sec,omitempty"`
	ListenAddr        string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	ActiveConnections int32  `json:"active_connections" yaml:"active_connections"`
}

// RenderText implements output.Document.
func (s ServerStatus) RenderText(w io.Writer) error {
	state := "Stopped"
	switch {
	case s.Running && s.Ready:
		state = "Running"
	case s.Running:
		state = "Running (not ready)"
	}

	pairs := [][2]string{{"Status", state}}
	if s.Running {
		pairs = append(pairs,
			[2]string{"Started", timeutil.FormatTimestamp(s.StartedAt)},
			[2]string{"Uptime", timeutil.FormatUptime(time.Duration(s.UptimeSec) * time.Second)},
		)
	}
	if s.Ready {
		pairs = append(pairs,
			[2]string{"Listening", s.ListenAddr},
			[2]string{"Connections", fmt.Sprintf("%d", s.ActiveConnections)},
		)
	}

	if err := output.KeyValueTable(w, pairs); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", s.Message)
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	client := apiclient.New(statusAPIURL).WithTimeout(2 * time.Second)
	status := fetchStatus(cmd.Context(), client)
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(status)
}

// fetchStatus never fails; an unreachable server is reported as stopped.
func fetchStatus(ctx context.Context, client *apiclient.Client) ServerStatus {
	status := ServerStatus{Message: "Server is not running"}
	if ctx == nil {
		ctx = context.Background()
	}

	live, err := client.Health(ctx)
	if err != nil {
		return status
	}
	status.Running = true
	status.StartedAt = live.StartedAt
	status.UptimeSec = live.UptimeSec

	ready, err := client.Ready(ctx)
	if err != nil {
		if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.IsUnavailable() {
			status.Message = fmt.Sprintf("Server is running but not ready: %s", apiErr.Message)
		} else {
			status.Message = fmt.Sprintf("Server is running but readiness check failed: %v", err)
		}
		return status
	}

	status.Ready = true
	status.ListenAddr = ready.ListenAddr
	status.ActiveConnections = ready.ActiveConnections
	status.Message = "Server is running and accepting Blaze connections"
	return status
}
