package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/jacobtread/rme3/internal/cli/output"
	"github.com/jacobtread/rme3/internal/cli/timeutil"
	"github.com/jacobtread/rme3/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	sessionsOutput string
	sessionsAPIURL string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [id]",
	Short: "List connected Blaze sessions",
	Long: `List the Blaze sessions of a running rme3 server, or show one session
when an ID is given.

Examples:
  rme3 sessions
  rme3 sessions --output yaml
  rme3 sessions 7f3c2a10-9c4e-4d0b-8f5e-2b1d6c0a9e11`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsAPIURL, "api", "http://127.0.0.1:8080", "Base URL of the rme3 API")
	sessionsCmd.Flags().StringVarP(&sessionsOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// SessionList renders sessions as a table.
type SessionList []apiclient.Session

func (l SessionList) Headers() []string {
	return []string{"ID", "Remote", "Connected", "Last Packet", "Packets In", "Packets Out", "Bytes In", "Bytes Out", "Errors"}
}

func (l SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		last := "-"
		if s.LastPacketAt != nil {
			last = timeutil.FormatUptime(time.Since(*s.LastPacketAt)) + " ago"
		}
		rows = append(rows, []string{
			s.ID,
			s.RemoteAddr,
			timeutil.FormatUptime(time.Since(s.ConnectedAt)) + " ago",
			last,
			strconv.FormatUint(s.PacketsIn, 10),
			strconv.FormatUint(s.PacketsOut, 10),
			strconv.FormatUint(s.BytesIn, 10),
			strconv.FormatUint(s.BytesOut, 10),
			strconv.FormatUint(s.DecodeErrors, 10),
		})
	}
	return rows
}

func runSessions(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(sessionsOutput)
	if err != nil {
		return err
	}

	client := apiclient.New(sessionsAPIURL)
	sessions, err := fetchSessions(cmd.Context(), client, args)
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(sessions)
}

// fetchSessions lists every session, or only the one named in args.
func fetchSessions(ctx context.Context, client *apiclient.Client, args []string) (SessionList, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(args) == 1 {
		s, err := client.GetSession(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return SessionList{*s}, nil
	}

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return SessionList(sessions), nil
}
