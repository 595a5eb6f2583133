package cli

import (
	"fmt"
	"time"

	"github.com/e-grid/e-grid/internal/app"
	"github.com/e-grid/e-grid/internal/busipc"
	grpclient "github.com/e-grid/e-grid/internal/client"
	"github.com/e-grid/e-grid/internal/config"
	"github.com/e-grid/e-grid/internal/domain/grid"
	"github.com/e-grid/e-grid/internal/logger"
	"github.com/e-grid/e-grid/internal/platform"
	"github.com/spf13/cobra"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Run a tracker server and stream its live event feed to stdout",
	Long: `client starts a tracker server and attaches internal/client to its shared
bus, printing every WindowEvent/WindowFocusEvent/Heartbeat as it arrives.
This build's IPC fabric (internal/busipc) is an in-process pub/sub
substrate rather than a cross-process transport (see that package's doc
comment), so "client" and "server" share one process instead of dialing
an external tracker the way a future shared-memory transport would allow.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		result := config.LoadWithValidation(configPath)
		cfg := result.Config

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		if err := logger.Init(cfg.Logging.Level, cfg.Logging.FilePath, cfg.Logging.Structured,
			cfg.Logging.DisableFileLogging, cfg.Logging.MaxFileSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		ws, err := platform.New()
		if err != nil {
			return fmt.Errorf("failed to initialize platform window system: %w", err)
		}

		monitors, err := ws.Monitors()
		if err != nil {
			return fmt.Errorf("failed to enumerate monitors: %w", err)
		}

		srv, err := app.NewServer(cfg, logger.Get(), ws)
		if err != nil {
			return fmt.Errorf("failed to construct server: %w", err)
		}

		stopped := make(chan struct{})

		go func() {
			defer close(stopped)

			if runErr := srv.Run(); runErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "server exited: %v\n", runErr)
			}
		}()

		go srv.WaitForShutdown()

		c := grpclient.New(srv.Bus(), logger.Get(),
			grpclient.WithCommandTimeout(clientTimeout),
			grpclient.WithHeartbeatPeriod(cfg.Timing.HeartbeatPeriod),
			grpclient.WithGridDimensions(cfg.Grid.Rows, grid.VirtualColsForMonitorCount(cfg.Grid.Cols, len(monitors))),
			grpclient.WithCallbacks(grpclient.Callbacks{
				OnWindowEvent: func(ev busipc.WindowEvent) {
					fmt.Fprintf(cmd.OutOrStdout(), "event hwnd=%d type=%d cell=(%d,%d)\n", ev.Hwnd, ev.EventType, ev.Row, ev.Col)
				},
				OnFocusEvent: func(ev busipc.WindowFocusEvent) {
					fmt.Fprintf(cmd.OutOrStdout(), "focus hwnd=%d type=%d\n", ev.Hwnd, ev.EventType)
				},
				OnHeartbeat: func(h busipc.Heartbeat) {
					fmt.Fprintf(cmd.OutOrStdout(), "heartbeat seq=%d flag=%d\n", h.Sequence, h.Flag)
				},
				OnHeartbeatStale: func(missed int) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: heartbeat stale, missed=%d\n", missed)
				},
			}),
		)

		if err := c.Connect(); err != nil {
			return fmt.Errorf("failed to connect client: %w", err)
		}

		<-stopped

		c.Close()

		return nil
	},
}

var clientTimeout = 5 * time.Second

func init() {
	clientCmd.Flags().DurationVar(&clientTimeout, "command-timeout", clientTimeout, "Per-command IPC round-trip timeout")
	rootCmd.AddCommand(clientCmd)
}
