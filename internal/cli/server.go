package cli

import (
	"fmt"

	"github.com/e-grid/e-grid/internal/app"
	"github.com/e-grid/e-grid/internal/config"
	"github.com/e-grid/e-grid/internal/logger"
	"github.com/e-grid/e-grid/internal/platform"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the tracker server's dispatcher loop in the foreground",
	RunE: func(cmd *cobra.Command, _ []string) error {
		result := config.LoadWithValidation(configPath)
		if result.ValidationError != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "configuration validation failed: %v\n", result.ValidationError)
			fmt.Fprintln(cmd.ErrOrStderr(), "continuing with default configuration")
		}

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

		srv, err := app.NewServer(cfg, logger.Get(), ws)
		if err != nil {
			return fmt.Errorf("failed to construct server: %w", err)
		}

		go srv.WaitForShutdown()

		if useTray && TrayLaunchFunc != nil {
			go func() {
				if runErr := srv.Run(); runErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "server exited: %v\n", runErr)
				}
			}()

			TrayLaunchFunc(srv)

			return nil
		}

		return srv.Run()
	},
}

var useTray bool

func init() {
	serverCmd.Flags().BoolVar(&useTray, "tray", false, "Run under a status-bar icon instead of purely headless")
	rootCmd.AddCommand(serverCmd)
}
