// Package cmd provides Cobra CLI commands for the auroraview binary, a
// thin reference host used to exercise the library standalone (outside
// any DCC application) during development.
package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aurora-view/auroraview/internal/logging"
)

var (
	logLevel  string
	logDir    string
	logger    zerolog.Logger
	sessionID string

	rootCmd = &cobra.Command{
		Use:           "auroraview",
		Short:         "Reference host for the AuroraView embedding substrate",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `auroraview is a reference host for the AuroraView library: the
concurrency and lifecycle substrate that embeds a native webview inside a
third-party application's own event loop.

Use 'auroraview run <url>' to open a standalone window, or 'auroraview
monitor' to watch a window's queue depth, ready-barrier state, pending
call count and backend health update live.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logging.InitStartupTrace(logLevel)

			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			sessionID = logging.GenerateSessionID()
			writer := io.Writer(zerolog.ConsoleWriter{Out: os.Stderr})
			if logDir != "" {
				if err := os.MkdirAll(logDir, 0o755); err != nil {
					return err
				}
				path := filepath.Join(logDir, logging.SessionFilename(sessionID))
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				writer = zerolog.MultiLevelWriter(writer, f)
			}
			logger = zerolog.New(writer).Level(level).With().
				Timestamp().
				Str("session", logging.ShortSessionID(sessionID)).
				Logger()
			logging.Trace().SetLogger(&logger)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory to additionally write a per-session log file (disabled if empty)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
