package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aurora-view/auroraview/internal/dispatch"
	"github.com/aurora-view/auroraview/internal/logging"
	"github.com/aurora-view/auroraview/pkg/auroraview"
)

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Open a standalone window loading the given URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, args []string) error {
	w, err := auroraview.New(auroraview.Params{
		Mode:          dispatch.Standalone,
		EngineFactory: auroraview.DefaultEngineFactory,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("construct window: %w", err)
	}

	if err := w.LoadURL(args[0]); err != nil {
		return fmt.Errorf("load url: %w", err)
	}
	logging.Trace().Mark("first_paint")
	logging.Trace().Finish()

	logger.Info().Str("url", args[0]).Msg("window opened, waiting for interrupt")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	return w.Close(context.Background())
}
