// Package cli implements the slidex command line: the desktop agent
// ("serve") plus one-shot extract, export, settings and doctor commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/slidex/slidex-agent/internal/slides"
)

const usage = `Slidex turns a recorded lecture or talk into a slide deck.

  1. Pick a video file.
  2. Extract frames, either at scene changes (--threshold, default 0.2;
     higher values keep fewer frames) or at the listed --timestamps.
  3. Review the frames written to <video>_slides/ and delete any you
     do not want.
  4. Export the remaining frames to PowerPoint (pptx) or PDF, optionally
     deleting them afterwards.

Run "slidex serve" to start the tray agent and its local HTTP API, or use
"slidex extract" and "slidex export" directly.`

type rootOptions struct {
	logLevel string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "slidex",
		Short:         "Extract slides from lecture videos and export them as PPTX or PDF",
		Long:          usage,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override SLIDEX_LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newExtractCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newSettingsCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI and exits 1 after printing the status line of any
// error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, slides.StatusMessage(err))
		os.Exit(1)
	}
}
