package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/slidex/slidex-agent/internal/config"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "slidex %s (commit %s, built %s, %s/%s)\n",
				config.Version, config.GitCommit, config.BuildTime, runtime.GOOS, runtime.GOARCH)
		},
	}
}
