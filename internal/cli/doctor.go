package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg can be found and run",
		Long: `Resolve ffmpeg the same way extraction does (saved ffmpeg_path, then the
bundled copy next to slidex, then PATH) and run "ffmpeg -version".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(root, cmd.ErrOrStderr(), "warn")
			if err != nil {
				return err
			}
			defer e.Close()

			caps, err := e.locator.Probe(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ffmpeg:  %s\n", caps.Path)
			fmt.Fprintf(out, "version: %s\n", caps.Version)
			return nil
		},
	}
}
