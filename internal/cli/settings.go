package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/slidex/slidex-agent/internal/jobs"
	"github.com/slidex/slidex-agent/internal/slides"
)

func newSettingsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change saved settings",
		Long: `Saved settings override the SLIDEX_* environment defaults and are shared
with a running agent.

Keys: ffmpeg_path, delete_after_export, open_after_action`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the effective settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(root, cmd.ErrOrStderr(), "warn")
			if err != nil {
				return err
			}
			defer e.Close()

			st, err := e.settings.Get(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one setting",
		Example: "  slidex settings set ffmpeg_path /opt/homebrew/bin/ffmpeg\n  slidex settings set delete_after_export true",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseSetting(args[0], args[1])
			if err != nil {
				return err
			}

			e, err := loadEnv(root, cmd.ErrOrStderr(), "warn")
			if err != nil {
				return err
			}
			defer e.Close()

			st, err := e.settings.Update(cmd.Context(), patch)
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	})

	return cmd
}

func parseSetting(key, value string) (jobs.SettingsPatch, error) {
	var patch jobs.SettingsPatch
	switch key {
	case jobs.KeyFFmpegPath:
		patch.FFmpegPath = &value
	case jobs.KeyDeleteAfterExport, jobs.KeyOpenAfterAction:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return patch, fmt.Errorf("%w: %s must be true or false", slides.ErrInvalidParameter, key)
		}
		if key == jobs.KeyDeleteAfterExport {
			patch.DeleteAfterExport = &b
		} else {
			patch.OpenAfterAction = &b
		}
	default:
		return patch, fmt.Errorf("%w: unknown setting %q", slides.ErrInvalidParameter, key)
	}
	return patch, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
