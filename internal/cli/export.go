package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slidex/slidex-agent/internal/export"
	"github.com/slidex/slidex-agent/internal/slides"
)

type exportOptions struct {
	format      string
	deleteAfter bool
	open        bool
}

func newExportCmd(root *rootOptions) *cobra.Command {
	o := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export <slides dir>",
		Short: "Export the frames in a directory to PPTX or PDF",
		Long: `Export every .jpg frame in a directory, in filename order, to a single
document named after the directory: one slide or page per frame.`,
		Example: `  slidex export lecture_slides --format pdf
  slidex export lecture_slides --format pptx --delete`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			format, err := export.ParseFormat(o.format)
			if err != nil {
				return err
			}
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", slides.ErrInvalidParameter, err)
			}
			if err := export.ValidateSourceDir(dir); err != nil {
				return err
			}

			e, err := loadEnv(root, cmd.ErrOrStderr(), "warn")
			if err != nil {
				return err
			}
			defer e.Close()

			st, err := e.settings.Get(ctx)
			if err != nil {
				return err
			}
			deleteSource := st.DeleteAfterExport
			if cmd.Flags().Changed("delete") {
				deleteSource = o.deleteAfter
			}

			art, err := exportDir(ctx, e, dir, format, deleteSource, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			openResult(cmd, e, o.open, st.OpenAfterAction, art.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.format, "format", "f", "pptx", "document format: pptx or pdf")
	cmd.Flags().BoolVar(&o.deleteAfter, "delete", false, "delete the frames after a successful export (default from settings)")
	cmd.Flags().BoolVar(&o.open, "open", false, "open the document with the default application (default from settings)")
	return cmd
}
