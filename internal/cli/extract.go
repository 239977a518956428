package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slidex/slidex-agent/internal/export"
	"github.com/slidex/slidex-agent/internal/opener"
	"github.com/slidex/slidex-agent/internal/slides"
)

type extractOptions struct {
	threshold    string
	timestamps   string
	outputDir    string
	exportFormat string
	deleteAfter  bool
	open         bool
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	o := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Extract slide frames from a video",
		Long: `Extract slide frames from a video into numbered JPEG files.

Without --timestamps, one frame is written for every scene change whose score
exceeds --threshold. With --timestamps, exactly one frame is written per listed
time, in list order. Frames go to <video name>_slides/ in the current directory
unless --output-dir is given.`,
		Example: `  slidex extract lecture.mp4
  slidex extract lecture.mp4 --threshold 0.35 --export pdf
  slidex extract talk.mov --timestamps "00:00:05, 00:01:30, 00:02:10" -o deck`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video := ""
			if len(args) == 1 {
				video = args[0]
			}
			return runExtract(cmd, root, o, video)
		},
	}

	cmd.Flags().StringVar(&o.threshold, "threshold", "", "scene-change threshold (default SLIDEX_THRESHOLD, 0.2)")
	cmd.Flags().StringVar(&o.timestamps, "timestamps", "", "comma-separated capture times; overrides scene detection")
	cmd.Flags().StringVarP(&o.outputDir, "output-dir", "o", "", "output directory (default <video name>_slides)")
	cmd.Flags().StringVar(&o.exportFormat, "export", "", "export the frames afterwards: pptx or pdf")
	cmd.Flags().BoolVar(&o.deleteAfter, "delete", false, "delete the frames after a successful export (default from settings)")
	cmd.Flags().BoolVar(&o.open, "open", false, "open the result with the default application (default from settings)")
	return cmd
}

func runExtract(cmd *cobra.Command, root *rootOptions, o *extractOptions, video string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var format export.Format
	if o.exportFormat != "" {
		f, err := export.ParseFormat(o.exportFormat)
		if err != nil {
			return err
		}
		format = f
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

	threshold := o.threshold
	if threshold == "" {
		threshold = slides.FormatThreshold(e.cfg.Threshold())
	}

	orch := slides.NewOrchestrator(e.locator, slides.OutputDirs{}, nil, e.logger)
	session, err := orch.Extract(ctx, slides.Params{
		VideoPath:  video,
		Threshold:  threshold,
		Timestamps: slides.ParseTimestampList(o.timestamps),
		OutputDir:  o.outputDir,
	}, progressPrinter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Extracted %d frames to %s\n", len(session.Frames), session.OutputDir)

	result := session.OutputDir
	if format != "" {
		deleteSource := st.DeleteAfterExport
		if cmd.Flags().Changed("delete") {
			deleteSource = o.deleteAfter
		}
		art, err := exportDir(ctx, e, session.OutputDir, format, deleteSource, out)
		if err != nil {
			return err
		}
		result = art.Path
	}

	openResult(cmd, e, o.open, st.OpenAfterAction, result)
	return nil
}

func exportDir(ctx context.Context, e *env, dir string, format export.Format, deleteSource bool, out io.Writer) (*export.Artifact, error) {
	exp := export.NewExporter(nil, e.logger)
	art, err := exp.Export(ctx, export.Job{SourceDir: dir, Format: format, DeleteSource: deleteSource})
	if art == nil {
		return nil, err
	}

	fmt.Fprintf(out, "Wrote %d pages to %s\n", art.PageCount, art.Path)
	if len(art.Deleted) > 0 {
		fmt.Fprintf(out, "Deleted %d frames from %s\n", len(art.Deleted), filepath.Dir(art.Path))
	}
	if err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
	}
	return art, nil
}

func openResult(cmd *cobra.Command, e *env, flag, setting bool, path string) {
	open := setting
	if cmd.Flags().Changed("open") {
		open = flag
	}
	if !open {
		return
	}
	if err := opener.NewSystem(e.logger).Open(path); err != nil {
		e.logger.Warn("failed to open result", "error", err)
	}
}

func progressPrinter(w io.Writer) slides.ProgressFunc {
	return func(ev slides.ProgressEvent) {
		switch {
		case ev.Stage == "started" && !ev.Determinate():
			fmt.Fprintln(w, "Detecting scene changes...")
		case ev.Stage == "advanced":
			fmt.Fprintf(w, "Captured frame %d/%d\n", ev.Done, ev.Total)
		}
	}
}
