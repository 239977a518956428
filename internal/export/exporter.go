// Package export assembles extracted frames into a presentation or PDF and
// removes the consumed frames afterwards when asked to.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/slidex/slidex-agent/internal/metrics"
	"github.com/slidex/slidex-agent/internal/slides"
)

const maxTitleLen = 120

// Exporter runs export jobs synchronously.
type Exporter struct {
	observer slides.DirectoryObserver
	logger   *slog.Logger
}

// NewExporter returns an exporter. observer is told about the directory
// after cleanup and may be nil.
func NewExporter(observer slides.DirectoryObserver, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{observer: observer, logger: logger}
}

// ArtifactPath returns where the document for dir would be written.
func ArtifactPath(dir string, format Format) string {
	return filepath.Join(dir, filepath.Base(dir)+format.Ext())
}

// Export enumerates the frames in job.SourceDir once, writes the document
// and, if requested, deletes exactly the enumerated frames. An empty or
// missing directory fails with ErrNoFramesToExport before anything is
// written. Cleanup errors are returned together with the artifact.
func (e *Exporter) Export(ctx context.Context, job Job) (*Artifact, error) {
	ctx, span := otel.Tracer("export").Start(ctx, "Exporter.Export")
	defer span.End()

	span.SetAttributes(attribute.String("export.format", string(job.Format)))

	art, err := e.export(ctx, job)
	if art != nil {
		span.SetAttributes(
			attribute.String("export.path", art.Path),
			attribute.Int("export.pages", art.PageCount),
		)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return art, err
}

func (e *Exporter) export(ctx context.Context, job Job) (*Artifact, error) {
	format, err := ParseFormat(string(job.Format))
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(job.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", slides.ErrInvalidParameter, err)
	}

	frames, err := slides.ListFrames(dir)
	if err != nil || len(frames) == 0 {
		metrics.ExportsTotal.WithLabelValues(string(format), "empty").Inc()
		return nil, fmt.Errorf("%w: no .jpg frames in %s", slides.ErrNoFramesToExport, dir)
	}

	path := ArtifactPath(dir, format)
	title := SanitizeName(filepath.Base(dir), maxTitleLen)
	log := e.logger.With("format", string(format), "frames", len(frames))
	log.Info("export started", "source_dir", dir)

	start := time.Now()
	switch format {
	case FormatPPTX:
		err = writePPTX(ctx, path, frames, title)
	case FormatPDF:
		err = writePDF(ctx, path, frames, title)
	}
	metrics.StageDuration.WithLabelValues("export").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExportsTotal.WithLabelValues(string(format), "failed").Inc()
		log.Error("export failed", "error", err)
		return nil, fmt.Errorf("%w: %w", slides.ErrExportWriteFailed, err)
	}
	metrics.ExportsTotal.WithLabelValues(string(format), "completed").Inc()

	art := &Artifact{
		Path:      path,
		Format:    format,
		PageCount: len(frames),
		Frames:    frames,
	}
	log.Info("export completed", "artifact", path)

	if !job.DeleteSource {
		return art, nil
	}

	removed, cleanupErr := RemoveFrames(frames)
	art.Deleted = removed
	metrics.FramesDeletedTotal.Add(float64(len(removed)))
	if cleanupErr != nil {
		log.Warn("frame cleanup incomplete", "removed", len(removed), "error", cleanupErr)
	}

	if e.observer != nil {
		remaining, _ := slides.ListFrames(dir)
		e.observer.DirectoryChanged(dir, remaining)
	}
	return art, cleanupErr
}
