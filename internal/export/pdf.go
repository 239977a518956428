package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
)

const pdfJPEGQuality = 92

// writePDF writes each frame as one page sized to the frame's pixel
// dimensions (1px = 1pt). Frames are flattened onto white first so the
// pages carry no alpha channel.
func writePDF(ctx context.Context, path string, frames []string, title string) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt"})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.SetCreator("slidex", true)

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, bounds, err := opaqueJPEG(frame)
		if err != nil {
			return err
		}

		w, h := float64(bounds.Dx()), float64(bounds.Dy())
		name := fmt.Sprintf("frame%04d", i+1)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("add %s: %w", frame, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// opaqueJPEG decodes path and re-encodes it composited over white.
func opaqueJPEG(path string) ([]byte, image.Rectangle, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(pdfJPEGQuality)); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return buf.Bytes(), flat.Bounds(), nil
}
