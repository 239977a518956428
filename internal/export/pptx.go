package export

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"os"
	"text/template"
	"time"
)

// 4:3 slide in EMU, the size new presentations default to.
const (
	slideWidthEMU  = 9144000
	slideHeightEMU = 6858000

	firstSlideID  = 256
	masterID      = 2147483648
	layoutID      = 2147483649
	firstSlideRel = 6 // rId1-rId5 are master, theme and the three property parts
)

type pptxDeck struct {
	Title    string
	Created  string
	Slides   []int
	Width    int
	Height   int
	SlideRel int
	SlideID  int
	MasterID int
	LayoutID int
}

// writePPTX writes one blank-layout slide per frame, in order, each with
// the frame stretched over the whole slide.
func writePPTX(ctx context.Context, path string, frames []string, title string) (err error) {
	for _, frame := range frames {
		if err := checkJPEG(frame); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)

	deck := pptxDeck{
		Title:    title,
		Created:  time.Now().UTC().Format(time.RFC3339),
		Width:    slideWidthEMU,
		Height:   slideHeightEMU,
		SlideRel: firstSlideRel,
		SlideID:  firstSlideID,
		MasterID: masterID,
		LayoutID: layoutID,
	}
	for i := range frames {
		deck.Slides = append(deck.Slides, i+1)
	}

	for _, part := range pptxParts {
		if err := writeTemplatePart(zw, part.name, part.tmpl, deck); err != nil {
			return err
		}
	}

	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := i + 1
		slide := struct {
			pptxDeck
			N int
		}{deck, n}
		if err := writeTemplatePart(zw, fmt.Sprintf("ppt/slides/slide%d.xml", n), slideTmpl, slide); err != nil {
			return err
		}
		if err := writeTemplatePart(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), slideRelsTmpl, slide); err != nil {
			return err
		}
		if err := copyMedia(zw, fmt.Sprintf("ppt/media/image%d.jpg", n), frame); err != nil {
			return err
		}
	}

	return zw.Close()
}

// checkJPEG fails early on frames that are not decodable images, before
// the document is created.
func checkJPEG(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeTemplatePart(zw *zip.Writer, name string, tmpl *template.Template, data any) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

// copyMedia stores the frame uncompressed; JPEG data does not deflate.
func copyMedia(zw *zip.Writer, name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
