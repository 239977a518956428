package ui

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

var iconBytes = renderIcon()

// renderIcon draws a 32x32 slide glyph: a white frame on a blue square.
func renderIcon() []byte {
	bg := imaging.New(32, 32, color.NRGBA{R: 0x1f, G: 0x5f, B: 0xbf, A: 0xff})
	frame := imaging.New(22, 16, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	inner := imaging.New(18, 12, color.NRGBA{R: 0x1f, G: 0x5f, B: 0xbf, A: 0xff})
	frame = imaging.Paste(frame, inner, image.Pt(2, 2))
	img := imaging.Paste(bg, frame, image.Pt(5, 8))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil
	}
	return buf.Bytes()
}
