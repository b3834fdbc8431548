// SPDX-License-Identifier: EPL-2.0

package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	shadowOffset = 3
	shrinkFactor = 0.9
)

var (
	titleFont   = mustParse(gobold.TTF)
	podcastFont = mustParse(goregular.TTF)
)

func mustParse(ttf []byte) *opentype.Font {
	f, err := opentype.Parse(ttf)
	if err != nil {
		panic(fmt.Sprintf("parse bundled font: %v", err))
	}
	return f
}

// fitFace returns the largest face of f, starting at size and shrinking by
// 10% steps, that renders text within width. It stops shrinking at minSize.
func fitFace(f *opentype.Font, text string, size, minSize float64, width int) (font.Face, error) {
	for {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("create font face: %w", err)
		}

		next := size * shrinkFactor
		if font.MeasureString(face, text).Ceil() <= width || next < minSize {
			return face, nil
		}

		face.Close()
		size = next
	}
}

// drawCentered writes text horizontally centred in [left, left+width) with
// its top at y, over a drop shadow.
func drawCentered(dst draw.Image, face font.Face, text string, left, width, y int, c color.Color) {
	w := font.MeasureString(face, text).Ceil()
	x := left + (width-w)/2
	baseline := y + face.Metrics().Ascent.Ceil()

	d := &font.Drawer{Dst: dst, Face: face}

	d.Src = image.NewUniform(Shadow)
	d.Dot = fixed.P(x+shadowOffset, baseline+shadowOffset)
	d.DrawString(text)

	d.Src = image.NewUniform(c)
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

// textOverlay renders the episode title near the top and the podcast name
// near the bottom onto a transparent frame sized layer.
func textOverlay(width, height int, title, podcast string) (*image.RGBA, error) {
	layer := image.NewRGBA(image.Rect(0, 0, width, height))

	marginX := width / 20
	marginY := height / 20
	usable := width - 2*marginX

	if title != "" {
		face, err := fitFace(titleFont, title, 0.09*float64(height), 20, usable)
		if err != nil {
			return nil, err
		}
		drawCentered(layer, face, title, marginX, usable, marginY+int(0.06*float64(height)), Accent)
		face.Close()
	}

	if podcast != "" {
		face, err := fitFace(podcastFont, podcast, 0.045*float64(height), 15, usable)
		if err != nil {
			return nil, err
		}
		h := face.Metrics().Height.Ceil()
		drawCentered(layer, face, podcast, marginX, usable, height-marginY-h-int(0.04*float64(height)), PodcastColor)
		face.Close()
	}

	return layer, nil
}
