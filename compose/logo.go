// SPDX-License-Identifier: EPL-2.0

package compose

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxLogoSize bounds the logo edge before the glow padding.
	MaxLogoSize = 400
	glowPad     = 20
	glowRadius  = 10
)

// circle is an alpha mask with an anti-aliased disc filling its bounds.
type circle struct {
	size int
}

func (c circle) ColorModel() color.Model { return color.AlphaModel }
func (c circle) Bounds() image.Rectangle { return image.Rect(0, 0, c.size, c.size) }

func (c circle) At(x, y int) color.Color {
	r := float64(c.size) / 2
	dx := float64(x) + 0.5 - r
	dy := float64(y) + 0.5 - r
	// One pixel of feathering along the edge.
	d := r - math.Hypot(dx, dy)
	switch {
	case d >= 1:
		return color.Alpha{255}
	case d <= 0:
		return color.Alpha{0}
	}
	return color.Alpha{uint8(d * 255)}
}

// loadLogo decodes path, fits it in MaxLogoSize, crops it to a circle and
// surrounds it with a soft glow.
func loadLogo(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: logo %s: %w", ErrAssetMissing, path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: logo %s: %w", ErrAssetMissing, path, err)
	}

	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: logo %s is empty", ErrAssetMissing, path)
	}

	// Square crop from the centre so the circle is not distorted.
	edge := min(b.Dx(), b.Dy())
	crop := image.Rect(0, 0, edge, edge).Add(image.Pt(b.Min.X+(b.Dx()-edge)/2, b.Min.Y+(b.Dy()-edge)/2))
	size := min(edge, MaxLogoSize)

	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, crop, draw.Src, nil)

	round := image.NewRGBA(scaled.Bounds())
	draw.DrawMask(round, round.Bounds(), scaled, image.Point{}, circle{size}, image.Point{}, draw.Over)

	out := image.NewRGBA(image.Rect(0, 0, size+2*glowPad, size+2*glowPad))
	inner := image.Rect(glowPad, glowPad, glowPad+size, glowPad+size)

	glow := image.NewRGBA(out.Bounds())
	draw.Draw(glow, inner, round, image.Point{}, draw.Src)
	boxBlur(glow, glowRadius)
	fadeAlpha(glow, 0.6)

	draw.Draw(out, out.Bounds(), glow, image.Point{}, draw.Over)
	draw.Draw(out, inner, round, image.Point{}, draw.Over)

	return out, nil
}
