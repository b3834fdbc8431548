// SPDX-License-Identifier: EPL-2.0

// Package compose turns a frame.VisualState into pixels: background, a
// breathing logo, the mirrored waveform, a progress bar and the episode
// typography. It performs no I/O after LoadAssets.
package compose

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ik5/wavereel/frame"
)

// AssetSpec names the static inputs of a render.
type AssetSpec struct {
	LogoPath    string
	Title       string
	PodcastName string
	Width       int
	Height      int
}

// Assets are decoded once per file and shared read-only by every frame.
type Assets struct {
	Logo   *image.RGBA
	Text   *image.RGBA
	Width  int
	Height int
}

// LoadAssets prepares the logo and the text layer. A logo that cannot be
// opened or decoded fails with ErrAssetMissing.
func LoadAssets(spec AssetSpec) (*Assets, error) {
	if spec.Width <= 0 || spec.Height <= 0 || spec.Width%2 != 0 || spec.Height%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d, want positive even sides", ErrFrameSize, spec.Width, spec.Height)
	}
	if spec.LogoPath == "" {
		return nil, fmt.Errorf("%w: no logo configured", ErrAssetMissing)
	}

	logo, err := loadLogo(spec.LogoPath)
	if err != nil {
		return nil, err
	}

	text, err := textOverlay(spec.Width, spec.Height, spec.Title, spec.PodcastName)
	if err != nil {
		return nil, err
	}

	return &Assets{
		Logo:   logo,
		Text:   text,
		Width:  spec.Width,
		Height: spec.Height,
	}, nil
}

// Compositor is safe for concurrent use.
type Compositor struct {
	assets *Assets
}

func NewCompositor(assets *Assets) *Compositor {
	return &Compositor{assets: assets}
}

// Compose renders s into a new frame.
func (c *Compositor) Compose(s frame.VisualState) (*image.RGBA, error) {
	a := c.assets
	if a == nil || a.Logo == nil || a.Text == nil {
		return nil, fmt.Errorf("%w: assets not loaded", ErrAssetMissing)
	}

	dst := image.NewRGBA(image.Rect(0, 0, a.Width, a.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	c.drawLogo(dst, s.Scale)
	drawWaveform(dst, s.Window)
	drawProgress(dst, s.Scroll)
	draw.Draw(dst, dst.Bounds(), a.Text, image.Point{}, draw.Over)

	if s.Alpha < 1 {
		fadeAlpha(dst, s.Alpha)
		restoreOpaque(dst)
	}

	return dst, nil
}

func (c *Compositor) drawLogo(dst *image.RGBA, scale float64) {
	logo := c.assets.Logo
	lb := logo.Bounds()
	w := max(1, int(float64(lb.Dx())*scale))
	h := max(1, int(float64(lb.Dy())*scale))

	height := dst.Bounds().Dy()
	x := 50
	y := height/2 - h/2
	y = max(50, min(height-h-50, y))

	draw.ApproxBiLinear.Scale(dst, image.Rect(x, y, x+w, y+h), logo, lb, draw.Over, nil)
}

// drawWaveform fills the mirrored amplitude contour across the full width,
// centred vertically, and draws a thin baseline.
func drawWaveform(dst *image.RGBA, window []float64) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	mid := float32(h) / 2
	reach := float32(h) * 0.32

	// Baseline.
	draw.Draw(dst, image.Rect(0, int(mid)-1, w, int(mid)+1), image.NewUniform(withAlpha(WaveformDark, 128)), image.Point{}, draw.Over)

	n := len(window)
	if n == 0 {
		return
	}

	xAt := func(j int) float32 {
		if n == 1 {
			return float32(w) / 2
		}
		return float32(j) * float32(w) / float32(n-1)
	}

	// Zero-height polygons still cover a sliver, so skip an all-silent window.
	loud := false
	for _, v := range window {
		if v > 0 {
			loud = true
			break
		}
	}
	if !loud {
		return
	}

	r := vector.NewRasterizer(w, h)
	r.DrawOp = draw.Over

	r.MoveTo(xAt(0), mid-float32(window[0])*reach)
	for j := 1; j < n; j++ {
		r.LineTo(xAt(j), mid-float32(window[j])*reach)
	}
	for j := n - 1; j >= 0; j-- {
		r.LineTo(xAt(j), mid+float32(window[j])*reach)
	}
	r.ClosePath()

	r.Draw(dst, b, image.NewUniform(withAlpha(WaveformMid, 220)), image.Point{})
}

func drawProgress(dst *image.RGBA, progress float64) {
	b := dst.Bounds()
	barX, barW := 100, b.Dx()-200
	barY, barH := b.Dy()-30, 4
	if barW <= 0 {
		return
	}

	draw.Draw(dst, image.Rect(barX, barY, barX+barW, barY+barH), image.NewUniform(WaveformDark), image.Point{}, draw.Src)

	fill := int(float64(barW) * min(max(progress, 0), 1))
	if fill > 0 {
		draw.Draw(dst, image.Rect(barX, barY, barX+fill, barY+barH), image.NewUniform(Accent), image.Point{}, draw.Src)
	}
}

// restoreOpaque resets alpha after a fade so frames stay opaque (fading to black).
func restoreOpaque(img *image.RGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
}
