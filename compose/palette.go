// SPDX-License-Identifier: EPL-2.0

package compose

import "image/color"

// Beige on dark blue-grey.
var (
	Background    = color.RGBA{20, 25, 35, 255}
	WaveformLight = color.RGBA{245, 230, 200, 255}
	WaveformMid   = color.RGBA{220, 190, 150, 255}
	WaveformDark  = color.RGBA{180, 140, 100, 255}
	Accent        = color.RGBA{255, 200, 120, 255}
	PodcastColor  = color.RGBA{180, 190, 200, 255}
	Shadow        = color.RGBA{0, 0, 0, 120}
)

// withAlpha returns c at alpha a, premultiplied.
func withAlpha(c color.RGBA, a uint8) color.RGBA {
	return color.RGBA{
		R: uint8(uint32(c.R) * uint32(a) / 255),
		G: uint8(uint32(c.G) * uint32(a) / 255),
		B: uint8(uint32(c.B) * uint32(a) / 255),
		A: a,
	}
}
