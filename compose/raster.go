// SPDX-License-Identifier: EPL-2.0

package compose

import "image"

// boxBlur runs a horizontal then vertical running-sum blur over the
// premultiplied pixels of img.
func boxBlur(img *image.RGBA, radius int) {
	if radius <= 0 {
		return
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := make([]uint8, len(img.Pix))

	pass := func(src, dst []uint8, n, lines int, at func(line, i int) int) {
		win := 2*radius + 1
		for line := range lines {
			for c := range 4 {
				sum := 0
				for i := -radius; i <= radius; i++ {
					j := min(max(i, 0), n-1)
					sum += int(src[at(line, j)+c])
				}
				for i := range n {
					dst[at(line, i)+c] = uint8(sum / win)
					out := min(max(i-radius, 0), n-1)
					in := min(i+radius+1, n-1)
					sum += int(src[at(line, in)+c]) - int(src[at(line, out)+c])
				}
			}
		}
	}

	stride := img.Stride
	pass(img.Pix, tmp, w, h, func(y, x int) int { return y*stride + x*4 })
	pass(tmp, img.Pix, h, w, func(x, y int) int { return y*stride + x*4 })
}

// fadeAlpha scales every premultiplied pixel by k in [0, 1].
func fadeAlpha(img *image.RGBA, k float64) {
	if k >= 1 {
		return
	}

	scale := uint32(max(0, k) * 256)
	for i, v := range img.Pix {
		img.Pix[i] = uint8(uint32(v) * scale >> 8)
	}
}
