// SPDX-License-Identifier: EPL-2.0

package enhance

import "math"

type chord [3]float64

// progression describes a synthesized music bed: one chord per four second
// bar, a melody line over the chord and a slow amplitude pulse.
type progression struct {
	chords [4]chord
	gains  [3]float64
	pulse  float64
	melody func(c chord, t float64) float64
}

const (
	barSeconds  = 4.0
	fadeSeconds = 1.5
)

var (
	// C, Am, F, G.
	introBed = progression{
		chords: [4]chord{
			{261.63, 329.63, 392.00},
			{220.00, 261.63, 329.63},
			{174.61, 220.00, 349.23},
			{196.00, 246.94, 392.00},
		},
		gains: [3]float64{0.18, 0.14, 0.12},
		pulse: 0.5,
		melody: func(c chord, t float64) float64 {
			return 0.08 * math.Sin(2*math.Pi*c[0]*2*t+math.Sin(t*2))
		},
	}

	// Dm, G, C, Am.
	outroBed = progression{
		chords: [4]chord{
			{293.66, 349.23, 440.00},
			{196.00, 246.94, 392.00},
			{261.63, 329.63, 392.00},
			{220.00, 261.63, 329.63},
		},
		gains: [3]float64{0.16, 0.13, 0.11},
		pulse: 0.33,
		melody: func(c chord, t float64) float64 {
			return 0.08 * math.Sin(2*math.Pi*c[2]*1.5*t+math.Cos(t*2))
		},
	}
)

// render synthesizes seconds of the bed at sampleRate with a linear fade in
// and out.
func (p progression) render(seconds float64, sampleRate int) []float32 {
	n := int(seconds * float64(sampleRate))
	if n <= 0 {
		return nil
	}

	out := make([]float32, n)
	sr := float64(sampleRate)
	bar := int(barSeconds * sr)

	fade := min(int(fadeSeconds*sr), n/2)

	for i := range out {
		t := float64(i) / sr
		c := p.chords[(i/bar)%len(p.chords)]

		v := p.gains[0]*math.Sin(2*math.Pi*c[0]*t) +
			p.gains[1]*math.Sin(2*math.Pi*c[1]*t) +
			p.gains[2]*math.Sin(2*math.Pi*c[2]*t) +
			p.melody(c, t)
		v *= 0.5 * (1 + math.Sin(2*math.Pi*p.pulse*t))

		if fade > 0 {
			switch {
			case i < fade:
				v *= float64(i) / float64(fade)
			case i >= n-fade:
				v *= float64(n-1-i) / float64(fade)
			}
		}

		out[i] = float32(v)
	}

	return out
}
