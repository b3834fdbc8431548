// SPDX-License-Identifier: EPL-2.0

package enhance

import "math"

// biquad is a second order IIR section in transposed direct form II.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

// Butterworth Q for a single second order section.
const butterworthQ = math.Sqrt2 / 2

// newHighpass returns nil when the cutoff is outside (0, nyquist).
func newHighpass(cutoff float64, sampleRate int) *biquad {
	w0, ok := normalizedCutoff(cutoff, sampleRate)
	if !ok {
		return nil
	}

	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*butterworthQ)
	return newBiquad((1+cos)/2, -(1 + cos), (1+cos)/2, 1+alpha, -2*cos, 1-alpha)
}

func newLowpass(cutoff float64, sampleRate int) *biquad {
	w0, ok := normalizedCutoff(cutoff, sampleRate)
	if !ok {
		return nil
	}

	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*butterworthQ)
	return newBiquad((1-cos)/2, 1-cos, (1-cos)/2, 1+alpha, -2*cos, 1-alpha)
}

func normalizedCutoff(cutoff float64, sampleRate int) (float64, bool) {
	nyquist := float64(sampleRate) / 2
	if cutoff <= 0 || cutoff >= nyquist {
		return 0, false
	}

	return 2 * math.Pi * cutoff / float64(sampleRate), true
}

func newBiquad(b0, b1, b2, a0, a1, a2 float64) *biquad {
	return &biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// chain runs samples through every non-nil section in order.
type chain []*biquad

func newEQ(s Settings, sampleRate int) chain {
	if !s.EQ {
		return nil
	}

	var c chain
	if hp := newHighpass(s.HighpassHz, sampleRate); hp != nil {
		c = append(c, hp)
	}
	if lp := newLowpass(s.LowpassHz, sampleRate); lp != nil {
		c = append(c, lp)
	}

	return c
}

func (c chain) process(x float64) float64 {
	for _, f := range c {
		x = f.process(x)
	}
	return x
}
