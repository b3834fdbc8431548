// SPDX-License-Identifier: EPL-2.0

// Package envelope holds the amplitude contour of a narration track, maps it
// onto video frames and serializes it for the waveform cache.
package envelope

import (
	"math"

	"github.com/ik5/wavereel/fingerprint"
)

// DefaultResolution is the number of envelope samples per second of audio.
const DefaultResolution = 100.0

// Envelope is a normalized amplitude contour. Samples are in [0, 1] and
// len(Samples) == ExpectedLen(Duration, Resolution).
type Envelope struct {
	Samples     []float32
	Resolution  float64
	Duration    float64
	Fingerprint fingerprint.Fingerprint
}

// ExpectedLen returns round(duration*resolution), and at least 1 for any
// positive duration.
func ExpectedLen(duration, resolution float64) int {
	if duration <= 0 || resolution <= 0 {
		return 0
	}

	return max(1, int(math.Round(duration*resolution)))
}

// Len returns the number of samples.
func (e Envelope) Len() int { return len(e.Samples) }

// Max returns the largest sample, 0 for an empty envelope.
func (e Envelope) Max() float32 {
	var m float32
	for _, v := range e.Samples {
		m = max(m, v)
	}
	return m
}

// Equal reports whether a and b are bit-identical.
func Equal(a, b Envelope) bool {
	if a.Fingerprint != b.Fingerprint ||
		math.Float64bits(a.Resolution) != math.Float64bits(b.Resolution) ||
		math.Float64bits(a.Duration) != math.Float64bits(b.Duration) ||
		len(a.Samples) != len(b.Samples) {
		return false
	}

	for i := range a.Samples {
		if math.Float32bits(a.Samples[i]) != math.Float32bits(b.Samples[i]) {
			return false
		}
	}

	return true
}
