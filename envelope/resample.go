// SPDX-License-Identifier: EPL-2.0

package envelope

import "github.com/ik5/wavereel/utils"

// Resample maps env onto frames per-frame amplitudes by linear interpolation.
//
// Frame i samples the envelope at position i/frames*len(env) when duration
// equals the envelope duration. For any other positive duration the position
// is mapped through time, i/frames*duration*Resolution, and clamped to the
// last sample, so the same envelope yields the same shape at any frame rate.
// frames <= 0 returns an empty slice; an empty envelope yields zeros.
func Resample(env Envelope, frames int, duration float64) []float64 {
	if frames <= 0 {
		return []float64{}
	}

	out := make([]float64, frames)
	n := len(env.Samples)
	if n == 0 {
		return out
	}

	span := float64(n)
	if duration > 0 && env.Resolution > 0 && duration != env.Duration {
		span = duration * env.Resolution
	}

	last := n - 1
	for i := range out {
		t := float64(i) / float64(frames) * span
		if t >= float64(last) {
			out[i] = float64(env.Samples[last])
			continue
		}

		lo := int(t)
		out[i] = utils.Lerp(float64(env.Samples[lo]), float64(env.Samples[lo+1]), t-float64(lo))
	}

	return out
}
