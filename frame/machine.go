// SPDX-License-Identifier: EPL-2.0

// Package frame maps a video frame index to everything that frame shows.
// The mapping is a pure function of the index, so frames can be rendered in
// any order, in parallel, or one at a time after a failure.
package frame

import (
	"fmt"
	"math"

	"github.com/ik5/wavereel/utils"
)

// Params fixes the timeline and the animation of one render.
type Params struct {
	FPS      float64
	Duration float64

	// ViewportFraction is the share of the track visible at once.
	ViewportFraction float64
	// ViewportSeconds, when positive, overrides ViewportFraction with a fixed
	// time span, which keeps the scroll speed equal across episodes.
	ViewportSeconds float64
	// Columns is the number of amplitude samples in a viewport.
	Columns int

	BreathingFrequency float64
	BreathingAmplitude float64
	MinScale           float64
	MaxScale           float64

	// FadeSeconds of fade in at the start and fade out at the end.
	FadeSeconds float64
}

// DefaultParams mirrors the built-in configuration.
func DefaultParams() Params {
	return Params{
		FPS:                30,
		ViewportFraction:   0.3,
		Columns:            240,
		BreathingFrequency: 0.25,
		BreathingAmplitude: 0.05,
		MinScale:           0.9,
		MaxScale:           1.1,
		FadeSeconds:        2,
	}
}

// Width returns the viewport width as a fraction of the track.
func (p Params) Width() float64 {
	if p.ViewportSeconds > 0 && p.Duration > 0 {
		return min(1, p.ViewportSeconds/p.Duration)
	}
	return p.ViewportFraction
}

func (p Params) validate() error {
	switch {
	case !(p.FPS > 0):
		return fmt.Errorf("%w: fps %v", ErrInvalidParams, p.FPS)
	case p.Duration < 0 || math.IsNaN(p.Duration) || math.IsInf(p.Duration, 0):
		return fmt.Errorf("%w: duration %v", ErrInvalidParams, p.Duration)
	case p.Columns < 1:
		return fmt.Errorf("%w: columns %d", ErrInvalidParams, p.Columns)
	case !(p.Width() > 0 && p.Width() <= 1):
		return fmt.Errorf("%w: viewport width %v", ErrInvalidParams, p.Width())
	case p.BreathingFrequency < 0:
		return fmt.Errorf("%w: breathing frequency %v", ErrInvalidParams, p.BreathingFrequency)
	case p.MinScale > p.MaxScale:
		return fmt.Errorf("%w: min scale %v above max scale %v", ErrInvalidParams, p.MinScale, p.MaxScale)
	case p.FadeSeconds < 0:
		return fmt.Errorf("%w: fade %v", ErrInvalidParams, p.FadeSeconds)
	}

	return nil
}

// FrameCount returns round(duration*fps).
func FrameCount(duration, fps float64) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Round(duration * fps))
}

// VisualState is everything frame Index shows. Every call builds a fresh value.
type VisualState struct {
	Index     int
	Timestamp float64
	// Scroll is the share of the track already played, 0 at the first frame.
	Scroll float64
	// Window holds Columns amplitudes spanning [Scroll-W, Scroll], oldest
	// first. Positions before the track start are 0.
	Window []float64
	// Phase of the breathing cycle in [0, 1).
	Phase float64
	// Angle is Phase in radians, [0, 2π).
	Angle float64
	// Scale multiplies the logo size, within [MinScale, MaxScale].
	Scale float64
	// Alpha is the fade level in [0, 1].
	Alpha float64
}

// Machine evaluates VisualState for frames of a single render.
type Machine struct {
	amps   []float64
	params Params
	frames int
	width  float64
}

// NewMachine takes one amplitude per frame, as produced by envelope.Resample
// for FrameCount(p.Duration, p.FPS) frames.
func NewMachine(amplitudes []float64, p Params) (*Machine, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	n := FrameCount(p.Duration, p.FPS)
	if len(amplitudes) != n {
		return nil, fmt.Errorf("%w: %d amplitudes for %d frames", ErrInvalidParams, len(amplitudes), n)
	}

	return &Machine{
		amps:   amplitudes,
		params: p,
		frames: n,
		width:  p.Width(),
	}, nil
}

func (m *Machine) Frames() int    { return m.frames }
func (m *Machine) Params() Params { return m.params }

// State returns the visual state of frame i.
func (m *Machine) State(i int) (VisualState, error) {
	if i < 0 || i >= m.frames {
		return VisualState{}, fmt.Errorf("%w: %d of %d", ErrFrameRange, i, m.frames)
	}

	p := m.params
	ts := float64(i) * p.Duration / float64(m.frames)
	scroll := float64(i) / float64(m.frames)

	phase := math.Mod(ts*p.BreathingFrequency, 1)
	scale := utils.Clamp(1+p.BreathingAmplitude*math.Sin(2*math.Pi*phase), p.MinScale, p.MaxScale)

	return VisualState{
		Index:     i,
		Timestamp: ts,
		Scroll:    scroll,
		Window:    m.window(i),
		Phase:     phase,
		Angle:     2 * math.Pi * phase,
		Scale:     scale,
		Alpha:     m.alpha(ts),
	}, nil
}

// window samples Columns positions ending at frame i. Positions are kept in
// frame units so the newest column lands exactly on frame i.
func (m *Machine) window(i int) []float64 {
	cols := m.params.Columns
	out := make([]float64, cols)
	span := m.width * float64(m.frames)

	for j := range out {
		x := float64(i)
		if cols > 1 {
			x -= span * (1 - float64(j)/float64(cols-1))
		}
		if x < 0 {
			continue
		}
		out[j] = utils.Clamp(m.at(x), 0, 1)
	}

	return out
}

// at interpolates the per-frame amplitudes at fractional frame x.
func (m *Machine) at(x float64) float64 {
	last := m.frames - 1
	if x >= float64(last) {
		return m.amps[last]
	}

	lo := int(x)
	return utils.Lerp(m.amps[lo], m.amps[lo+1], x-float64(lo))
}

func (m *Machine) alpha(ts float64) float64 {
	fade := m.params.FadeSeconds
	if fade <= 0 {
		return 1
	}

	return utils.Clamp(min(ts/fade, (m.params.Duration-ts)/fade), 0, 1)
}
