// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/wavereel/utils"
)

// Resampler streams from src to a target sample rate using Catmull-Rom
// interpolation over a four frame window. Works on interleaved samples and
// preserves the channel count. When downsampling, a one-pole low-pass runs on
// the input frames to tame aliasing.
type Resampler struct {
	src      Source
	dstRate  int
	step     float64 // source frames advanced per output frame
	channels int

	// window[0..3] hold frames t-1, t0, t+1, t+2.
	window [4][]float32
	filled [4]bool
	primed bool
	eof    bool
	pos    float64 // fractional position between window[1] and window[2]

	frame []float32

	lowpass bool
	alpha   float32
	state   []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	step := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		step:     step,
		channels: channels,
		frame:    make([]float32, channels),
		lowpass:  step > 1.0,
		alpha:    0.5,
		state:    make([]float32, channels),
	}

	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// readFrame pulls a single frame from the source into r.frame.
func (r *Resampler) readFrame() (bool, error) {
	if r.eof {
		return false, io.EOF
	}

	n, err := r.src.ReadSamples(r.frame)
	if err == io.EOF {
		r.eof = true
	} else if err != nil {
		return false, fmt.Errorf("%w", err)
	}

	if n < r.channels {
		return false, nil
	}

	if r.lowpass {
		for c, v := range r.frame {
			r.state[c] = r.alpha*v + (1-r.alpha)*r.state[c]
			r.frame[c] = r.state[c]
		}
	}

	return true, nil
}

// prime fills t0..t+2 from the source. t-1 stays empty so the first output
// lands on the first input frame. Missing trailing frames repeat the last one read.
func (r *Resampler) prime() error {
	r.primed = true

	got := 0
	for i := 1; i < len(r.window); i++ {
		if i == 1 && r.lowpass {
			// Seed the filter with the first frame to avoid a fade-in transient.
			n, err := r.src.ReadSamples(r.frame)
			if err == io.EOF {
				r.eof = true
			} else if err != nil {
				return fmt.Errorf("%w", err)
			}
			if n < r.channels {
				break
			}
			copy(r.state, r.frame)
		} else {
			ok, err := r.readFrame()
			if err != nil && err != io.EOF {
				return err
			}
			if !ok {
				break
			}
		}

		copy(r.window[i], r.frame)
		r.filled[i] = true
		got++
	}

	if got == 0 {
		return io.EOF
	}

	for i := got + 1; i < len(r.window); i++ {
		copy(r.window[i], r.window[got])
		r.filled[i] = true
	}

	return nil
}

// advance shifts the window by one frame. Returns io.EOF once the frame
// after t0 is gone.
func (r *Resampler) advance() error {
	copy(r.window[0], r.window[1])
	copy(r.window[1], r.window[2])
	copy(r.window[2], r.window[3])
	r.filled[0], r.filled[1], r.filled[2] = r.filled[1], r.filled[2], r.filled[3]

	ok, err := r.readFrame()
	if err != nil && err != io.EOF {
		return err
	}

	r.filled[3] = ok
	if ok {
		copy(r.window[3], r.frame)
	}

	if !r.filled[2] {
		return io.EOF
	}

	return nil
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of r.channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	frames := len(dst) / r.channels
	written := 0

	for written < frames {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				return r.finish(written, err)
			}
		}

		if !r.filled[1] || !r.filled[2] {
			return r.finish(written, io.EOF)
		}

		x := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			y1 := r.window[1][c]
			y2 := r.window[2][c]
			y0, y3 := y1, y2
			if r.filled[0] {
				y0 = r.window[0][c]
			}
			if r.filled[3] {
				y3 = r.window[3][c]
			}
			out[c] = utils.CubicInterpolate(y0, y1, y2, y3, x)
		}

		written++
		r.pos += r.step
	}

	return written * r.channels, nil
}

func (r *Resampler) finish(written int, err error) (int, error) {
	if written == 0 {
		return 0, err
	}

	return written * r.channels, err
}
