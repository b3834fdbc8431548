// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds synthetic sources and on-disk fixtures for tests.
package audiotest

import (
	"io"
	"math"
)

// Waveform yields the value of sample (per channel index) on channel.
type Waveform func(sample, channel int) float32

// Source generates a finite interleaved stream from a Waveform. It satisfies
// audio.Source without importing it.
type Source struct {
	sampleRate int
	channels   int
	frames     int
	pos        int
	wave       Waveform

	// ReadErr, when set, is returned once pos reaches FailAt.
	ReadErr error
	FailAt  int

	closed bool
}

func New(sampleRate, channels, frames int, wave Waveform) *Source {
	return &Source{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		wave:       wave,
	}
}

func Silent(sampleRate, channels, frames int) *Source {
	return New(sampleRate, channels, frames, func(int, int) float32 { return 0 })
}

func Constant(sampleRate, channels, frames int, v float32) *Source {
	return New(sampleRate, channels, frames, func(int, int) float32 { return v })
}

func Sine(sampleRate, channels, frames int, freq, amp float64) *Source {
	return New(sampleRate, channels, frames, func(s, _ int) float32 {
		t := float64(s) / float64(sampleRate)
		return float32(amp * math.Sin(2*math.Pi*freq*t))
	})
}

// Impulse is silent except for a single sample of value v at frame at.
func Impulse(sampleRate, channels, frames, at int, v float32) *Source {
	return New(sampleRate, channels, frames, func(s, _ int) float32 {
		if s == at {
			return v
		}
		return 0
	})
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BufSize() int    { return 4096 }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool { return s.closed }

// Reset rewinds the stream.
func (s *Source) Reset() { s.pos = 0 }

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.ReadErr != nil && s.pos >= s.FailAt {
		return 0, s.ReadErr
	}

	if s.pos >= s.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/s.channels, s.frames-s.pos)
	if s.ReadErr != nil && s.pos+n > s.FailAt {
		n = s.FailAt - s.pos
	}

	for f := range n {
		for c := range s.channels {
			dst[f*s.channels+c] = s.wave(s.pos+f, c)
		}
	}
	s.pos += n

	if s.pos >= s.frames {
		return n * s.channels, io.EOF
	}

	return n * s.channels, nil
}
