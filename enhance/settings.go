// SPDX-License-Identifier: EPL-2.0

package enhance

import (
	"fmt"
	"strconv"
	"strings"
)

// Settings control how narration is processed before analysis and muxing.
type Settings struct {
	// SampleRate of the processed file; 0 keeps the source rate.
	SampleRate int

	EQ         bool
	HighpassHz float64
	LowpassHz  float64

	// Compression above Threshold divides the excess by Ratio.
	Threshold float64
	Ratio     float64
	// TargetPeak is the peak after normalization, before the limiter.
	TargetPeak float64

	// Intro and outro music bed lengths. 0 disables a bed.
	IntroSeconds float64
	OutroSeconds float64
}

func DefaultSettings() Settings {
	return Settings{
		SampleRate:   44100,
		EQ:           true,
		HighpassHz:   80,
		LowpassHz:    12000,
		Threshold:    0.5,
		Ratio:        2,
		TargetPeak:   0.7,
		IntroSeconds: 3,
		OutroSeconds: 2.5,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.SampleRate < 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidSettings, s.SampleRate)
	case s.Threshold <= 0 || s.Threshold > 1:
		return fmt.Errorf("%w: threshold %v outside (0, 1]", ErrInvalidSettings, s.Threshold)
	case s.Ratio < 1:
		return fmt.Errorf("%w: ratio %v below 1", ErrInvalidSettings, s.Ratio)
	case s.TargetPeak <= 0 || s.TargetPeak > 1:
		return fmt.Errorf("%w: target peak %v outside (0, 1]", ErrInvalidSettings, s.TargetPeak)
	case s.IntroSeconds < 0 || s.OutroSeconds < 0:
		return fmt.Errorf("%w: negative intro/outro length", ErrInvalidSettings)
	case s.EQ && (s.HighpassHz < 0 || s.LowpassHz < 0):
		return fmt.Errorf("%w: negative EQ cutoff", ErrInvalidSettings)
	}

	return nil
}

// Salt identifies the settings that change the processed audio. Mix it into
// the source fingerprint so cached envelopes follow the processing.
func (s Settings) Salt() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	parts := []string{
		"enhance/1",
		"sr=" + strconv.Itoa(s.SampleRate),
		"thr=" + f(s.Threshold),
		"ratio=" + f(s.Ratio),
		"peak=" + f(s.TargetPeak),
		"intro=" + f(s.IntroSeconds),
		"outro=" + f(s.OutroSeconds),
	}
	if s.EQ {
		parts = append(parts, "hp="+f(s.HighpassHz), "lp="+f(s.LowpassHz))
	}

	return strings.Join(parts, ";")
}
