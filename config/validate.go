// SPDX-License-Identifier: EPL-2.0

package config

import (
	"fmt"
	"strings"
)

func invalid(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalid, key, fmt.Sprintf(format, args...))
}

// Validate checks the configuration and names the first offending key.
func (c *Config) Validate() error {
	r := c.Render
	switch {
	case r.Width <= 0 || r.Width%2 != 0:
		return invalid("render.width", "must be a positive even number, got %d", r.Width)
	case r.Height <= 0 || r.Height%2 != 0:
		return invalid("render.height", "must be a positive even number, got %d", r.Height)
	case r.FPS <= 0:
		return invalid("render.frame_rate", "must be positive, got %v", r.FPS)
	case r.Workers <= 0:
		return invalid("render.workers", "must be positive, got %d", r.Workers)
	case r.BatchSize <= 0:
		return invalid("render.batch_size", "must be positive, got %d", r.BatchSize)
	case r.ParallelFiles <= 0:
		return invalid("render.parallel_files", "must be positive, got %d", r.ParallelFiles)
	case r.FadeSeconds < 0:
		return invalid("render.fade_seconds", "must not be negative, got %v", r.FadeSeconds)
	}

	w := c.Waveform
	switch {
	case w.EnvelopeResolution <= 0:
		return invalid("waveform.envelope_resolution", "must be positive, got %v", w.EnvelopeResolution)
	case w.SchemaVersion == 0:
		return invalid("waveform.schema_version", "must be at least 1")
	case w.AnalysisTimeout < 0:
		return invalid("waveform.analysis_timeout", "must not be negative, got %s", w.AnalysisTimeout)
	}

	v := c.Viewport
	switch {
	case v.WidthFraction <= 0 || v.WidthFraction > 1:
		return invalid("viewport.width_fraction", "must be in (0, 1], got %v", v.WidthFraction)
	case v.Seconds < 0:
		return invalid("viewport.seconds", "must not be negative, got %v", v.Seconds)
	case v.Columns < 2:
		return invalid("viewport.columns", "must be at least 2, got %d", v.Columns)
	}

	b := c.Breathing
	switch {
	case b.Frequency < 0:
		return invalid("breathing.frequency", "must not be negative, got %v", b.Frequency)
	case b.Amplitude < 0:
		return invalid("breathing.amplitude", "must not be negative, got %v", b.Amplitude)
	case b.MinScale <= 0 || b.MaxScale < b.MinScale:
		return invalid("breathing.min_scale", "must satisfy 0 < min_scale <= max_scale, got %v..%v", b.MinScale, b.MaxScale)
	}

	switch c.Cache.Backend {
	case CacheFile, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return invalid("cache.redis_addr", "is required for the redis backend")
		}
	default:
		return invalid("cache.backend", "must be one of file, memory, redis, got %q", c.Cache.Backend)
	}

	a := c.Audio
	switch {
	case a.SampleRate < 0:
		return invalid("audio.sample_rate", "must not be negative, got %d", a.SampleRate)
	case a.IntroSeconds < 0:
		return invalid("audio.intro_seconds", "must not be negative, got %v", a.IntroSeconds)
	case a.OutroSeconds < 0:
		return invalid("audio.outro_seconds", "must not be negative, got %v", a.OutroSeconds)
	case a.Threshold <= 0 || a.Threshold > 1:
		return invalid("audio.threshold", "must be in (0, 1], got %v", a.Threshold)
	case a.Ratio < 1:
		return invalid("audio.ratio", "must be at least 1, got %v", a.Ratio)
	case a.TargetPeak <= 0 || a.TargetPeak > 1:
		return invalid("audio.target_peak", "must be in (0, 1], got %v", a.TargetPeak)
	}

	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		return invalid("ffmpeg.crf", "must be in [0, 51], got %d", c.FFmpeg.CRF)
	}
	if !c.FFmpeg.Frames && c.FFmpeg.Path == "" {
		return invalid("ffmpeg.path", "is required")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}
