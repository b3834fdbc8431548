// SPDX-License-Identifier: EPL-2.0

package config

import (
	"github.com/ik5/wavereel/assemble"
	"github.com/ik5/wavereel/cache"
	"github.com/ik5/wavereel/enhance"
	"github.com/ik5/wavereel/frame"
	"github.com/ik5/wavereel/logger"
	"github.com/ik5/wavereel/waveform"
)

// FrameParams returns the animation parameters for a track of duration seconds.
func (c *Config) FrameParams(duration float64) frame.Params {
	return frame.Params{
		FPS:                c.Render.FPS,
		Duration:           duration,
		ViewportFraction:   c.Viewport.WidthFraction,
		ViewportSeconds:    c.Viewport.Seconds,
		Columns:            c.Viewport.Columns,
		BreathingFrequency: c.Breathing.Frequency,
		BreathingAmplitude: c.Breathing.Amplitude,
		MinScale:           c.Breathing.MinScale,
		MaxScale:           c.Breathing.MaxScale,
		FadeSeconds:        c.Render.FadeSeconds,
	}
}

func (c *Config) EnhanceSettings() enhance.Settings {
	a := c.Audio
	return enhance.Settings{
		SampleRate:   a.SampleRate,
		EQ:           a.EQ,
		HighpassHz:   a.HighpassHz,
		LowpassHz:    a.LowpassHz,
		Threshold:    a.Threshold,
		Ratio:        a.Ratio,
		TargetPeak:   a.TargetPeak,
		IntroSeconds: a.IntroSeconds,
		OutroSeconds: a.OutroSeconds,
	}
}

func (c *Config) AnalyzerConfig() waveform.Config {
	return waveform.Config{
		Resolution: c.Waveform.EnvelopeResolution,
		Timeout:    c.Waveform.AnalysisTimeout,
	}
}

func (c *Config) FFmpegConfig() assemble.FFmpegConfig {
	return assemble.FFmpegConfig{
		Path:       c.FFmpeg.Path,
		VideoCodec: c.FFmpeg.VideoCodec,
		AudioCodec: c.FFmpeg.AudioCodec,
		Preset:     c.FFmpeg.Preset,
		CRF:        c.FFmpeg.CRF,
	}
}

func (c *Config) RedisOptions() cache.RedisOptions {
	return cache.RedisOptions{
		Addr:     c.Cache.RedisAddr,
		Password: c.Cache.RedisPassword,
		DB:       c.Cache.RedisDB,
		TTL:      c.Cache.RedisTTL,
	}
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}
