// SPDX-License-Identifier: EPL-2.0

package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "WAVEREEL_"

type envVar struct {
	name string
	set  func(string) error
}

func str(p *string) func(string) error {
	return func(v string) error { *p = v; return nil }
}

func integer(p *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*p = n
		return nil
	}
}

func uint16v(p *uint16) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return err
		}
		*p = uint16(n)
		return nil
	}
}

func float(p *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*p = f
		return nil
	}
}

func boolean(p *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*p = b
		return nil
	}
}

func duration(p *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*p = d
		return nil
	}
}

// envVars binds every overridable key to its field in c.
func (c *Config) envVars() []envVar {
	return []envVar{
		{"RENDER_WIDTH", integer(&c.Render.Width)},
		{"RENDER_HEIGHT", integer(&c.Render.Height)},
		{"FRAME_RATE", float(&c.Render.FPS)},
		{"RENDER_WORKERS", integer(&c.Render.Workers)},
		{"RENDER_BATCH_SIZE", integer(&c.Render.BatchSize)},
		{"RENDER_PARALLEL_FILES", integer(&c.Render.ParallelFiles)},
		{"RENDER_FADE_SECONDS", float(&c.Render.FadeSeconds)},
		{"OUTPUT_DIR", str(&c.Render.OutputDir)},

		{"ENVELOPE_RESOLUTION", float(&c.Waveform.EnvelopeResolution)},
		{"SCHEMA_VERSION", uint16v(&c.Waveform.SchemaVersion)},
		{"ANALYSIS_TIMEOUT", duration(&c.Waveform.AnalysisTimeout)},

		{"VIEWPORT_WIDTH_FRACTION", float(&c.Viewport.WidthFraction)},
		{"VIEWPORT_SECONDS", float(&c.Viewport.Seconds)},
		{"VIEWPORT_COLUMNS", integer(&c.Viewport.Columns)},

		{"BREATHING_FREQUENCY", float(&c.Breathing.Frequency)},
		{"BREATHING_AMPLITUDE", float(&c.Breathing.Amplitude)},
		{"BREATHING_MIN_SCALE", float(&c.Breathing.MinScale)},
		{"BREATHING_MAX_SCALE", float(&c.Breathing.MaxScale)},

		{"CACHE_BACKEND", str(&c.Cache.Backend)},
		{"CACHE_DIR", str(&c.Cache.Dir)},
		{"REDIS_ADDR", str(&c.Cache.RedisAddr)},
		{"REDIS_PASSWORD", str(&c.Cache.RedisPassword)},
		{"REDIS_DB", integer(&c.Cache.RedisDB)},
		{"REDIS_TTL", duration(&c.Cache.RedisTTL)},

		{"AUDIO_SAMPLE_RATE", integer(&c.Audio.SampleRate)},
		{"AUDIO_INTRO_SECONDS", float(&c.Audio.IntroSeconds)},
		{"AUDIO_OUTRO_SECONDS", float(&c.Audio.OutroSeconds)},
		{"AUDIO_EQ", boolean(&c.Audio.EQ)},

		{"LOGO", str(&c.Assets.Logo)},
		{"PODCAST_NAME", str(&c.Assets.PodcastName)},
		{"TITLES_FILE", str(&c.Assets.TitlesFile)},

		{"FFMPEG_PATH", str(&c.FFmpeg.Path)},
		{"FFMPEG_PRESET", str(&c.FFmpeg.Preset)},
		{"FFMPEG_CRF", integer(&c.FFmpeg.CRF)},

		{"LOG_LEVEL", str(&c.Log.Level)},
		{"LOG_FILE", str(&c.Log.File)},
	}
}

// applyEnv overrides fields from the environment. A value that does not parse
// is an error naming the variable.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range c.envVars() {
		val, ok := lookup(EnvPrefix + ev.name)
		if !ok {
			continue
		}
		if err := ev.set(val); err != nil {
			return fmt.Errorf("%w: %s%s=%q: %w", ErrInvalid, EnvPrefix, ev.name, val, err)
		}
	}

	return nil
}
