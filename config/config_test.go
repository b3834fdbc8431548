// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ik5/wavereel/waveform"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wavereel.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDefault_Valid(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestDefault_SchemaFollowsAnalyzer(t *testing.T) {
	t.Parallel()

	if got := Default().Waveform.SchemaVersion; got != waveform.SchemaVersion {
		t.Errorf("Default().Waveform.SchemaVersion = %d, want %d", got, waveform.SchemaVersion)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, `
render:
  width: 1280
  height: 720
  frame_rate: 25
waveform:
  envelope_resolution: 50
  analysis_timeout: 90s
viewport:
  width_fraction: 0.5
breathing:
  frequency: 0.5
cache:
  backend: memory
`)

	cfg, err := load(path, "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Render.Width != 1280 || cfg.Render.Height != 720 || cfg.Render.FPS != 25 {
		t.Errorf("Render = %+v", cfg.Render)
	}
	if cfg.Waveform.EnvelopeResolution != 50 || cfg.Waveform.AnalysisTimeout != 90*time.Second {
		t.Errorf("Waveform = %+v", cfg.Waveform)
	}
	if cfg.Viewport.WidthFraction != 0.5 || cfg.Breathing.Frequency != 0.5 {
		t.Errorf("Viewport = %+v, Breathing = %+v", cfg.Viewport, cfg.Breathing)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Viewport.Columns != 240 || cfg.Waveform.SchemaVersion != 1 {
		t.Errorf("defaults lost: columns %d, schema %d", cfg.Viewport.Columns, cfg.Waveform.SchemaVersion)
	}
	if cfg.Cache.Backend != CacheMemory {
		t.Errorf("Cache.Backend = %q", cfg.Cache.Backend)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	if _, err := load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Error("load() on missing file succeeded")
	}

	path := writeTempConfig(t, ":\n:bad")
	if _, err := load(path, ""); err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("load() error = %v, want parse error", err)
	}

	path = writeTempConfig(t, "render:\n  width: 1001\n")
	_, err := load(path, "")
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "render.width") {
		t.Errorf("load() error = %v, want ErrInvalid naming render.width", err)
	}
}

func TestValidate_NamesKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key    string
		mutate func(*Config)
	}{
		{"render.height", func(c *Config) { c.Render.Height = 0 }},
		{"render.frame_rate", func(c *Config) { c.Render.FPS = 0 }},
		{"render.workers", func(c *Config) { c.Render.Workers = 0 }},
		{"waveform.envelope_resolution", func(c *Config) { c.Waveform.EnvelopeResolution = -1 }},
		{"waveform.schema_version", func(c *Config) { c.Waveform.SchemaVersion = 0 }},
		{"viewport.width_fraction", func(c *Config) { c.Viewport.WidthFraction = 1.5 }},
		{"viewport.columns", func(c *Config) { c.Viewport.Columns = 1 }},
		{"breathing.frequency", func(c *Config) { c.Breathing.Frequency = -0.1 }},
		{"breathing.min_scale", func(c *Config) { c.Breathing.MinScale = 1.2 }},
		{"cache.backend", func(c *Config) { c.Cache.Backend = "s3" }},
		{"cache.redis_addr", func(c *Config) { c.Cache.Backend = CacheRedis; c.Cache.RedisAddr = "" }},
		{"audio.ratio", func(c *Config) { c.Audio.Ratio = 0.5 }},
		{"ffmpeg.crf", func(c *Config) { c.FFmpeg.CRF = 60 }},
		{"log.level", func(c *Config) { c.Log.Level = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() error = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Validate() error = %q, want it to name %s", err, tt.key)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"WAVEREEL_FRAME_RATE":              "24",
		"WAVEREEL_ENVELOPE_RESOLUTION":     "200",
		"WAVEREEL_SCHEMA_VERSION":          "2",
		"WAVEREEL_VIEWPORT_WIDTH_FRACTION": "0.25",
		"WAVEREEL_BREATHING_AMPLITUDE":     "0.1",
		"WAVEREEL_REDIS_TTL":               "1h",
		"WAVEREEL_AUDIO_EQ":                "false",
		"WAVEREEL_PODCAST_NAME":            "Night Shift",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if cfg.Render.FPS != 24 || cfg.Waveform.EnvelopeResolution != 200 || cfg.Waveform.SchemaVersion != 2 {
		t.Errorf("numeric overrides not applied: %+v %+v", cfg.Render, cfg.Waveform)
	}
	if cfg.Viewport.WidthFraction != 0.25 || cfg.Breathing.Amplitude != 0.1 {
		t.Errorf("viewport/breathing overrides not applied")
	}
	if cfg.Cache.RedisTTL != time.Hour || cfg.Audio.EQ || cfg.Assets.PodcastName != "Night Shift" {
		t.Errorf("other overrides not applied: ttl %s, eq %v, name %q", cfg.Cache.RedisTTL, cfg.Audio.EQ, cfg.Assets.PodcastName)
	}

	untouched := Default()
	if err := untouched.applyEnv(noEnv); err != nil {
		t.Fatal(err)
	}
	if untouched.Render != Default().Render {
		t.Error("applyEnv() without variables changed the config")
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Parallel()

	lookup := func(k string) (string, bool) {
		if k == "WAVEREEL_RENDER_WORKERS" {
			return "many", true
		}
		return "", false
	}

	err := Default().applyEnv(lookup)
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "WAVEREEL_RENDER_WORKERS") {
		t.Errorf("applyEnv() error = %v, want ErrInvalid naming the variable", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("WAVEREEL_RENDER_WORKERS", "9")

	path := writeTempConfig(t, "render:\n  workers: 2\n")
	cfg, err := load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Render.Workers != 9 {
		t.Errorf("Render.Workers = %d, want 9", cfg.Render.Workers)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	t.Cleanup(func() { os.Unsetenv("WAVEREEL_VIEWPORT_COLUMNS") })

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("WAVEREEL_VIEWPORT_COLUMNS=120\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(writeTempConfig(t, ""), envFile)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Viewport.Columns != 120 {
		t.Errorf("Viewport.Columns = %d, want 120", cfg.Viewport.Columns)
	}

	if _, err := load(writeTempConfig(t, ""), filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("load() with missing .env error = %v", err)
	}
}

func TestConversions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Viewport.Seconds = 8

	p := cfg.FrameParams(120)
	if p.Duration != 120 || p.FPS != 30 || p.ViewportSeconds != 8 || p.Columns != 240 {
		t.Errorf("FrameParams() = %+v", p)
	}
	if err := cfg.EnhanceSettings().Validate(); err != nil {
		t.Errorf("EnhanceSettings().Validate() error = %v", err)
	}
	if a := cfg.AnalyzerConfig(); a.Resolution != 100 || a.Timeout != 10*time.Minute {
		t.Errorf("AnalyzerConfig() = %+v", a)
	}
	if f := cfg.FFmpegConfig(); f.CRF != 23 || f.VideoCodec != "libx264" {
		t.Errorf("FFmpegConfig() = %+v", f)
	}
	if r := cfg.RedisOptions(); r.Addr != "localhost:6379" {
		t.Errorf("RedisOptions() = %+v", r)
	}
	if l := cfg.LoggerConfig(); l.Level != "info" {
		t.Errorf("LoggerConfig() = %+v", l)
	}
}
