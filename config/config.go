// SPDX-License-Identifier: EPL-2.0

// Package config loads the wavereel configuration: built-in defaults, then an
// optional YAML file, then a .env file and WAVEREEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ik5/wavereel/waveform"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the complete runtime configuration.
type Config struct {
	Render    RenderConfig    `yaml:"render"`
	Waveform  WaveformConfig  `yaml:"waveform"`
	Viewport  ViewportConfig  `yaml:"viewport"`
	Breathing BreathingConfig `yaml:"breathing"`
	Cache     CacheConfig     `yaml:"cache"`
	Audio     AudioConfig     `yaml:"audio"`
	Assets    AssetsConfig    `yaml:"assets"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Log       LogConfig       `yaml:"log"`
}

type RenderConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"frame_rate"`
	// Workers render frames of one file in parallel.
	Workers int `yaml:"workers"`
	// BatchSize is the number of frames rendered between two in-order flushes.
	BatchSize int `yaml:"batch_size"`
	// ParallelFiles is how many files of a batch render at once.
	ParallelFiles int     `yaml:"parallel_files"`
	FadeSeconds   float64 `yaml:"fade_seconds"`
	OutputDir     string  `yaml:"output_dir"`
}

type WaveformConfig struct {
	EnvelopeResolution float64       `yaml:"envelope_resolution"`
	SchemaVersion      uint16        `yaml:"schema_version"`
	AnalysisTimeout    time.Duration `yaml:"analysis_timeout"`
}

type ViewportConfig struct {
	WidthFraction float64 `yaml:"width_fraction"`
	// Seconds, when positive, fixes the visible window in seconds instead.
	Seconds float64 `yaml:"seconds"`
	Columns int     `yaml:"columns"`
}

type BreathingConfig struct {
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
	MinScale  float64 `yaml:"min_scale"`
	MaxScale  float64 `yaml:"max_scale"`
}

const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type CacheConfig struct {
	Backend string `yaml:"backend"`
	// Dir holds file cache entries; empty keeps them beside each source file.
	Dir           string        `yaml:"dir"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

type AudioConfig struct {
	SampleRate   int     `yaml:"sample_rate"`
	IntroSeconds float64 `yaml:"intro_seconds"`
	OutroSeconds float64 `yaml:"outro_seconds"`
	EQ           bool    `yaml:"eq"`
	HighpassHz   float64 `yaml:"highpass_hz"`
	LowpassHz    float64 `yaml:"lowpass_hz"`
	Threshold    float64 `yaml:"threshold"`
	Ratio        float64 `yaml:"ratio"`
	TargetPeak   float64 `yaml:"target_peak"`
}

type AssetsConfig struct {
	Logo        string `yaml:"logo"`
	PodcastName string `yaml:"podcast_name"`
	TitlesFile  string `yaml:"titles_file"`
}

type FFmpegConfig struct {
	Path       string `yaml:"path"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
	// Frames writes PNG frames instead of invoking ffmpeg.
	Frames bool `yaml:"frames"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Width:         1920,
			Height:        1080,
			FPS:           30,
			Workers:       4,
			BatchSize:     64,
			ParallelFiles: 1,
			FadeSeconds:   2,
			OutputDir:     "output",
		},
		Waveform: WaveformConfig{
			EnvelopeResolution: 100,
			SchemaVersion:      waveform.SchemaVersion,
			AnalysisTimeout:    10 * time.Minute,
		},
		Viewport: ViewportConfig{
			WidthFraction: 0.3,
			Columns:       240,
		},
		Breathing: BreathingConfig{
			Frequency: 0.25,
			Amplitude: 0.05,
			MinScale:  0.9,
			MaxScale:  1.1,
		},
		Cache: CacheConfig{
			Backend:   CacheFile,
			RedisAddr: "localhost:6379",
			RedisTTL:  30 * 24 * time.Hour,
		},
		Audio: AudioConfig{
			SampleRate:   44100,
			IntroSeconds: 3,
			OutroSeconds: 2.5,
			EQ:           true,
			HighpassHz:   80,
			LowpassHz:    12000,
			Threshold:    0.5,
			Ratio:        2,
			TargetPeak:   0.7,
		},
		Assets: AssetsConfig{
			Logo:        "assets/podcast_logo.png",
			PodcastName: "",
			TitlesFile:  "episode_titles.json",
		},
		FFmpeg: FFmpegConfig{
			Path:       "ffmpeg",
			Preset:     "medium",
			CRF:        23,
			VideoCodec: "libx264",
			AudioCodec: "aac",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Candidates are searched in order when Load is called without a path.
var Candidates = []string{"wavereel.yaml", "config.yaml"}

// Load builds the configuration from defaults, the YAML file at path (or the
// first of Candidates that exists), ./.env and the environment.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range Candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// godotenv never overrides variables already set in the environment.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
