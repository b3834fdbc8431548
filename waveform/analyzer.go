// SPDX-License-Identifier: EPL-2.0

// Package waveform computes the amplitude envelope of a narration track.
package waveform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/ik5/wavereel/audio"
	"github.com/ik5/wavereel/envelope"
	"github.com/ik5/wavereel/fingerprint"
)

// SchemaVersion identifies the summarizer: peak absolute value per window,
// normalized by the global maximum. Bump it whenever the output changes.
const SchemaVersion uint16 = 1

// SilenceFloor is the largest peak still treated as silence. Tracks below it
// produce an all zero envelope instead of amplifying noise.
const SilenceFloor = 1e-6

const readChunk = 16384

// AudioSource points the analyzer at a decodable file. Fingerprint is stamped
// on the resulting envelope and is usually taken from the original narration.
type AudioSource struct {
	Path        string
	Size        int64
	ModTime     time.Time
	Fingerprint fingerprint.Fingerprint
}

// NewAudioSource stats path and fingerprints it with salt.
func NewAudioSource(path, salt string) (AudioSource, error) {
	fp, err := fingerprint.Of(path, salt)
	if err != nil {
		return AudioSource{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return AudioSource{}, fmt.Errorf("%w: %s: %w", fingerprint.ErrSourceUnavailable, path, err)
	}

	return AudioSource{
		Path:        path,
		Size:        fi.Size(),
		ModTime:     fi.ModTime(),
		Fingerprint: fp,
	}, nil
}

type Config struct {
	// Resolution in envelope samples per second.
	Resolution float64
	// Timeout bounds a single analysis. Zero disables the bound.
	Timeout time.Duration
}

type Analyzer struct {
	registry   *audio.Registry
	resolution float64
	timeout    time.Duration
	log        *zap.Logger
}

func NewAnalyzer(reg *audio.Registry, cfg Config, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = envelope.DefaultResolution
	}

	return &Analyzer{
		registry:   reg,
		resolution: cfg.Resolution,
		timeout:    cfg.Timeout,
		log:        log,
	}
}

func (a *Analyzer) Resolution() float64 { return a.resolution }

// Analyze decodes src.Path to mono and keeps the peak absolute value of every
// 1/Resolution second window. Memory use is proportional to the envelope,
// not to the number of samples.
func (a *Analyzer) Analyze(ctx context.Context, src AudioSource) (envelope.Envelope, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()

	in, err := audio.OpenFile(a.registry, src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return envelope.Envelope{}, fmt.Errorf("%w: %s: %w", fingerprint.ErrSourceUnavailable, src.Path, err)
		}
		return envelope.Envelope{}, fmt.Errorf("%w: %s: %w", ErrDecode, src.Path, err)
	}
	defer in.Close()

	sr := in.SampleRate()
	if sr <= 0 || in.Channels() <= 0 {
		return envelope.Envelope{}, fmt.Errorf("%w: %s: %d Hz, %d channels", ErrDecode, src.Path, sr, in.Channels())
	}

	mono := audio.NewMonoMixer(in)
	rate := float64(sr)

	var (
		peaks []float64
		total int64
	)
	err = audio.Drain(mono, readChunk, func(chunk []float32) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, v := range chunk {
			w := int(float64(total) * a.resolution / rate)
			for len(peaks) <= w {
				peaks = append(peaks, 0)
			}
			peaks[w] = math.Max(peaks[w], math.Abs(float64(v)))
			total++
		}

		return nil
	})
	if err == nil {
		err = ctx.Err()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return envelope.Envelope{}, fmt.Errorf("%w: %s after %s", ErrAnalysisTimeout, src.Path, a.timeout)
	case errors.Is(err, context.Canceled):
		return envelope.Envelope{}, fmt.Errorf("analyze %s: %w", src.Path, err)
	case err != nil:
		return envelope.Envelope{}, fmt.Errorf("%w: %s: %w", ErrDecode, src.Path, err)
	}

	duration := float64(total) / float64(sr)
	peaks = fit(peaks, envelope.ExpectedLen(duration, a.resolution))
	normalize(peaks)

	env := envelope.Envelope{
		Samples:     make([]float32, len(peaks)),
		Resolution:  a.resolution,
		Duration:    duration,
		Fingerprint: src.Fingerprint,
	}
	for i, v := range peaks {
		env.Samples[i] = float32(v)
	}

	a.log.Debug("waveform analyzed",
		zap.String("file", src.Path),
		zap.Int("sample_rate", sr),
		zap.Float64("duration", duration),
		zap.Int("samples", len(env.Samples)),
		zap.Duration("took", time.Since(start)),
	)

	return env, nil
}

// fit forces peaks to n entries. Windows past n come from the trailing
// partial window and merge into the last entry.
func fit(peaks []float64, n int) []float64 {
	if len(peaks) > n {
		if n == 0 {
			return peaks[:0]
		}
		peaks[n-1] = floats.Max(peaks[n-1:])
		return peaks[:n]
	}

	for len(peaks) < n {
		peaks = append(peaks, 0)
	}

	return peaks
}

// normalize scales peaks so the loudest is 1. Silent input is zeroed.
func normalize(peaks []float64) {
	if len(peaks) == 0 {
		return
	}

	peak := floats.Max(peaks)
	if peak <= SilenceFloor {
		for i := range peaks {
			peaks[i] = 0
		}
		return
	}

	floats.Scale(1/peak, peaks)
	// 1/peak*peak can land a hair above 1.
	for i, v := range peaks {
		peaks[i] = min(v, 1)
	}
}
