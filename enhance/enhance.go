// SPDX-License-Identifier: EPL-2.0

// Package enhance turns raw narration into the processed mono track that is
// analyzed and muxed into the video.
//
// Processing streams the source twice. The first pass gathers the DC offset
// and the peak the compressor will produce; the second pass applies EQ, DC
// removal, compression, peak normalization and a soft limiter and writes
// 16-bit PCM. Optional synthesized music beds are placed before and after
// the speech.
package enhance

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/ik5/wavereel/audio"
	"github.com/ik5/wavereel/formats/wav"
)

// Result describes a processed file.
type Result struct {
	Path       string
	SampleRate int
	Frames     int64
	// Duration in seconds, music beds included.
	Duration float64
	// SpeechOffset is where the narration starts, in seconds.
	SpeechOffset float64
}

type Processor struct {
	reg *audio.Registry
	s   Settings
	log *zap.Logger
}

func New(reg *audio.Registry, s Settings, log *zap.Logger) (*Processor, error) {
	if reg == nil {
		return nil, audio.ErrNilRegistry
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Processor{reg: reg, s: s, log: log}, nil
}

func (p *Processor) Settings() Settings { return p.s }

// Narration whose DC-free peak stays below this is left at unity gain.
const silenceFloor = 1e-6

// stats are gathered by the first pass.
type stats struct {
	frames   int64
	sum      float64
	min, max float64
}

func (st stats) mean() float64 {
	if st.frames == 0 {
		return 0
	}
	return st.sum / float64(st.frames)
}

// compress applies the static curve: the part of |x| above threshold is
// divided by ratio.
func compress(x, threshold, ratio float64) float64 {
	a := math.Abs(x)
	if a <= threshold {
		return x
	}

	return math.Copysign(threshold+(a-threshold)/ratio, x)
}

func limit(x float64) float64 {
	return math.Tanh(x*0.9) * 0.8
}

func (p *Processor) open(path string) (audio.Source, error) {
	src, err := audio.OpenFile(p.reg, path)
	if err != nil {
		return nil, err
	}

	return audio.NewMonoPipeline(src, p.s.SampleRate), nil
}

// pass streams the narration through the EQ and hands every filtered chunk to fn.
func (p *Processor) pass(ctx context.Context, path string, fn func(rate int, chunk []float64) error) error {
	src, err := p.open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	rate := src.SampleRate()
	eq := newEQ(p.s, rate)
	var buf []float64

	return audio.Drain(src, src.BufSize(), func(chunk []float32) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		buf = buf[:0]
		for _, v := range chunk {
			buf = append(buf, eq.process(float64(v)))
		}

		return fn(rate, buf)
	})
}

func (p *Processor) measure(ctx context.Context, path string) (stats, int, error) {
	st := stats{min: math.Inf(1), max: math.Inf(-1)}
	var rate int

	err := p.pass(ctx, path, func(r int, chunk []float64) error {
		rate = r
		if len(chunk) == 0 {
			return nil
		}
		st.frames += int64(len(chunk))
		st.sum += floats.Sum(chunk)
		st.min = min(st.min, floats.Min(chunk))
		st.max = max(st.max, floats.Max(chunk))
		return nil
	})
	if err != nil {
		return stats{}, 0, err
	}

	return st, rate, nil
}

// gain maps the compressed peak to the target peak. compress is monotonic in
// |x|, so the compressed peak follows from the DC-free extremes.
func (p *Processor) gain(st stats) float64 {
	mean := st.mean()
	extreme := max(st.max-mean, mean-st.min)
	peak := compress(extreme, p.s.Threshold, p.s.Ratio)
	if peak <= silenceFloor {
		return 1
	}

	return p.s.TargetPeak / peak
}

// Process writes the processed version of src to dst as a mono 16-bit WAV.
// The file appears atomically; a failed or cancelled run leaves dst untouched.
func (p *Processor) Process(ctx context.Context, src, dst string) (Result, error) {
	st, rate, err := p.measure(ctx, src)
	if err != nil {
		return Result{}, fmt.Errorf("measure %s: %w", filepath.Base(src), err)
	}
	if st.frames == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrEmptyAudio, filepath.Base(src))
	}

	mean := st.mean()
	gain := p.gain(st)

	p.log.Debug("narration measured",
		zap.String("file", filepath.Base(src)),
		zap.Int64("frames", st.frames),
		zap.Int("sample_rate", rate),
		zap.Float64("dc_offset", mean),
		zap.Float64("gain", gain),
	)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Result{}, fmt.Errorf("%w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("%w", err)
	}
	defer os.Remove(tmp.Name())

	frames, err := p.write(ctx, tmp, src, rate, mean, gain)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w", cerr)
	}
	if err != nil {
		return Result{}, fmt.Errorf("process %s: %w", filepath.Base(src), err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Result{}, fmt.Errorf("%w", err)
	}

	res := Result{
		Path:         dst,
		SampleRate:   rate,
		Frames:       frames,
		Duration:     float64(frames) / float64(rate),
		SpeechOffset: float64(int(p.s.IntroSeconds*float64(rate))) / float64(rate),
	}

	p.log.Info("narration processed",
		zap.String("file", filepath.Base(src)),
		zap.String("output", dst),
		zap.Float64("duration", res.Duration),
	)

	return res, nil
}

func (p *Processor) write(ctx context.Context, f *os.File, src string, rate int, mean, gain float64) (int64, error) {
	w, err := wav.NewWriter(f, rate, 1)
	if err != nil {
		return 0, err
	}

	if err := w.WriteSamples(introBed.render(p.s.IntroSeconds, rate)); err != nil {
		return 0, err
	}

	var out []float32
	err = p.pass(ctx, src, func(_ int, chunk []float64) error {
		out = out[:0]
		for _, v := range chunk {
			v = compress(v-mean, p.s.Threshold, p.s.Ratio) * gain
			out = append(out, float32(limit(v)))
		}
		return w.WriteSamples(out)
	})
	if err != nil {
		return 0, err
	}

	if err := w.WriteSamples(outroBed.render(p.s.OutroSeconds, rate)); err != nil {
		return 0, err
	}

	if err := w.Close(); err != nil {
		return 0, err
	}

	return w.Frames(), nil
}
