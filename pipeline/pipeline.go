// SPDX-License-Identifier: EPL-2.0

// Package pipeline renders narration files into videos. Per file it
// fingerprints the source, processes the audio, resolves the envelope from
// the cache or the analyzer, and streams composed frames to an assembler in
// index order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/wavereel/assemble"
	"github.com/ik5/wavereel/cache"
	"github.com/ik5/wavereel/compose"
	"github.com/ik5/wavereel/config"
	"github.com/ik5/wavereel/enhance"
	"github.com/ik5/wavereel/envelope"
	"github.com/ik5/wavereel/episode"
	"github.com/ik5/wavereel/fingerprint"
	"github.com/ik5/wavereel/frame"
	"github.com/ik5/wavereel/waveform"
)

type Analyzer interface {
	Analyze(ctx context.Context, src waveform.AudioSource) (envelope.Envelope, error)
	Resolution() float64
}

type Enhancer interface {
	Process(ctx context.Context, src, dst string) (enhance.Result, error)
	Settings() enhance.Settings
}

// Titles resolves the episode title shown for a file stem.
type Titles interface {
	Resolve(stem string) string
}

type suggestedTitles struct{}

func (suggestedTitles) Resolve(stem string) string { return episode.SuggestTitle(stem) }

// Options wires a Renderer. Config, Caches, Analyzer, Enhancer and Assembler
// are required.
type Options struct {
	Config    *config.Config
	Caches    cache.Provider
	Analyzer  Analyzer
	Enhancer  Enhancer
	Assembler assemble.Assembler
	Titles    Titles
	Observer  Observer
	Logger    *zap.Logger
}

type Renderer struct {
	cfg       *config.Config
	caches    cache.Provider
	analyzer  Analyzer
	enhancer  Enhancer
	assembler assemble.Assembler
	titles    Titles
	obs       Observer
	log       *zap.Logger
}

func New(opts Options) (*Renderer, error) {
	switch {
	case opts.Config == nil:
		return nil, fmt.Errorf("%w: config", ErrIncomplete)
	case opts.Caches == nil:
		return nil, fmt.Errorf("%w: cache", ErrIncomplete)
	case opts.Analyzer == nil:
		return nil, fmt.Errorf("%w: analyzer", ErrIncomplete)
	case opts.Enhancer == nil:
		return nil, fmt.Errorf("%w: enhancer", ErrIncomplete)
	case opts.Assembler == nil:
		return nil, fmt.Errorf("%w: assembler", ErrIncomplete)
	}

	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		cfg:       opts.Config,
		caches:    opts.Caches,
		analyzer:  opts.Analyzer,
		enhancer:  opts.Enhancer,
		assembler: opts.Assembler,
		titles:    opts.Titles,
		obs:       opts.Observer,
		log:       opts.Logger,
	}
	if r.titles == nil {
		r.titles = suggestedTitles{}
	}
	if r.obs == nil {
		r.obs = nopObserver{}
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}

	return r, nil
}

// Result summarizes one rendered file.
type Result struct {
	Path     string
	RunID    string
	Output   string
	Enhanced string
	Title    string
	Frames   int
	Duration float64
	CacheHit bool
	Elapsed  time.Duration
	Err      error
}

// salt ties the fingerprint to every setting that changes the envelope.
func (r *Renderer) salt() string {
	return r.enhancer.Settings().Salt() +
		";res=" + strconv.FormatFloat(r.analyzer.Resolution(), 'g', -1, 64) +
		";schema=" + strconv.Itoa(int(r.cfg.Waveform.SchemaVersion))
}

// prepared is everything a file needs before its frames can be drawn.
type prepared struct {
	path      string
	outs      episode.Outputs
	title     string
	fp        fingerprint.Fingerprint
	assets    *compose.Assets
	processed *enhance.Result
	env       envelope.Envelope
	hit       bool
	machine   *frame.Machine
}

// prepare resolves the envelope of path. The narration is processed up front
// when withAudio is set, otherwise only on a cache miss.
func (r *Renderer) prepare(ctx context.Context, log *zap.Logger, path string, withAudio bool) (*prepared, error) {
	p := &prepared{
		path: path,
		outs: episode.OutputsFor(r.cfg.Render.OutputDir, path),
	}

	fp, err := fingerprint.Of(path, r.salt())
	if err != nil {
		return nil, fileErr(path, StageFingerprint, err)
	}
	p.fp = fp

	p.title = r.titles.Resolve(episode.Stem(path))
	p.assets, err = compose.LoadAssets(compose.AssetSpec{
		LogoPath:    r.cfg.Assets.Logo,
		Title:       p.title,
		PodcastName: r.cfg.Assets.PodcastName,
		Width:       r.cfg.Render.Width,
		Height:      r.cfg.Render.Height,
	})
	if err != nil {
		return nil, fileErr(path, StageAssets, err)
	}

	if withAudio {
		if err := r.process(ctx, log, p); err != nil {
			return nil, err
		}
	}

	slot := fingerprint.Slot(path)
	c := r.caches(path)

	p.env, p.hit = c.Lookup(ctx, slot, fp)
	if !p.hit {
		if p.processed == nil {
			if err := r.process(ctx, log, p); err != nil {
				return nil, err
			}
		}

		src, err := waveform.NewAudioSource(p.processed.Path, "")
		if err != nil {
			return nil, fileErr(path, StageAnalyze, err)
		}
		src.Fingerprint = fp

		p.env, err = r.analyzer.Analyze(ctx, src)
		if err != nil {
			return nil, fileErr(path, StageAnalyze, err)
		}

		// A failed store only costs a future analysis.
		if err := c.Store(ctx, slot, p.env); err != nil {
			log.Warn("failed to store envelope", zap.String("slot", slot), zap.Error(err))
		}
	}

	log.Debug("envelope ready",
		zap.Bool("cache_hit", p.hit),
		zap.Stringer("fingerprint", fp),
		zap.Int("samples", p.env.Len()),
		zap.Float64("duration", p.env.Duration),
	)

	params := r.cfg.FrameParams(p.env.Duration)
	n := frame.FrameCount(p.env.Duration, params.FPS)
	p.machine, err = frame.NewMachine(envelope.Resample(p.env, n, p.env.Duration), params)
	if err != nil {
		return nil, fileErr(path, StageFrames, err)
	}

	return p, nil
}

// process runs the enhancer under waveform.analysis_timeout, the same bound
// the analyzer applies, since both decode the whole track.
func (r *Renderer) process(ctx context.Context, log *zap.Logger, p *prepared) error {
	pctx := ctx
	if timeout := r.cfg.Waveform.AnalysisTimeout; timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := r.enhancer.Process(pctx, p.path, p.outs.Enhanced)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: processing %s after %s", waveform.ErrAnalysisTimeout, filepath.Base(p.path), r.cfg.Waveform.AnalysisTimeout)
		}
		return fileErr(p.path, StageEnhance, err)
	}
	log.Debug("narration processed", zap.String("enhanced", res.Path), zap.Float64("duration", res.Duration))
	p.processed = &res

	return nil
}

// RenderFile renders path into a video. Cancelling ctx aborts the assembler
// between two frames; a stored envelope is always complete.
func (r *Renderer) RenderFile(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	res := Result{Path: path, RunID: uuid.NewString()}
	log := r.log.With(zap.String("file", path), zap.String("run_id", res.RunID))

	p, err := r.prepare(ctx, log, path, true)
	if err != nil {
		log.Error("render failed", zap.Error(err))
		r.obs.FileDone(path, err)
		res.Err = err
		return res, err
	}

	res.Output = p.outs.Video
	res.Enhanced = p.processed.Path
	res.Title = p.title
	res.Frames = p.machine.Frames()
	res.Duration = p.env.Duration
	res.CacheHit = p.hit

	log.Info("rendering",
		zap.String("title", p.title),
		zap.Int("frames", res.Frames),
		zap.Float64("duration", res.Duration),
		zap.Bool("cache_hit", p.hit),
	)
	r.obs.FileStarted(path, res.Frames)

	err = r.assemble(ctx, p)
	res.Elapsed = time.Since(start)
	r.obs.FileDone(path, err)

	if err != nil {
		log.Error("render failed", zap.Error(err))
		res.Err = err
		return res, err
	}

	log.Info("render finished",
		zap.String("output", res.Output),
		zap.Int64("bytes", statSize(res.Output)),
		zap.Duration("elapsed", res.Elapsed),
	)

	return res, nil
}

func (r *Renderer) assemble(ctx context.Context, p *prepared) error {
	job := assemble.Job{
		Output:    p.outs.Video,
		AudioPath: p.processed.Path,
		Width:     r.cfg.Render.Width,
		Height:    r.cfg.Render.Height,
		FPS:       r.cfg.Render.FPS,
		Frames:    p.machine.Frames(),
	}

	sink, err := r.assembler.Open(ctx, job)
	if err != nil {
		return fileErr(p.path, StageAssemble, err)
	}

	comp := compose.NewCompositor(p.assets)
	if err := r.stream(ctx, p.path, p.machine, comp, sink); err != nil {
		if aerr := sink.Abort(); aerr != nil {
			r.log.Warn("abort failed", zap.String("file", p.path), zap.Error(aerr))
		}
		return fileErr(p.path, StageFrames, err)
	}

	if err := sink.Close(); err != nil {
		return fileErr(p.path, StageAssemble, err)
	}

	return nil
}

// stream renders frames in batches with bounded parallelism and hands every
// batch to sink in index order.
func (r *Renderer) stream(ctx context.Context, path string, m *frame.Machine, comp *compose.Compositor, sink assemble.FrameSink) error {
	n := m.Frames()
	batch := r.cfg.Render.BatchSize
	frames := make([]*image.RGBA, batch)

	for start := 0; start < n; start += batch {
		end := min(start+batch, n)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Render.Workers)

		for i := start; i < end; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				img, err := renderFrame(m, comp, i)
				if err != nil {
					return err
				}
				frames[i-start] = img
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := sink.WriteFrame(frames[i-start]); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			frames[i-start] = nil
			r.obs.FrameWritten(path, i)
		}
	}

	return nil
}

func renderFrame(m *frame.Machine, comp *compose.Compositor, i int) (*image.RGBA, error) {
	st, err := m.State(i)
	if err != nil {
		return nil, err
	}

	img, err := comp.Compose(st)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", i, err)
	}

	return img, nil
}

// RenderFrame renders frame i of path on its own. With a cached envelope no
// audio is decoded, which makes single frames cheap to re-render.
func (r *Renderer) RenderFrame(ctx context.Context, path string, i int) (*image.RGBA, error) {
	log := r.log.With(zap.String("file", path), zap.Int("frame", i))

	p, err := r.prepare(ctx, log, path, false)
	if err != nil {
		return nil, err
	}

	img, err := renderFrame(p.machine, compose.NewCompositor(p.assets), i)
	if err != nil {
		return nil, fileErr(path, StageFrames, err)
	}

	return img, nil
}

// Invalidate drops the cached envelope of every path.
func (r *Renderer) Invalidate(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if err := r.caches(path).Invalidate(ctx, fingerprint.Slot(path)); err != nil {
			return fmt.Errorf("invalidate %s: %w", path, err)
		}
	}

	return nil
}

// outputConflicts returns, per path, an error when an earlier path of the
// batch already writes the same outputs. Names are compared case-insensitively
// so the check also holds on case-folding filesystems.
func (r *Renderer) outputConflicts(paths []string) []error {
	errs := make([]error, len(paths))
	owners := make(map[string]string, len(paths))

	for i, path := range paths {
		video := episode.OutputsFor(r.cfg.Render.OutputDir, path).Video
		key := strings.ToLower(filepath.Clean(video))

		if prev, ok := owners[key]; ok {
			errs[i] = fileErr(path, StageOutputs,
				fmt.Errorf("%w: %s is also rendered from %s", ErrOutputConflict, filepath.Base(video), prev))
			continue
		}
		owners[key] = path
	}

	return errs
}

// RenderBatch renders paths with up to render.parallel_files at once. A file
// failure is recorded in its Result and the batch goes on, except for errors
// that IsBatchFatal, which stop the batch and are returned. A file whose
// outputs collide with an earlier file is not rendered and fails with
// ErrOutputConflict. Results keep the order of paths.
func (r *Renderer) RenderBatch(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))
	for i, p := range paths {
		results[i] = Result{Path: p, Err: fileErr(p, StageSkipped, context.Canceled)}
	}

	conflicts := r.outputConflicts(paths)
	for i, err := range conflicts {
		if err != nil {
			results[i].Err = err
			r.log.Error("render skipped", zap.String("file", paths[i]), zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Render.ParallelFiles)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		if conflicts[i] != nil {
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = fileErr(path, StageSkipped, err)
				return nil
			}

			res, err := r.RenderFile(gctx, path)
			results[i] = res
			if IsBatchFatal(err) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	return results, ctx.Err()
}

func statSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
