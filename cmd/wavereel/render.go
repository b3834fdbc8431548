// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ik5/wavereel/assemble"
	"github.com/ik5/wavereel/audio"
	"github.com/ik5/wavereel/config"
	"github.com/ik5/wavereel/enhance"
	"github.com/ik5/wavereel/episode"
	"github.com/ik5/wavereel/pipeline"
	"github.com/ik5/wavereel/waveform"
)

// errFilesFailed is returned after a batch in which some file failed. The
// failures were already reported.
var errFilesFailed = errors.New("some files failed to render")

type renderFlags struct {
	logo       string
	title      string
	podcast    string
	fps        float64
	workers    int
	parallel   int
	output     string
	frames     bool
	noProgress bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.logo, "logo", "", "Logo image (png, jpeg, bmp, webp)")
	fl.StringVar(&f.title, "title", "", "Episode title; only valid with a single input file")
	fl.StringVar(&f.podcast, "podcast", "", "Podcast name shown under the waveform")
	fl.Float64Var(&f.fps, "fps", 0, "Frame rate of the output video")
	fl.IntVarP(&f.workers, "workers", "w", 0, "Frames rendered in parallel per file")
	fl.IntVarP(&f.parallel, "parallel", "p", 0, "Files rendered in parallel")
	fl.StringVarP(&f.output, "output", "o", "", "Output directory")
	fl.BoolVar(&f.frames, "frames", false, "Write PNG frames instead of encoding a video")
	fl.BoolVar(&f.noProgress, "no-progress", false, "Hide progress bars")
}

// apply copies the flags the user set over cfg and validates the result.
func (f *renderFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("logo") {
		cfg.Assets.Logo = f.logo
	}
	if changed("podcast") {
		cfg.Assets.PodcastName = f.podcast
	}
	if changed("fps") {
		cfg.Render.FPS = f.fps
	}
	if changed("workers") {
		cfg.Render.Workers = f.workers
	}
	if changed("parallel") {
		cfg.Render.ParallelFiles = f.parallel
	}
	if changed("output") {
		cfg.Render.OutputDir = f.output
	}
	if changed("frames") {
		cfg.FFmpeg.Frames = f.frames
	}

	return cfg.Validate()
}

func newRenderCmd(a *app) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <file|dir>...",
		Short: "Render narration files into waveform videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a.cfg); err != nil {
				return err
			}

			paths, err := collectInputs(a.reg, args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no audio files found (supported: %s)", strings.Join(a.reg.Formats(), ", "))
			}
			if flags.title != "" && len(paths) != 1 {
				return fmt.Errorf("--title needs exactly one input file, got %d", len(paths))
			}

			titles, err := loadTitles(a.cfg, paths, flags.title)
			if err != nil {
				return err
			}

			return a.render(cmd, paths, titles, !flags.noProgress)
		},
	}
	flags.register(cmd)

	return cmd
}

// loadTitles opens the titles store and records a title for every input
// that has none yet, so the next run shows the same titles.
func loadTitles(cfg *config.Config, paths []string, override string) (*episode.Titles, error) {
	titles, err := episode.Load(cfg.Assets.TitlesFile)
	if err != nil {
		return nil, err
	}

	dirty := false
	for _, p := range paths {
		stem := episode.Stem(p)
		if override != "" {
			titles.Set(stem, override)
			dirty = true
			continue
		}
		if _, ok := titles.Get(stem); !ok {
			titles.Set(stem, episode.SuggestTitle(stem))
			dirty = true
		}
	}

	if dirty {
		if err := titles.Save(); err != nil {
			return nil, fmt.Errorf("save titles: %w", err)
		}
	}

	return titles, nil
}

func (a *app) newRenderer(cmd *cobra.Command, titles pipeline.Titles, obs pipeline.Observer) (*pipeline.Renderer, func() error, error) {
	caches, closeCaches, err := openCaches(cmd.Context(), a.cfg, a.log)
	if err != nil {
		return nil, nil, err
	}

	enh, err := enhance.New(a.reg, a.cfg.EnhanceSettings(), a.log)
	if err != nil {
		closeCaches()
		return nil, nil, err
	}

	var asm assemble.Assembler = assemble.NewFFmpeg(a.cfg.FFmpegConfig(), a.log)
	if a.cfg.FFmpeg.Frames {
		asm = assemble.PNGSequence{}
	}

	r, err := pipeline.New(pipeline.Options{
		Config:    a.cfg,
		Caches:    caches,
		Analyzer:  waveform.NewAnalyzer(a.reg, a.cfg.AnalyzerConfig(), a.log),
		Enhancer:  enh,
		Assembler: asm,
		Titles:    titles,
		Observer:  obs,
		Logger:    a.log,
	})
	if err != nil {
		closeCaches()
		return nil, nil, err
	}

	return r, closeCaches, nil
}

func (a *app) render(cmd *cobra.Command, paths []string, titles *episode.Titles, showProgress bool) error {
	var obs pipeline.Observer
	var bars *progress
	if showProgress {
		bars = newProgress(cmd.ErrOrStderr())
		obs = bars
	}

	r, closeCaches, err := a.newRenderer(cmd, titles, obs)
	if err != nil {
		return err
	}
	defer closeCaches()

	results, batchErr := r.RenderBatch(cmd.Context(), paths)
	if bars != nil {
		bars.Wait()
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", res.Path, res.Err)
			continue
		}

		cached := ""
		if res.CacheHit {
			cached = " (cached waveform)"
		}
		fmt.Fprintf(out, "ok   %s -> %s, %d frames in %s%s\n", res.Path, res.Output, res.Frames, res.Elapsed.Round(10*time.Millisecond), cached)
	}

	a.log.Info("batch finished",
		zap.Int("files", len(results)),
		zap.Int("failed", failed),
	)

	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return errFilesFailed
	}

	return nil
}

// collectInputs expands directories to the supported audio files they hold
// and returns the paths sorted and without duplicates.
func collectInputs(reg *audio.Registry, args []string) ([]string, error) {
	var out []string

	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}

		if !fi.IsDir() {
			out = append(out, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			if _, ok := reg.ForPath(e.Name()); ok && !strings.HasSuffix(episode.Stem(e.Name()), "_enhanced") {
				out = append(out, filepath.Join(arg, e.Name()))
			}
		}
	}

	slices.Sort(out)
	return slices.Compact(out), nil
}
