// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/ik5/wavereel/assemble"
	"github.com/ik5/wavereel/cache"
	"github.com/ik5/wavereel/compose"
	"github.com/ik5/wavereel/config"
	"github.com/ik5/wavereel/enhance"
	"github.com/ik5/wavereel/fingerprint"
	"github.com/ik5/wavereel/formats"
	"github.com/ik5/wavereel/internal/audiotest"
	"github.com/ik5/wavereel/waveform"
)

// recorder is an in-memory assembler keeping a hash of every frame.
type recorder struct {
	mtx   sync.Mutex
	sinks map[string]*recordSink
}

func newRecorder() *recorder {
	return &recorder{sinks: make(map[string]*recordSink)}
}

func (r *recorder) Open(_ context.Context, job assemble.Job) (assemble.FrameSink, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	s := &recordSink{job: job}
	r.sinks[job.Output] = s
	return s, nil
}

func (r *recorder) sink(output string) *recordSink {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.sinks[output]
}

type recordSink struct {
	job     assemble.Job
	hashes  []uint64
	closed  bool
	aborted bool
}

func (s *recordSink) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != s.job.Width || b.Dy() != s.job.Height {
		return assemble.ErrFrameSize
	}
	s.hashes = append(s.hashes, xxhash.Sum64(img.Pix))
	return nil
}

func (s *recordSink) Close() error { s.closed = true; return nil }
func (s *recordSink) Abort() error { s.aborted = true; return nil }

type fixture struct {
	cfg   *config.Config
	cache *cache.MemoryCache
	rec   *recorder
	r     *Renderer
	obs   *countingObserver
}

type countingObserver struct {
	mtx     sync.Mutex
	started map[string]int
	written map[string]int
	done    map[string]error
	onFrame func(path string, i int)
}

func (o *countingObserver) FileStarted(path string, frames int) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.started[path] = frames
}

func (o *countingObserver) FrameWritten(path string, i int) {
	o.mtx.Lock()
	o.written[path]++
	fn := o.onFrame
	o.mtx.Unlock()

	if fn != nil {
		fn(path, i)
	}
}

func (o *countingObserver) FileDone(path string, err error) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.done[path] = err
}

func writeLogo(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 40, 120, 200, 255
	}

	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Render.Width, cfg.Render.Height = 160, 90
	cfg.Render.FPS = 10
	cfg.Render.BatchSize = 7
	cfg.Render.OutputDir = t.TempDir()
	cfg.Render.FadeSeconds = 0.5
	cfg.Audio.SampleRate = 8000
	cfg.Audio.IntroSeconds, cfg.Audio.OutroSeconds = 0, 0
	cfg.Cache.Backend = config.CacheMemory
	cfg.Viewport.Columns = 40
	cfg.Assets.Logo = writeLogo(t)
	cfg.Assets.PodcastName = "Test Cast"
	if mutate != nil {
		mutate(cfg)
	}

	reg := formats.DefaultRegistry()
	enh, err := enhance.New(reg, cfg.EnhanceSettings(), nil)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		cfg:   cfg,
		cache: cache.NewMemoryCache(cfg.Waveform.SchemaVersion, nil),
		rec:   newRecorder(),
		obs: &countingObserver{
			started: make(map[string]int),
			written: make(map[string]int),
			done:    make(map[string]error),
		},
	}

	f.r, err = New(Options{
		Config:    cfg,
		Caches:    cache.Static(f.cache),
		Analyzer:  waveform.NewAnalyzer(reg, cfg.AnalyzerConfig(), nil),
		Enhancer:  enh,
		Assembler: f.rec,
		Observer:  f.obs,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return f
}

func TestNew_Incomplete(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); !errors.Is(err, ErrIncomplete) {
		t.Errorf("New() error = %v, want ErrIncomplete", err)
	}
}

func TestRenderFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	path := audiotest.WriteWAV(t, "Episode: 3_Tides.wav", audiotest.Sine(8000, 1, 16000, 220, 0.5))

	res, err := f.r.RenderFile(context.Background(), path)
	if err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}

	if res.Frames != 20 {
		t.Errorf("Frames = %d, want 20", res.Frames)
	}
	if res.CacheHit {
		t.Error("first render reported a cache hit")
	}
	if res.Title != "3: Tides" {
		t.Errorf("Title = %q, want 3: Tides", res.Title)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if _, err := os.Stat(res.Enhanced); err != nil {
		t.Errorf("enhanced audio missing: %v", err)
	}

	sink := f.rec.sink(res.Output)
	if sink == nil {
		t.Fatalf("no sink opened for %s", res.Output)
	}
	if len(sink.hashes) != 20 || !sink.closed || sink.aborted {
		t.Errorf("sink got %d frames, closed %v, aborted %v", len(sink.hashes), sink.closed, sink.aborted)
	}
	if sink.job.AudioPath != res.Enhanced {
		t.Errorf("job audio = %q, want %q", sink.job.AudioPath, res.Enhanced)
	}

	if f.obs.started[path] != 20 || f.obs.written[path] != 20 || f.obs.done[path] != nil {
		t.Errorf("observer saw started %d, written %d, done %v", f.obs.started[path], f.obs.written[path], f.obs.done[path])
	}

	// Frames arrive in index order: each one matches its standalone render.
	for _, i := range []int{0, 6, 7, 13, 19} {
		img, err := f.r.RenderFrame(context.Background(), path, i)
		if err != nil {
			t.Fatalf("RenderFrame(%d) error = %v", i, err)
		}
		if got := xxhash.Sum64(img.Pix); got != sink.hashes[i] {
			t.Errorf("frame %d differs from the streamed frame", i)
		}
	}
}

func TestRenderFile_CacheReuse(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	path := audiotest.WriteWAV(t, "ep.wav", audiotest.Sine(8000, 1, 8000, 440, 0.8))

	first, err := f.r.RenderFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.r.RenderFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if first.CacheHit || !second.CacheHit {
		t.Errorf("CacheHit = %v, %v, want false, true", first.CacheHit, second.CacheHit)
	}
	if f.cache.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", f.cache.Len())
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	third, err := f.r.RenderFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("render after mtime change hit the cache")
	}
	if f.cache.Len() != 1 {
		t.Errorf("cache holds %d entries after refresh, want 1", f.cache.Len())
	}
}

func TestRenderFile_SilentTrack(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) { c.Render.FPS = 30 })
	path := audiotest.WriteWAV(t, "silence.wav", audiotest.Silent(8000, 1, 80000))

	res, err := f.r.RenderFile(context.Background(), path)
	if err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if res.Frames != 300 {
		t.Errorf("Frames = %d, want 300", res.Frames)
	}

	salt := f.r.salt()
	fp, err := fingerprint.Of(path, salt)
	if err != nil {
		t.Fatal(err)
	}
	env, ok := f.cache.Lookup(context.Background(), fingerprint.Slot(path), fp)
	if !ok {
		t.Fatal("envelope not cached")
	}
	if env.Len() != 1000 {
		t.Errorf("envelope length = %d, want 1000", env.Len())
	}
	for i, v := range env.Samples {
		if v != 0 {
			t.Fatalf("envelope[%d] = %v, want 0", i, v)
		}
	}
}

func TestRenderFile_Cancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	path := audiotest.WriteWAV(t, "long.wav", audiotest.Sine(8000, 1, 24000, 220, 0.5))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.obs.onFrame = func(_ string, i int) {
		if i == 3 {
			cancel()
		}
	}

	res, err := f.r.RenderFile(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RenderFile() error = %v, want context.Canceled", err)
	}

	var fe *FileError
	if !errors.As(err, &fe) || fe.Stage != StageFrames || fe.Path != path {
		t.Errorf("error = %#v, want FileError at frames stage", err)
	}

	sink := f.rec.sink(res.Output)
	if sink == nil || !sink.aborted || sink.closed {
		t.Fatalf("sink not aborted: %+v", sink)
	}
	if len(sink.hashes) != 4 {
		t.Errorf("sink got %d frames, want 4", len(sink.hashes))
	}

	// The envelope was complete before any frame was drawn.
	fp, err := fingerprint.Of(path, f.r.salt())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.cache.Lookup(context.Background(), fingerprint.Slot(path), fp); !ok {
		t.Error("complete envelope missing from cache after cancel")
	}
}

func TestRenderFrame_UsesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	path := audiotest.WriteWAV(t, "frame.wav", audiotest.Impulse(8000, 1, 16000, 8000, 1))

	a, err := f.r.RenderFrame(context.Background(), path, 12)
	if err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if f.cache.Len() != 1 {
		t.Fatalf("cache holds %d entries, want 1", f.cache.Len())
	}

	b, err := f.r.RenderFrame(context.Background(), path, 12)
	if err != nil {
		t.Fatal(err)
	}
	if xxhash.Sum64(a.Pix) != xxhash.Sum64(b.Pix) {
		t.Error("RenderFrame() not deterministic")
	}

	if _, err := f.r.RenderFrame(context.Background(), path, 20); err == nil {
		t.Error("RenderFrame() past the last frame succeeded")
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		_, err := f.r.RenderFile(context.Background(), filepath.Join(t.TempDir(), "gone.wav"))
		if !errors.Is(err, fingerprint.ErrSourceUnavailable) {
			t.Errorf("error = %v, want ErrSourceUnavailable", err)
		}
	})

	t.Run("corrupt audio", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		path := filepath.Join(t.TempDir(), "bad.wav")
		if err := os.WriteFile(path, []byte("definitely not RIFF data"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := f.r.RenderFile(context.Background(), path)
		var fe *FileError
		if !errors.As(err, &fe) || fe.Stage != StageEnhance {
			t.Errorf("error = %v, want FileError at enhance stage", err)
		}
		if IsBatchFatal(err) {
			t.Error("decode failure reported as batch fatal")
		}
	})

	t.Run("processing timeout", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, func(c *config.Config) { c.Waveform.AnalysisTimeout = time.Nanosecond })
		path := audiotest.WriteWAV(t, "long.wav", audiotest.Sine(8000, 1, 80000, 220, 0.5))

		_, err := f.r.RenderFile(context.Background(), path)
		var fe *FileError
		if !errors.As(err, &fe) || fe.Stage != StageEnhance || !errors.Is(err, waveform.ErrAnalysisTimeout) {
			t.Errorf("error = %v, want ErrAnalysisTimeout at enhance stage", err)
		}
		if IsBatchFatal(err) {
			t.Error("timeout reported as batch fatal")
		}
	})

	t.Run("missing logo", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, func(c *config.Config) { c.Assets.Logo = filepath.Join(os.TempDir(), "no-logo.png") })
		path := audiotest.WriteWAV(t, "ok.wav", audiotest.Silent(8000, 1, 800))

		_, err := f.r.RenderFile(context.Background(), path)
		if !errors.Is(err, compose.ErrAssetMissing) || !IsBatchFatal(err) {
			t.Errorf("error = %v, want batch fatal ErrAssetMissing", err)
		}
	})
}

func TestRenderBatch_IsolatesFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) { c.Render.ParallelFiles = 2 })

	good1 := audiotest.WriteWAV(t, "a.wav", audiotest.Sine(8000, 1, 8000, 220, 0.5))
	bad := filepath.Join(t.TempDir(), "b.wav")
	if err := os.WriteFile(bad, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	good2 := audiotest.WriteWAV(t, "c.wav", audiotest.Sine(8000, 2, 8000, 330, 0.5))

	results, err := f.r.RenderBatch(context.Background(), []string{good1, bad, good2})
	if err != nil {
		t.Fatalf("RenderBatch() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("good files failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil || results[1].Path != bad {
		t.Errorf("bad file result = %+v", results[1])
	}
}

func TestRenderBatch_OutputConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) { c.Render.ParallelFiles = 2 })

	first := audiotest.WriteWAV(t, "ep.wav", audiotest.Sine(8000, 1, 8000, 220, 0.5))
	second := audiotest.WriteWAV(t, "ep.wav", audiotest.Sine(8000, 1, 16000, 330, 0.5))
	other := audiotest.WriteWAV(t, "other.wav", audiotest.Sine(8000, 1, 8000, 440, 0.5))

	results, err := f.r.RenderBatch(context.Background(), []string{first, second, other})
	if err != nil {
		t.Fatalf("RenderBatch() error = %v", err)
	}

	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("distinct outputs failed: %v, %v", results[0].Err, results[2].Err)
	}

	var fe *FileError
	if !errors.As(results[1].Err, &fe) || fe.Stage != StageOutputs || !errors.Is(results[1].Err, ErrOutputConflict) {
		t.Fatalf("second result error = %v, want ErrOutputConflict at outputs stage", results[1].Err)
	}
	if fe.Path != second {
		t.Errorf("FileError.Path = %q, want %q", fe.Path, second)
	}

	sink := f.rec.sink(results[0].Output)
	if sink == nil || len(sink.hashes) != 10 {
		t.Fatalf("shared output did not keep the first file's 10 frames: %+v", sink)
	}
	if got := len(f.rec.sinks); got != 2 {
		t.Errorf("opened %d sinks, want 2", got)
	}
	if _, ok := f.obs.started[second]; ok {
		t.Error("conflicting file was started")
	}
}

func TestRenderBatch_AbortsOnMissingAsset(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) { c.Assets.Logo = "" })

	paths := []string{
		audiotest.WriteWAV(t, "1.wav", audiotest.Silent(8000, 1, 800)),
		audiotest.WriteWAV(t, "2.wav", audiotest.Silent(8000, 1, 800)),
		audiotest.WriteWAV(t, "3.wav", audiotest.Silent(8000, 1, 800)),
	}

	results, err := f.r.RenderBatch(context.Background(), paths)
	if !errors.Is(err, compose.ErrAssetMissing) {
		t.Fatalf("RenderBatch() error = %v, want ErrAssetMissing", err)
	}

	if !errors.Is(results[0].Err, compose.ErrAssetMissing) {
		t.Errorf("first result error = %v", results[0].Err)
	}
	for _, res := range results[1:] {
		if res.Err == nil {
			t.Errorf("%s rendered after a batch fatal error", res.Path)
		}
	}
	if f.cache.Len() != 0 {
		t.Errorf("cache holds %d entries, want 0", f.cache.Len())
	}
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	path := audiotest.WriteWAV(t, "inv.wav", audiotest.Silent(8000, 1, 800))

	if _, err := f.r.RenderFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if err := f.r.Invalidate(context.Background(), path); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if f.cache.Len() != 0 {
		t.Errorf("cache holds %d entries after Invalidate, want 0", f.cache.Len())
	}
}

func TestFileError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := fileErr("/x/ep.wav", StageAnalyze, cause)

	if err.Error() != "ep.wav: analyze: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("FileError does not unwrap to its cause")
	}
	if fileErr("p", StageAnalyze, nil) != nil {
		t.Error("fileErr(nil) != nil")
	}
}
