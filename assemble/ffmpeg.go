// SPDX-License-Identifier: EPL-2.0

package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// FFmpegConfig selects the encoder binary and its quality settings.
type FFmpegConfig struct {
	Path       string
	VideoCodec string
	AudioCodec string
	Preset     string
	CRF        int
}

func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		Path:       "ffmpeg",
		VideoCodec: "libx264",
		AudioCodec: "aac",
		Preset:     "medium",
		CRF:        23,
	}
}

// FFmpeg pipes raw RGBA frames into an ffmpeg process.
type FFmpeg struct {
	cfg FFmpegConfig
	log *zap.Logger
}

func NewFFmpeg(cfg FFmpegConfig, log *zap.Logger) *FFmpeg {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = "ffmpeg"
	}

	return &FFmpeg{cfg: cfg, log: log}
}

// partialPath is where ffmpeg writes until the sink is closed.
func partialPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".partial" + ext
}

// Args returns the ffmpeg command line for job, writing to out.
func (f *FFmpeg) Args(job Job, out string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", job.Width, job.Height),
		"-r", strconv.FormatFloat(job.FPS, 'f', -1, 64),
		"-i", "pipe:0",
		"-i", job.AudioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", f.cfg.VideoCodec,
		"-preset", f.cfg.Preset,
		"-crf", strconv.Itoa(f.cfg.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", f.cfg.AudioCodec,
		"-shortest",
		"-movflags", "+faststart",
		out,
	}
}

func (f *FFmpeg) Open(ctx context.Context, job Job) (FrameSink, error) {
	if job.Width <= 0 || job.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrFrameSize, job.Width, job.Height)
	}

	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", filepath.Dir(job.Output), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	tmp := partialPath(job.Output)
	args := f.Args(job, tmp)

	cmd := exec.CommandContext(ctx, f.cfg.Path, args...)
	s := &ffmpegSink{
		job:    job,
		tmp:    tmp,
		cancel: cancel,
		cmd:    cmd,
		log:    f.log,
	}
	cmd.Stderr = &s.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	s.stdin = stdin

	f.log.Debug("starting ffmpeg",
		zap.String("output", job.Output),
		zap.String("command", f.cfg.Path+" "+strings.Join(args, " ")),
	)

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start %s: %w", ErrEncoderFail, f.cfg.Path, err)
	}

	return s, nil
}

type ffmpegSink struct {
	job    Job
	tmp    string
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	log    *zap.Logger

	mtx     sync.Mutex
	written int
	done    bool
	// waited is set once cmd.Wait has returned; Wait must not run twice.
	waited  bool
	waitErr error
}

// wait reaps ffmpeg once. Later calls return the result of the first.
func (s *ffmpegSink) wait() error {
	if !s.waited {
		s.waited = true
		s.waitErr = s.cmd.Wait()
	}

	return s.waitErr
}

func (s *ffmpegSink) WriteFrame(img *image.RGBA) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.done {
		return ErrSinkClosed
	}
	if err := checkFrame(s.job, img); err != nil {
		return err
	}

	w := 4 * s.job.Width
	if img.Stride == w && img.Rect.Min == (image.Point{}) {
		if _, err := s.stdin.Write(img.Pix[:w*s.job.Height]); err != nil {
			return s.writeErr(err)
		}
	} else {
		for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
			off := img.PixOffset(img.Rect.Min.X, y)
			if _, err := s.stdin.Write(img.Pix[off : off+w]); err != nil {
				return s.writeErr(err)
			}
		}
	}

	s.written++
	return nil
}

// writeErr stops ffmpeg so its stderr is complete before it is reported.
func (s *ffmpegSink) writeErr(err error) error {
	s.cancel()
	_ = s.wait()

	return fmt.Errorf("%w: writing frame %d: %w\nFFmpeg Error: %s", ErrEncoderFail, s.written, err, s.stderr.String())
}

func (s *ffmpegSink) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.done {
		return ErrSinkClosed
	}
	s.done = true
	defer s.cancel()

	if err := s.stdin.Close(); err != nil {
		s.log.Debug("closing ffmpeg stdin", zap.Error(err))
	}

	if err := s.wait(); err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("%w: %s: %w\nFFmpeg Error: %s", ErrEncoderFail, s.job.Output, err, s.stderr.String())
	}

	if s.job.Frames > 0 && s.written != s.job.Frames {
		os.Remove(s.tmp)
		return fmt.Errorf("%w: wrote %d of %d", ErrFrameCount, s.written, s.job.Frames)
	}

	if err := os.Rename(s.tmp, s.job.Output); err != nil {
		return fmt.Errorf("finalize %s: %w", s.job.Output, err)
	}

	s.log.Info("video written", zap.String("output", s.job.Output), zap.Int("frames", s.written))

	return nil
}

func (s *ffmpegSink) Abort() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.done {
		return nil
	}
	s.done = true

	s.cancel()
	s.stdin.Close()
	// The process was killed; its exit status carries no information.
	_ = s.wait()

	if err := os.Remove(s.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove partial output: %w", err)
	}

	s.log.Debug("video aborted", zap.String("output", s.job.Output), zap.Int("frames", s.written))

	return nil
}
