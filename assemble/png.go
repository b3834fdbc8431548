// SPDX-License-Identifier: EPL-2.0

package assemble

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// PNGSequence writes every frame as a numbered PNG into a directory named
// after the job output. The audio is not muxed. Useful for inspecting
// individual frames without an encoder installed.
type PNGSequence struct{}

func (PNGSequence) Open(_ context.Context, job Job) (FrameSink, error) {
	if job.Width <= 0 || job.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrFrameSize, job.Width, job.Height)
	}

	dir := strings.TrimSuffix(job.Output, filepath.Ext(job.Output)) + "_frames"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory %s: %w", dir, err)
	}

	return &pngSink{job: job, dir: dir, enc: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// FramePath is the file a PNGSequence writes frame i of job to.
func FramePath(job Job, i int) string {
	dir := strings.TrimSuffix(job.Output, filepath.Ext(job.Output)) + "_frames"
	return filepath.Join(dir, fmt.Sprintf("frame_%06d.png", i))
}

type pngSink struct {
	job Job
	dir string
	enc png.Encoder

	mtx     sync.Mutex
	written int
	done    bool
}

func (s *pngSink) WriteFrame(img *image.RGBA) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.done {
		return ErrSinkClosed
	}
	if err := checkFrame(s.job, img); err != nil {
		return err
	}

	f, err := os.Create(FramePath(s.job, s.written))
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	if err := s.enc.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %d: %w", s.written, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	s.written++
	return nil
}

func (s *pngSink) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.done {
		return ErrSinkClosed
	}
	s.done = true

	if s.job.Frames > 0 && s.written != s.job.Frames {
		return fmt.Errorf("%w: wrote %d of %d", ErrFrameCount, s.written, s.job.Frames)
	}

	return nil
}

func (s *pngSink) Abort() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.done {
		return nil
	}
	s.done = true

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove frames: %w", err)
	}

	return nil
}
