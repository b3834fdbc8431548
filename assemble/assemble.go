// SPDX-License-Identifier: EPL-2.0

// Package assemble hands rendered frames to a video encoder in index order
// and muxes them with the processed narration.
package assemble

import (
	"context"
	"fmt"
	"image"
)

// Job describes one output video.
type Job struct {
	Output    string
	AudioPath string
	Width     int
	Height    int
	FPS       float64
	// Frames is the number of frames the caller will write.
	Frames int
}

// FrameSink receives frames strictly in order. Exactly one of Close or Abort
// must be called.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
	// Close finalizes the output.
	Close() error
	// Abort stops encoding and removes any partial output.
	Abort() error
}

type Assembler interface {
	Open(ctx context.Context, job Job) (FrameSink, error)
}

func checkFrame(job Job, img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != job.Width || b.Dy() != job.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), job.Width, job.Height)
	}
	return nil
}
