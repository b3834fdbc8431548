// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Info describes a decoded stream after a full pass over it.
type Info struct {
	SampleRate int
	Channels   int
	// Frames is the number of samples per channel.
	Frames int64
	// Duration in seconds.
	Duration float64
}

// fileSource closes the underlying file together with the decoded stream.
type fileSource struct {
	Source
	f *os.File
}

func (s *fileSource) Close() error {
	errSrc := s.Source.Close()
	errFile := s.f.Close()

	return errors.Join(errSrc, errFile)
}

// OpenFile picks a decoder from reg by the file extension and decodes path.
// Closing the returned Source also closes the file.
func OpenFile(reg *Registry, path string) (Source, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}

	dec, ok := reg.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	return &fileSource{Source: src, f: f}, nil
}

// Drain reads src to the end, handing every chunk of interleaved samples to fn.
// The slice passed to fn is reused between calls.
func Drain(src Source, bufSize int, fn func(chunk []float32) error) error {
	if bufSize <= 0 {
		bufSize = 4096
	}
	// Keep whole frames in every read.
	ch := src.Channels()
	if ch > 1 && bufSize%ch != 0 {
		bufSize += ch - bufSize%ch
	}

	buf := make([]float32, bufSize)
	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			if ferr := fn(buf[:n]); ferr != nil {
				return ferr
			}
		}

		if err == io.EOF {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w", err)
		}
	}
}

// Probe decodes path once and reports its format and exact length.
func Probe(reg *Registry, path string) (Info, error) {
	src, err := OpenFile(reg, path)
	if err != nil {
		return Info{}, err
	}
	defer src.Close()

	info := Info{
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
	}

	var samples int64
	err = Drain(src, src.BufSize(), func(chunk []float32) error {
		samples += int64(len(chunk))
		return nil
	})
	if err != nil {
		return Info{}, err
	}

	if info.Channels > 0 {
		info.Frames = samples / int64(info.Channels)
	}
	if info.SampleRate > 0 {
		info.Duration = float64(info.Frames) / float64(info.SampleRate)
	}

	return info, nil
}
