// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/wavereel/utils"
)

// Writer streams float32 samples into a 16-bit PCM WAV file. The RIFF and
// data sizes are patched on Close, so w must be seekable.
type Writer struct {
	enc      *wav.Encoder
	channels int
	buf      *goaudio.IntBuffer
	frames   int64
}

func NewWriter(w io.WriteSeeker, sampleRate, channels int) (*Writer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidWriterFormat, sampleRate, channels)
	}

	return &Writer{
		enc:      wav.NewEncoder(w, sampleRate, 16, channels, formatPCM),
		channels: channels,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// WriteSamples appends interleaved samples. len(samples) must hold whole frames.
func (w *Writer) WriteSamples(samples []float32) error {
	if len(samples)%w.channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrInvalidWriterFormat, len(samples), w.channels)
	}
	if len(samples) == 0 {
		return nil
	}

	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, v := range samples {
		w.buf.Data[i] = int(utils.Float32ToInt16(v))
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.frames += int64(len(samples) / w.channels)

	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int64 { return w.frames }

// Close finalizes the headers. It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// WriteWAV16 writes a complete mono 16-bit file from int16 PCM samples.
func WriteWAV16(w io.WriteSeeker, sampleRate int, samples []int16) error {
	ww, err := NewWriter(w, sampleRate, 1)
	if err != nil {
		return err
	}

	const chunk = 8192
	for i := 0; i < len(samples); i += chunk {
		part := samples[i:min(i+chunk, len(samples))]
		ww.buf.Data = ww.buf.Data[:0]
		for _, v := range part {
			ww.buf.Data = append(ww.buf.Data, int(v))
		}
		if err := ww.enc.Write(ww.buf); err != nil {
			return fmt.Errorf("%w", err)
		}
		ww.frames += int64(len(part))
	}

	return ww.Close()
}
