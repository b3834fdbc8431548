// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/wavereel/audio"
	"github.com/ik5/wavereel/utils"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// wavReader is the part of the go-audio decoder the source needs.
type wavReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type wavSource struct {
	dec        wavReader
	sampleRate int
	channels   int
	bitDepth   int
	buf        *goaudio.IntBuffer
	eof        bool
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) BufSize() int    { return 4096 }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if s.eof {
		return 0, io.EOF
	}

	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("%w", err)
	}

	// Keep whole frames only; a torn trailing frame is dropped.
	n -= n % s.channels
	for i, v := range s.buf.Data[:n] {
		dst[i] = utils.IntToFloat32(v, s.bitDepth)
	}

	if n == 0 || err == io.EOF {
		s.eof = true
		if n == 0 {
			return 0, io.EOF
		}
		return n, io.EOF
	}

	return n, nil
}

// Decoder reads integer PCM WAV files at 8, 16, 24 or 32 bits.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
		rs = bytes.NewReader(data)
	}

	d := wav.NewDecoder(rs)
	if !d.IsValidFile() {
		return nil, ErrNotWavFile
	}

	if d.WavAudioFormat != formatPCM && d.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, d.WavAudioFormat)
	}

	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedEncoding, d.BitDepth)
	}

	if d.NumChans == 0 || d.SampleRate == 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedEncoding, d.SampleRate, d.NumChans)
	}

	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPCMData, err)
	}

	channels := int(d.NumChans)

	return &wavSource{
		dec:        d,
		sampleRate: int(d.SampleRate),
		channels:   channels,
		bitDepth:   int(d.BitDepth),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(d.SampleRate)},
			SourceBitDepth: int(d.BitDepth),
		},
	}, nil
}
