// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
)

type fakeReader struct {
	data []int
	err  error
}

func (f *fakeReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := copy(buf.Data, f.data)
	f.data = f.data[n:]
	return n, nil
}

func readAll(t *testing.T, s *source, size int) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, size)
	for {
		n, err := s.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestSource_Scaling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bitDepth int
		in       []int
		want     []float32
	}{
		{"8 bit signed", 8, []int{0, 64, -128, 127}, []float32{0, 0.5, -1, 127.0 / 128}},
		{"16 bit", 16, []int{0, 16384, -32768, 32767}, []float32{0, 0.5, -1, 32767.0 / 32768}},
		{"24 bit", 24, []int{4194304, -8388608}, []float32{0.5, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &source{
				dec:      &fakeReader{data: tt.in},
				channels: 2,
				bitDepth: tt.bitDepth,
				buf:      &goaudio.IntBuffer{},
			}

			got := readAll(t, s, 2)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSource_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("bad chunk")
	s := &source{dec: &fakeReader{err: boom}, channels: 1, bitDepth: 16, buf: &goaudio.IntBuffer{}}

	if _, err := s.ReadSamples(make([]float32, 4)); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}
}

func TestDecoder_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("FORMxxxxWAVE")))
	if !errors.Is(err, ErrNotAiffFile) {
		t.Errorf("Decode() error = %v, want %v", err, ErrNotAiffFile)
	}
}
