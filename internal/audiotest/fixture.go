// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV renders src into a 16-bit PCM file under t.TempDir and returns its path.
func WriteWAV(t testing.TB, name string, src *Source) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, src.sampleRate, 16, src.channels, 1)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: src.channels, SampleRate: src.sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, 0, src.frames*src.channels),
	}
	for s := range src.frames {
		for c := range src.channels {
			v := src.wave(s, c)
			v = max(-1, min(1, v))
			buf.Data = append(buf.Data, int(math32Round(v*32767)))
		}
	}

	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}

	return path
}

func math32Round(v float32) float32 {
	if v < 0 {
		return float32(int(v - 0.5))
	}
	return float32(int(v + 0.5))
}
