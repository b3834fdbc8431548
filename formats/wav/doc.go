// SPDX-License-Identifier: EPL-2.0

// Package wav decodes integer PCM WAV files and writes 16-bit PCM ones, both
// on top of github.com/go-audio/wav.
//
// The Decoder seeks through the RIFF chunks, so it buffers input that is not
// an io.ReadSeeker. Writer streams samples and patches the header sizes on
// Close:
//
//	f, _ := os.Create("enhanced.wav")
//	w, _ := wav.NewWriter(f, 44100, 1)
//	_ = w.WriteSamples(chunk)
//	_ = w.Close()
package wav
