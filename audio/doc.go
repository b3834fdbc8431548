// SPDX-License-Identifier: EPL-2.0

// Package audio holds the streaming primitives every narration passes through
// before analysis or enhancement.
//
// A Source yields interleaved float32 samples in [-1, 1]. Decoders turn a file
// into a Source and are looked up in a Registry by extension:
//
//	src, err := audio.OpenFile(formats.DefaultRegistry(), "episode.mp3")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
// Stages wrap a Source and are themselves Sources. MonoMixer averages
// channels, Resampler changes the rate with cubic interpolation, and
// NewMonoPipeline chains the two:
//
//	mono := audio.NewMonoPipeline(src, 22050)
//
// Drain walks a Source to the end in fixed size chunks; Probe uses it to
// measure the exact length of a file.
//
// ReadSamples returns io.EOF when the stream is finished. The final call may
// return samples together with io.EOF.
package audio
