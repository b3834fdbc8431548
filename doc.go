// SPDX-License-Identifier: EPL-2.0

// Package wavereel turns narration audio into a waveform video.
//
// A render runs through these packages, in order:
//
//   - fingerprint hashes the source file so unchanged input is recognized
//   - enhance cleans the narration and adds the intro and outro beds
//   - waveform decodes the processed audio into an amplitude envelope
//   - cache keeps envelopes between runs, on disk, in memory or in Redis
//   - envelope maps the contour onto the video frame timeline
//   - frame evaluates the visual state of any single frame
//   - compose rasterizes a visual state into an RGBA frame
//   - assemble hands frames and audio to ffmpeg, or writes PNG files
//
// The pipeline package wires them together and cmd/wavereel is the command
// line front end.
//
// # Decoding
//
// Audio decoding lives in the audio and formats packages:
//
//	reg := formats.DefaultRegistry()
//	src, err := audio.OpenFile(reg, "episode.mp3")
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	mono := audio.NewMonoPipeline(src, 44100)
//
// WAV, MP3, Ogg Vorbis and AIFF inputs are supported.
//
// # Frames
//
// Frame state is a pure function of the frame index:
//
//	amps := envelope.Resample(env, frame.FrameCount(d, fps), d)
//	m, _ := frame.NewMachine(amps, params)
//	state, _ := m.State(42)
//
// so any frame can be rendered on its own, in any order.
package wavereel
