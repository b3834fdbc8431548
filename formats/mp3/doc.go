// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 narration with github.com/hajimehoshi/go-mp3.
// Output is always stereo; mono files are duplicated on both channels by the
// underlying decoder.
package mp3
