// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF files with github.com/go-audio/aiff.
// Input that is not an io.ReadSeeker is buffered in memory first.
package aiff
