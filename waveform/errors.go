// SPDX-License-Identifier: EPL-2.0

package waveform

import "errors"

var (
	ErrDecode          = errors.New("audio decode failed")
	ErrAnalysisTimeout = errors.New("waveform analysis timed out, increase waveform.analysis_timeout")
)
