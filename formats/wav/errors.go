// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile          = errors.New("not a WAV file")
	ErrUnsupportedEncoding = errors.New("unsupported WAV encoding")
	ErrNoPCMData           = errors.New("WAV file has no data chunk")
	ErrInvalidWriterFormat = errors.New("invalid WAV writer format")
)
