// SPDX-License-Identifier: EPL-2.0

package assemble

import "errors"

var (
	ErrFrameSize   = errors.New("frame does not match the video size")
	ErrFrameCount  = errors.New("frame count does not match the job")
	ErrSinkClosed  = errors.New("frame sink closed")
	ErrEncoderFail = errors.New("video encoder failed")
)
