// SPDX-License-Identifier: EPL-2.0

package frame

import "errors"

var (
	ErrInvalidParams = errors.New("invalid frame parameters")
	ErrFrameRange    = errors.New("frame index out of range")
)
