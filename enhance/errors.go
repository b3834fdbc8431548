// SPDX-License-Identifier: EPL-2.0

package enhance

import "errors"

var (
	ErrInvalidSettings = errors.New("invalid enhance settings")
	ErrEmptyAudio      = errors.New("narration has no samples")
)
