// SPDX-License-Identifier: EPL-2.0

package compose

import "errors"

var (
	// ErrAssetMissing aborts a whole batch: every file would fail the same way.
	ErrAssetMissing = errors.New("required asset missing")
	ErrFrameSize    = errors.New("invalid frame size")
)
