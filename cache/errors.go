// SPDX-License-Identifier: EPL-2.0

package cache

import "errors"

// ErrCorrupt marks a stored entry that cannot be used. Lookup never returns
// it; it only shows up in logs and in Inspect.
var ErrCorrupt = errors.New("cache entry corrupt")
