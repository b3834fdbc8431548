// SPDX-License-Identifier: EPL-2.0

package fingerprint

import "errors"

// ErrSourceUnavailable is returned when the file metadata cannot be read.
var ErrSourceUnavailable = errors.New("audio source unavailable")
