// SPDX-License-Identifier: EPL-2.0

package envelope

import "errors"

var (
	ErrMalformed      = errors.New("malformed envelope entry")
	ErrSchemaMismatch = errors.New("envelope schema mismatch")
)
