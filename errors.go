// SPDX-License-Identifier: EPL-2.0

package duorec

import "errors"

// ErrNoSources is returned by MixSources when both sources are nil.
var ErrNoSources = errors.New("no sources to mix")
