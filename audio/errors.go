// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrNoExtension       = errors.New("file name has no extension")
	ErrUnsupportedFormat = errors.New("no prober registered for format")
	ErrUnknownLength     = errors.New("stream does not report its length")
)
