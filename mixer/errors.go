// SPDX-License-Identifier: EPL-2.0

package mixer

import "errors"

var (
	ErrUnknownKey        = errors.New("unknown audio key")
	ErrDepthExceeded     = errors.New("playlist nesting too deep")
	ErrPlaylistExhausted = errors.New("playlist has no more tracks")
	ErrPoolExhausted     = errors.New("no free voice in pool")
	ErrCannotPlay        = errors.New("asset cannot play now")
	ErrMissingData       = errors.New("asset data is missing")
	ErrClipPending       = errors.New("clip is still loading")
	ErrSkipped           = errors.New("contending channel is active, skipped")
	ErrQueued            = errors.New("contending channel is active, queued")
	ErrVoiceIdle         = errors.New("voice is idle")
)
