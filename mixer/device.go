// SPDX-License-Identifier: EPL-2.0

package mixer

import "time"

// ClipRef locates the data behind an asset.
type ClipRef struct {
	Key      string
	FileName string
	// Bundle is the asset_index_key: the bundle or directory the file lives in.
	Bundle string
}

// Clip is a prepared, playable piece of audio data.
type Clip interface {
	Length() time.Duration
}

// ClipLoader resolves clip references. LoadClip returns ErrClipPending while
// an asynchronous load is outstanding; any other error is treated as a
// permanent failure for that asset.
type ClipLoader interface {
	LoadClip(ref ClipRef) (Clip, error)
}

// Device opens playback primitives for prepared clips.
type Device interface {
	Open(clip Clip) (Playback, error)
}

// Playback is one underlying audio source. Volume is linear in [0,1] and
// pitch is a playback-rate multiplier where 1 is unchanged.
type Playback interface {
	Play()
	Stop()
	SetLoop(loop bool)
	SetVolume(volume float64)
	SetPitch(pitch float64)
	IsPlaying() bool
	// Position within the current pass through the clip; it moves back
	// towards zero when a looping clip wraps around.
	Position() time.Duration
	Close() error
}

// Panner is implemented by playbacks that support stereo panning in [-1,1].
type Panner interface {
	SetPan(pan float64)
}
