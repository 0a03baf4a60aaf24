// SPDX-License-Identifier: EPL-2.0

// Package mixer is a tick-driven audio mixing engine.
//
// Assets are tagged onto channels. Playing an asset takes a voice from a
// fixed pool; while it plays, its duck rules lower other channels and its
// abort rules fade out and block them. Keys may also name playlists, which
// are resolved (possibly through other playlists) to one asset per play.
//
// The engine does no decoding or mixing of samples. It drives Playback
// values opened by a Device and is advanced by calling Director.Update
// once per frame from a single goroutine.
package mixer
