// SPDX-License-Identifier: EPL-2.0

// Package audio describes encoded clips without decoding them.
//
// The mixer only needs to know how long a clip is; it never touches samples.
// A Prober reads the container header of one format and reports an Info:
//
//	type Prober interface {
//	    Probe(r io.ReadSeeker) (Info, error)
//	}
//
// # Format Registry
//
// Probers are registered by format key, normally the file extension:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Prober{})
//	registry.Register("ogg", vorbis.Prober{})
//	info, err := registry.Probe("music/theme.ogg", file)
//
// The registry is safe for concurrent use, so background clip loaders can
// share one instance.
//
// # Durations
//
// Frames are counted per channel. FramesToDuration converts a frame count
// at a sample rate into a time.Duration; unknown lengths (-1) map to zero
// and probers return ErrUnknownLength when a stream cannot report one.
package audio
