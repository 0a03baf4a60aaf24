// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/ik5/audmix/audio"
	"github.com/jfreymuth/oggvorbis"
)

// lengthReader is the part of oggvorbis.Reader used for probing, split out for tests.
type lengthReader interface {
	SampleRate() int
	Channels() int
	Length() int64
}

// Prober measures Ogg Vorbis streams. oggvorbis seeks to the last page to
// find the final granule position, so the reader must be seekable.
type Prober struct{}

func (Prober) Probe(r io.ReadSeeker) (audio.Info, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return audio.Info{}, fmt.Errorf("ogg vorbis reader: %w", err)
	}
	return infoFrom(dec)
}

func infoFrom(dec lengthReader) (audio.Info, error) {
	// zero means the length is unknown
	frames := dec.Length()
	if frames <= 0 {
		return audio.Info{}, audio.ErrUnknownLength
	}

	rate := dec.SampleRate()
	return audio.Info{
		Format:     "ogg",
		SampleRate: rate,
		Channels:   dec.Channels(),
		Frames:     frames,
		Duration:   audio.FramesToDuration(frames, rate),
	}, nil
}
