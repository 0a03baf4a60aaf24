// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"io"

	goaiff "github.com/go-audio/aiff"
	"github.com/ik5/audmix/audio"
)

// Prober reads FORM/AIFF headers through go-audio/aiff.
type Prober struct{}

func (Prober) Probe(r io.ReadSeeker) (audio.Info, error) {
	dec := goaiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return audio.Info{}, ErrNotAiffFile
	}
	dec.ReadInfo()

	if dec.SampleRate <= 0 || dec.NumChans == 0 {
		return audio.Info{}, ErrUnsupportedAiffLayout
	}

	frames := int64(dec.NumSampleFrames)
	return audio.Info{
		Format:     "aiff",
		SampleRate: dec.SampleRate,
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Frames:     frames,
		Duration:   audio.FramesToDuration(frames, dec.SampleRate),
	}, nil
}
