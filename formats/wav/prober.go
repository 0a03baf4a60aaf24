// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	gowav "github.com/go-audio/wav"
	"github.com/ik5/audmix/audio"
)

// Prober reads RIFF/WAVE headers through go-audio/wav.
type Prober struct{}

func (Prober) Probe(r io.ReadSeeker) (audio.Info, error) {
	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		return audio.Info{}, ErrNotWavFile
	}
	dec.ReadInfo()

	if dec.SampleRate == 0 || dec.NumChans == 0 {
		return audio.Info{}, ErrUnsupportedWavLayout
	}

	// the data chunk size gives exact frames; the decoder's own Duration
	// counts the whole RIFF chunk
	if err := dec.FwdToPCM(); err != nil {
		return audio.Info{}, fmt.Errorf("wav data chunk: %w", err)
	}
	frameSize := int64(dec.NumChans) * int64((dec.BitDepth+7)/8)
	if frameSize == 0 {
		return audio.Info{}, ErrUnsupportedWavLayout
	}

	rate := int(dec.SampleRate)
	frames := dec.PCMLen() / frameSize
	return audio.Info{
		Format:     "wav",
		SampleRate: rate,
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Frames:     frames,
		Duration:   audio.FramesToDuration(frames, rate),
	}, nil
}
