// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audmix/audio"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const (
	outputChannels = 2
	bytesPerFrame  = outputChannels * 2
)

// lengthReader is the part of gomp3.Decoder used for probing, split out for tests.
type lengthReader interface {
	SampleRate() int
	Length() int64
}

// Prober measures MP3 streams. go-mp3 scans frame headers on construction
// when the reader can seek, which gives an exact decoded length.
type Prober struct{}

func (Prober) Probe(r io.ReadSeeker) (audio.Info, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return audio.Info{}, fmt.Errorf("mp3 decoder: %w", err)
	}
	return infoFrom(dec)
}

func infoFrom(dec lengthReader) (audio.Info, error) {
	length := dec.Length()
	if length < 0 {
		return audio.Info{}, audio.ErrUnknownLength
	}

	rate := dec.SampleRate()
	frames := length / bytesPerFrame
	return audio.Info{
		Format:     "mp3",
		SampleRate: rate,
		Channels:   outputChannels,
		Frames:     frames,
		Duration:   audio.FramesToDuration(frames, rate),
	}, nil
}
