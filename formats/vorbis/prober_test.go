// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ik5/audmix/audio"
)

type fakeReader struct {
	rate, channels int
	length         int64
}

func (r fakeReader) SampleRate() int { return r.rate }
func (r fakeReader) Channels() int   { return r.channels }
func (r fakeReader) Length() int64   { return r.length }

func TestInfoFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		reader fakeReader
		want   time.Duration
	}{
		{"mono 1s", fakeReader{rate: 48000, channels: 1, length: 48000}, time.Second},
		{"stereo 250ms", fakeReader{rate: 44100, channels: 2, length: 11025}, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := infoFrom(tt.reader)
			if err != nil {
				t.Fatalf("infoFrom() error = %v", err)
			}
			if info.Duration != tt.want {
				t.Errorf("Duration = %v, want %v", info.Duration, tt.want)
			}
			if info.Channels != tt.reader.channels {
				t.Errorf("Channels = %d, want %d", info.Channels, tt.reader.channels)
			}
		})
	}
}

func TestInfoFrom_UnknownLength(t *testing.T) {
	t.Parallel()

	_, err := infoFrom(fakeReader{rate: 44100, channels: 2})
	if !errors.Is(err, audio.ErrUnknownLength) {
		t.Errorf("infoFrom() error = %v, want %v", err, audio.ErrUnknownLength)
	}
}

func TestProber_InvalidData(t *testing.T) {
	t.Parallel()

	if _, err := (Prober{}).Probe(bytes.NewReader([]byte("OggS but not really"))); err == nil {
		t.Error("Probe() error = nil, want error for garbage input")
	}
}
