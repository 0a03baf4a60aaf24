// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Info describes an encoded clip without decoding its samples.
type Info struct {
	// Format key the prober was registered under (e.g. "wav", "mp3").
	Format string
	// SampleRate of the PCM stream in Hz.
	SampleRate int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels int
	// BitDepth of the source samples, 0 when the codec has none (mp3, vorbis).
	BitDepth int
	// Frames per channel, -1 when the container does not report it.
	Frames int64
	// Duration of one pass through the clip.
	Duration time.Duration
}

// FramesToDuration converts a frame count at sampleRate into a duration.
func FramesToDuration(frames int64, sampleRate int) time.Duration {
	if frames <= 0 || sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// Prober reads just enough of an encoded stream to describe it.
type Prober interface {
	Probe(r io.ReadSeeker) (Info, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(r io.ReadSeeker) (Info, error)

func (f ProberFunc) Probe(r io.ReadSeeker) (Info, error) { return f(r) }

// Registry for probers by format key (e.g., "wav", "mp3", "ogg").
type Registry struct {
	probers map[string]Prober

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		probers: make(map[string]Prober),
		mtx:     &sync.Mutex{},
	}
}

func (r *Registry) Register(format string, p Prober) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.probers[strings.ToLower(format)] = p
}

func (r *Registry) Get(format string) (Prober, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	p, ok := r.probers[strings.ToLower(format)]
	return p, ok
}

// Formats lists the registered format keys.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]string, 0, len(r.probers))
	for k := range r.probers {
		out = append(out, k)
	}
	return out
}

// ForPath picks a prober by the extension of name.
func (r *Registry) ForPath(name string) (Prober, string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return nil, "", ErrNoExtension
	}
	p, ok := r.Get(ext)
	if !ok {
		return nil, ext, ErrUnsupportedFormat
	}
	return p, ext, nil
}

// Probe describes r using the prober registered for the extension of name.
func (r *Registry) Probe(name string, rs io.ReadSeeker) (Info, error) {
	p, format, err := r.ForPath(name)
	if err != nil {
		return Info{}, err
	}
	info, err := p.Probe(rs)
	if err != nil {
		return Info{}, err
	}
	if info.Format == "" {
		info.Format = format
	}
	return info, nil
}
