// SPDX-License-Identifier: EPL-2.0

package clip

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/aiff"
	"github.com/ik5/audmix/formats/mp3"
	"github.com/ik5/audmix/formats/vorbis"
	"github.com/ik5/audmix/formats/wav"
	"github.com/ik5/audmix/mixer"
)

var ErrNoFileName = errors.New("clip reference has no file name")

// Clip is an encoded clip held in memory together with its probed header.
type Clip struct {
	Ref  mixer.ClipRef
	Info audio.Info
	Data []byte
}

func (c *Clip) Length() time.Duration { return c.Info.Duration }

// Format is the prober key the clip was recognized as, e.g. "wav".
func (c *Clip) Format() string { return c.Info.Format }

// DefaultRegistry knows every format under formats/, keyed by file extension.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Prober{})
	r.Register("wave", wav.Prober{})
	r.Register("mp3", mp3.Prober{})
	r.Register("ogg", vorbis.Prober{})
	r.Register("oga", vorbis.Prober{})
	r.Register("aiff", aiff.Prober{})
	r.Register("aif", aiff.Prober{})
	return r
}

// Loader reads clips from a file system. Bundle is used as a directory
// prefix for FileName. Loader is safe for concurrent use when fsys is.
type Loader struct {
	fsys    fs.FS
	probers *audio.Registry
}

// NewLoader returns a Loader over fsys. A nil registry means DefaultRegistry.
func NewLoader(fsys fs.FS, probers *audio.Registry) *Loader {
	if probers == nil {
		probers = DefaultRegistry()
	}
	return &Loader{fsys: fsys, probers: probers}
}

// Load reads and probes the file behind ref.
func (l *Loader) Load(ref mixer.ClipRef) (*Clip, error) {
	if ref.FileName == "" {
		return nil, fmt.Errorf("clip: %q: %w", ref.Key, ErrNoFileName)
	}
	name := path.Join(ref.Bundle, ref.FileName)

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("clip: %w", err)
	}
	info, err := l.probers.Probe(name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("clip: probe %s: %w", name, err)
	}
	return &Clip{Ref: ref, Info: info, Data: data}, nil
}

func (l *Loader) LoadClip(ref mixer.ClipRef) (mixer.Clip, error) {
	c, err := l.Load(ref)
	if err != nil {
		return nil, err
	}
	return c, nil
}
