// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/ik5/audmix/mixer"
)

// Clip is a clip with a fixed length and no data.
type Clip struct {
	Name string
	Len  time.Duration
}

func (c *Clip) Length() time.Duration { return c.Len }

// Loader is an in-memory mixer.ClipLoader keyed by file name.
type Loader struct {
	clips    map[string]*Clip
	pending  map[string]int
	failures map[string]error
	// Calls counts LoadClip invocations.
	Calls int
}

func NewLoader() *Loader {
	return &Loader{
		clips:    make(map[string]*Clip),
		pending:  make(map[string]int),
		failures: make(map[string]error),
	}
}

// Add registers a clip of the given length under file.
func (l *Loader) Add(file string, length time.Duration) *Loader {
	l.clips[file] = &Clip{Name: file, Len: length}
	return l
}

// Pending makes the next polls loads of file report mixer.ErrClipPending.
func (l *Loader) Pending(file string, polls int) *Loader {
	l.pending[file] = polls
	return l
}

// Fail makes every load of file return err.
func (l *Loader) Fail(file string, err error) *Loader {
	l.failures[file] = err
	return l
}

func (l *Loader) LoadClip(ref mixer.ClipRef) (mixer.Clip, error) {
	l.Calls++
	if n := l.pending[ref.FileName]; n > 0 {
		l.pending[ref.FileName] = n - 1
		return nil, mixer.ErrClipPending
	}
	if err, ok := l.failures[ref.FileName]; ok {
		return nil, err
	}
	c, ok := l.clips[ref.FileName]
	if !ok {
		return nil, fmt.Errorf("audiotest: %s: %w", ref.FileName, fs.ErrNotExist)
	}
	return c, nil
}

// Device hands out Playbacks whose position only moves when Advance is called.
type Device struct {
	Playbacks []*Playback
	// OpenErr, when set, is returned by every Open.
	OpenErr error
}

func NewDevice() *Device {
	return &Device{}
}

func (d *Device) Open(c mixer.Clip) (mixer.Playback, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	p := &Playback{Clip: c, Pitch: 1}
	d.Playbacks = append(d.Playbacks, p)
	return p, nil
}

// Advance moves every playing playback forward by dt.
func (d *Device) Advance(dt time.Duration) {
	for _, p := range d.Playbacks {
		p.advance(dt)
	}
}

// Last is the most recently opened playback, or nil.
func (d *Device) Last() *Playback {
	if len(d.Playbacks) == 0 {
		return nil
	}
	return d.Playbacks[len(d.Playbacks)-1]
}

// Ticker is what Run drives; *mixer.Director satisfies it.
type Ticker interface {
	Update(dt time.Duration)
}

// Run advances dev and then t by dt, n times.
func Run(t Ticker, dev *Device, dt time.Duration, n int) {
	for range n {
		dev.Advance(dt)
		t.Update(dt)
	}
}

// Playback records every call made on it.
type Playback struct {
	Clip   mixer.Clip
	Volume float64
	Pitch  float64
	Pan    float64
	Loop   bool
	Plays  int
	Stops  int
	Closed bool

	playing bool
	pos     time.Duration
}

func (p *Playback) Play() {
	p.Plays++
	p.playing = true
	p.pos = 0
}

func (p *Playback) Stop() {
	p.Stops++
	p.playing = false
}

func (p *Playback) SetLoop(loop bool)        { p.Loop = loop }
func (p *Playback) SetVolume(volume float64) { p.Volume = volume }
func (p *Playback) SetPitch(pitch float64)   { p.Pitch = pitch }
func (p *Playback) SetPan(pan float64)       { p.Pan = pan }
func (p *Playback) IsPlaying() bool          { return p.playing }
func (p *Playback) Position() time.Duration  { return p.pos }

func (p *Playback) Close() error {
	p.Closed = true
	p.playing = false
	return nil
}

func (p *Playback) advance(dt time.Duration) {
	if !p.playing || p.Closed {
		return
	}
	length := p.Clip.Length()
	p.pos += dt
	if p.pos < length {
		return
	}
	if p.Loop && length > 0 {
		p.pos %= length
		return
	}
	p.pos = length
	p.playing = false
}

var (
	_ mixer.ClipLoader = (*Loader)(nil)
	_ mixer.Device     = (*Device)(nil)
	_ mixer.Playback   = (*Playback)(nil)
	_ mixer.Panner     = (*Playback)(nil)
)
