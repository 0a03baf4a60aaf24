// SPDX-License-Identifier: EPL-2.0

package ebitenaudio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/rs/zerolog"

	"github.com/ik5/audmix/clip"
	"github.com/ik5/audmix/mixer"
)

var (
	ErrUnsupportedClip   = errors.New("clip was not produced by the clip package")
	ErrUnsupportedFormat = errors.New("format cannot be decoded by ebiten")
)

// Device opens ebiten audio players for clips loaded by the clip package.
type Device struct {
	ctx    *audio.Context
	logger zerolog.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger player failures are reported to.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// NewDevice uses the process-wide ebiten audio context, creating it at
// sampleRate if none exists yet.
func NewDevice(sampleRate int, opts ...Option) *Device {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(sampleRate)
	}
	return NewDeviceWithContext(ctx, opts...)
}

func NewDeviceWithContext(ctx *audio.Context, opts ...Option) *Device {
	d := &Device{ctx: ctx, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) SampleRate() int { return d.ctx.SampleRate() }

func (d *Device) Open(c mixer.Clip) (mixer.Playback, error) {
	cl, ok := c.(*clip.Clip)
	if !ok {
		return nil, fmt.Errorf("ebitenaudio: %T: %w", c, ErrUnsupportedClip)
	}
	if err := checkFormat(cl.Format()); err != nil {
		return nil, fmt.Errorf("ebitenaudio: %s: %w", cl.Ref.FileName, err)
	}

	stream, length, err := decode(d.ctx.SampleRate(), cl)
	if err != nil {
		return nil, fmt.Errorf("ebitenaudio: decode %s: %w", cl.Ref.FileName, err)
	}
	return &playback{
		newPlayer: d.ctx.NewPlayer,
		stream:    stream,
		length:    length,
		clip:      cl.Length(),
		volume:    1,
		logger:    d.logger.With().Str("file", cl.Ref.FileName).Logger(),
	}, nil
}

func checkFormat(format string) error {
	switch format {
	case "wav", "mp3", "ogg":
		return nil
	}
	return fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
}

// decode returns a PCM stream at sampleRate and its length in bytes.
func decode(sampleRate int, cl *clip.Clip) (io.ReadSeeker, int64, error) {
	r := bytes.NewReader(cl.Data)
	switch cl.Format() {
	case "wav":
		s, err := wav.DecodeWithSampleRate(sampleRate, r)
		if err != nil {
			return nil, 0, err
		}
		return s, s.Length(), nil
	case "mp3":
		s, err := mp3.DecodeWithSampleRate(sampleRate, r)
		if err != nil {
			return nil, 0, err
		}
		return s, s.Length(), nil
	case "ogg":
		s, err := vorbis.DecodeWithSampleRate(sampleRate, r)
		if err != nil {
			return nil, 0, err
		}
		return s, s.Length(), nil
	}
	return nil, 0, checkFormat(cl.Format())
}

// playback creates its player on the first Play, once the loop mode is known.
// A failed Play leaves it silent; the error is logged and returned by Close.
type playback struct {
	newPlayer func(io.Reader) (*audio.Player, error)
	stream    io.ReadSeeker
	length    int64
	clip      time.Duration
	logger    zerolog.Logger

	player *audio.Player
	loop   bool
	volume float64
	pitch  float64
	err    error
}

func (p *playback) Play() {
	if p.player == nil {
		var src io.Reader = p.stream
		if p.loop && p.length > 0 {
			src = audio.NewInfiniteLoop(p.stream, p.length)
		}
		player, err := p.newPlayer(src)
		if err != nil {
			p.fail(fmt.Errorf("ebitenaudio: new player: %w", err))
			return
		}
		p.player = player
		p.player.SetVolume(p.volume)
	} else if err := p.player.Rewind(); err != nil {
		p.fail(fmt.Errorf("ebitenaudio: rewind: %w", err))
		return
	}
	p.player.Play()
}

func (p *playback) fail(err error) {
	p.logger.Error().Err(err).Msg("playback failed")
	p.err = errors.Join(p.err, err)
}

func (p *playback) Stop() {
	if p.player != nil {
		p.player.Pause()
	}
}

func (p *playback) SetLoop(loop bool) { p.loop = loop }

func (p *playback) SetVolume(volume float64) {
	p.volume = volume
	if p.player != nil {
		p.player.SetVolume(volume)
	}
}

// SetPitch is recorded only; ebiten players have no rate control.
func (p *playback) SetPitch(pitch float64) { p.pitch = pitch }

func (p *playback) IsPlaying() bool {
	return p.player != nil && p.player.IsPlaying()
}

// Position wraps at the clip length so looping players report each pass.
func (p *playback) Position() time.Duration {
	if p.player == nil {
		return 0
	}
	pos := p.player.Position()
	if p.loop && p.clip > 0 {
		pos %= p.clip
	}
	return pos
}

// Close releases the player and reports any failure seen by Play.
func (p *playback) Close() error {
	if p.player == nil {
		return p.err
	}
	return errors.Join(p.err, p.player.Close())
}
