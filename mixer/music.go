// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"
	"time"
)

// musicState tracks the one voice the director treats as background music.
// When it ends, the default key takes over again.
type musicState struct {
	defaultKey string
	current    Handle
	currentKey string
}

// MusicKey is the default music key, empty when none is set.
func (d *Director) MusicKey() string { return d.music.defaultKey }

// CurrentMusic is the voice currently treated as music, possibly stale.
func (d *Director) CurrentMusic() Handle { return d.music.current }

// SwitchMusicKey makes key the default music. If key is already the one
// playing it simply continues. A looping track is faded out over fade right
// away; a playlist track is left to finish and the next track comes from key.
func (d *Director) SwitchMusicKey(key string, fade time.Duration) (Handle, error) {
	if !d.reg.known(key) {
		d.logger.Warn().Str("key", key).Msg("unknown music key")
		return Handle{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	d.music.defaultKey = key
	cur, playing := d.music.current.voice()
	if playing && d.music.currentKey == key {
		return d.music.current, nil
	}
	if h, ok := d.adoptPlaying(key); ok {
		return h, nil
	}

	switch {
	case !playing:
		return d.startMusic(key, 0)
	case cur.loops < 0:
		return d.startMusic(key, fade)
	}
	d.logger.Debug().Str("key", key).Str("current", d.music.currentKey).Msg("music switch waits for track end")
	return d.music.current, nil
}

// SwitchMusicKeyImmediate makes key the default music and starts it now,
// fading out whatever plays over fade. If key is already playing nothing
// happens.
func (d *Director) SwitchMusicKeyImmediate(key string, fade time.Duration) (Handle, error) {
	if !d.reg.known(key) {
		d.logger.Warn().Str("key", key).Msg("unknown music key")
		return Handle{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	d.music.defaultKey = key
	if d.music.current.Valid() && d.music.currentKey == key {
		return d.music.current, nil
	}
	if h, ok := d.adoptPlaying(key); ok {
		return h, nil
	}
	return d.startMusic(key, fade)
}

// adoptPlaying takes over a voice that already plays key outside the music
// path, so switching to it does not restart it.
func (d *Director) adoptPlaying(key string) (Handle, bool) {
	h := d.FindPlayingVoice(key)
	v, ok := h.voice()
	if !ok || v.state == VoiceFading || h == d.music.current {
		return Handle{}, false
	}
	d.interruptMusic(0)
	d.adoptMusic(h, key)
	return h, true
}

// PlayMusic interrupts the music with key as a one-shot: the current track
// fades out over prevFade and key starts after nextDelay. When it ends the
// default music resumes. With loop set the track repeats until replaced.
func (d *Director) PlayMusic(key string, prevFade, nextDelay time.Duration, loop bool) (Handle, error) {
	if !d.reg.known(key) {
		d.logger.Warn().Str("key", key).Msg("unknown music key")
		return Handle{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	d.interruptMusic(prevFade)
	if nextDelay > 0 {
		d.sched.after(d.now, nextDelay, laneMusic, func() {
			if _, err := d.playMusicNow(key, loop); err != nil {
				d.logger.Warn().Err(err).Str("key", key).Msg("delayed music did not start")
			}
		})
		return Handle{}, nil
	}
	return d.playMusicNow(key, loop)
}

// StopMusic fades the music out and forgets the default key.
func (d *Director) StopMusic(fade time.Duration) {
	d.music.defaultKey = ""
	d.interruptMusic(fade)
	d.music.currentKey = ""
}

func (d *Director) playMusicNow(key string, loop bool) (Handle, error) {
	p := playParams{volume: 1}
	if loop {
		p.loops = LoopForever
	}
	h, err := d.play(key, p, false)
	if err != nil {
		return Handle{}, err
	}
	d.adoptMusic(h, key)
	return h, nil
}

// startMusic replaces the current music with key. Single assets loop until
// replaced; playlists advance one track per end event.
func (d *Director) startMusic(key string, fade time.Duration) (Handle, error) {
	d.interruptMusic(fade)
	return d.playMusicNow(key, d.loopsAsMusic(key))
}

// interruptMusic fades out the music voice and cancels pending music work.
func (d *Director) interruptMusic(fade time.Duration) {
	d.sched.invalidate(laneMusic)
	cur := d.music.current
	d.music.current = Handle{}
	if v, ok := cur.voice(); ok {
		v.stop(fade, d.now)
	}
}

func (d *Director) adoptMusic(h Handle, key string) {
	d.music.current = h
	d.music.currentKey = key
	gen := d.sched.generation(laneMusic)
	h.On(EventEnd, func(Event) { d.musicEnded(h, gen) })
}

// musicEnded moves on to the default key one tick after the music voice ends.
func (d *Director) musicEnded(h Handle, gen uint64) {
	if gen != d.sched.generation(laneMusic) || d.music.current != h {
		return
	}
	d.music.current = Handle{}
	d.sched.afterTicks(1, laneMusic, func() {
		next := d.music.defaultKey
		if next == "" || d.music.current.Valid() || d.mutes.music {
			return
		}
		if _, err := d.playMusicNow(next, d.loopsAsMusic(next)); err != nil {
			d.logger.Warn().Err(err).Str("key", next).Msg("cannot continue music")
		}
	})
}

// resumeMusicAfter restarts the default music once h, which interrupted it,
// has ended.
func (d *Director) resumeMusicAfter(h Handle) {
	gen := d.sched.generation(laneMusic)
	h.On(EventEnd, func(Event) {
		if gen != d.sched.generation(laneMusic) || d.music.current.Valid() {
			return
		}
		d.sched.afterTicks(1, laneMusic, func() {
			key := d.music.defaultKey
			if key == "" || d.music.current.Valid() || d.mutes.music {
				return
			}
			if _, err := d.playMusicNow(key, d.loopsAsMusic(key)); err != nil {
				d.logger.Warn().Err(err).Str("key", key).Msg("cannot resume music")
			}
		})
	})
}

func (d *Director) loopsAsMusic(key string) bool {
	_, isPlaylist := d.reg.playlists[key]
	return !isPlaylist
}
