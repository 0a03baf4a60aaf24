// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DuckRule lowers Target to Volume while the owning voice plays. The level
// ramps down over Start, and back up over End beginning EndOffset after
// playback ends (a negative offset starts the ramp before the end).
type DuckRule struct {
	Target    *Channel
	Volume    float64
	Start     time.Duration
	End       time.Duration
	EndOffset time.Duration
}

// AbortRule fades out every other voice on Target when the owning asset starts.
type AbortRule struct {
	Target  *Channel
	FadeOut time.Duration
}

// TimedEvent is delivered to listeners once playback passes At.
type TimedEvent struct {
	Name string
	At   time.Duration
}

// Asset is the static description of one playable sound. Only lastPlayed
// and the lazily prepared clip change after load.
type Asset struct {
	key         string
	fallbackKey string
	ref         ClipRef

	volume         float64
	pitch          float64
	delay          time.Duration
	noReplayWindow time.Duration
	range3D        float64
	pan            float64
	loops          int
	beat           time.Duration
	pickup         time.Duration

	channels []*Channel
	ducks    []DuckRule
	aborts   []AbortRule
	blocking []*Channel
	waitFor  []*Channel
	skipIf   []*Channel
	events   []TimedEvent

	// time needed after playback for every ducked channel to recover
	maxUnduck time.Duration

	clip        Clip
	missingData bool
	played      bool
	lastPlayed  time.Duration
}

func (a *Asset) Key() string                   { return a.key }
func (a *Asset) FallbackKey() string           { return a.fallbackKey }
func (a *Asset) Ref() ClipRef                  { return a.ref }
func (a *Asset) Volume() float64               { return a.volume }
func (a *Asset) Pitch() float64                { return a.pitch }
func (a *Asset) Delay() time.Duration          { return a.delay }
func (a *Asset) NoReplayWindow() time.Duration { return a.noReplayWindow }
func (a *Asset) Range3D() float64              { return a.range3D }
func (a *Asset) Pan() float64                  { return a.pan }
func (a *Asset) Loops() int                    { return a.loops }
func (a *Asset) Beat() time.Duration           { return a.beat }
func (a *Asset) Pickup() time.Duration         { return a.pickup }
func (a *Asset) MissingData() bool             { return a.missingData }
func (a *Asset) DuckRules() []DuckRule         { return a.ducks }
func (a *Asset) AbortRules() []AbortRule       { return a.aborts }
func (a *Asset) Events() []TimedEvent          { return a.events }

// Tags lists the keys of the channels the asset is tagged on.
func (a *Asset) Tags() []string {
	out := make([]string, len(a.channels))
	for i, ch := range a.channels {
		out[i] = ch.key
	}
	return out
}

// BlockingChannels are the tagged channels the asset cannot abort itself.
func (a *Asset) BlockingChannels() []*Channel { return a.blocking }

func (a *Asset) HasChannelTag(key string) bool {
	for _, ch := range a.channels {
		if ch.key == key {
			return true
		}
	}
	return false
}

func (a *Asset) hasChannel(c *Channel) bool {
	for _, ch := range a.channels {
		if ch == c {
			return true
		}
	}
	return false
}

// prepareClip resolves the clip once. A pending load reports ErrClipPending
// and is retried on the next call; any other failure marks the asset as
// permanently missing.
func (a *Asset) prepareClip(loader ClipLoader, logger zerolog.Logger) error {
	if a.clip != nil {
		return nil
	}
	if a.missingData {
		return fmt.Errorf("%w: %q", ErrMissingData, a.key)
	}
	if loader == nil {
		a.missingData = true
		return fmt.Errorf("%w: %q has no loader", ErrMissingData, a.key)
	}

	clip, err := loader.LoadClip(a.ref)
	if errors.Is(err, ErrClipPending) {
		return err
	}
	if err == nil && clip == nil {
		err = errNilClip
	}
	if err != nil {
		a.missingData = true
		logger.Warn().Err(err).Str("key", a.key).Str("file", a.ref.FileName).Msg("audio clip could not be loaded")
		return fmt.Errorf("%w: %q: %w", ErrMissingData, a.key, err)
	}
	a.clip = clip
	return nil
}

// ClipLength returns the length of one pass through the clip, or 0 when
// the clip has not been prepared.
func (a *Asset) ClipLength() time.Duration {
	if a.clip == nil {
		return 0
	}
	return a.clip.Length()
}

func (a *Asset) clipLength(loader ClipLoader, logger zerolog.Logger) time.Duration {
	if err := a.prepareClip(loader, logger); err != nil {
		logger.Warn().Err(err).Str("key", a.key).Msg("clip length unavailable")
		return 0
	}
	return a.clip.Length()
}

func (a *Asset) markPlaying(now time.Duration) {
	a.played = true
	a.lastPlayed = now
}

func (a *Asset) replayReady(now time.Duration) bool {
	return !a.played || now-a.lastPlayed >= a.noReplayWindow
}

func (a *Asset) abortBlocked() bool {
	for _, ch := range a.blocking {
		if ch.AbortBlocked() {
			return true
		}
	}
	return false
}

func (a *Asset) muted(m mutes) bool {
	for _, ch := range a.channels {
		switch ch.key {
		case ChannelMusic:
			if m.music {
				return true
			}
		case ChannelSound:
			if m.sound {
				return true
			}
		}
	}
	return false
}

func (a *Asset) canPlay(now time.Duration, m mutes) bool {
	return !a.missingData &&
		a.clip != nil &&
		a.replayReady(now) &&
		!a.abortBlocked() &&
		!a.muted(m)
}

// playLength is the scheduled audible length for the given loop count.
func (a *Asset) playLength(loops int) time.Duration {
	if loops < 0 {
		return forever
	}
	return time.Duration(loops+1) * a.ClipLength()
}

func (a *Asset) reset() {
	a.played = false
	a.lastPlayed = 0
}

var errNilClip = errors.New("loader returned no clip")

type mutes struct {
	music bool
	sound bool
}
