// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math"
	"time"
)

// Mute-relevant channels. Every asset is tagged with at least one of them.
const (
	ChannelMusic = "music"
	ChannelSound = "sound"
)

// Channel aggregates volume, ducking and abort-blocking for every asset
// tagged with its key. Channels are only touched from the tick thread.
type Channel struct {
	key            string
	originalVolume float64
	currentVolume  float64
	duckingLevel   float64

	// voices whose duck rules target this channel
	duckers map[*Voice]struct{}
	// voices whose abort rules target this channel
	aborters map[*Voice]struct{}
}

func newChannel(key string, volume float64) *Channel {
	volume = clamp01(volume)
	return &Channel{
		key:            key,
		originalVolume: volume,
		currentVolume:  volume,
		duckingLevel:   1,
		duckers:        make(map[*Voice]struct{}),
		aborters:       make(map[*Voice]struct{}),
	}
}

func (c *Channel) Key() string             { return c.key }
func (c *Channel) Volume() float64         { return c.currentVolume }
func (c *Channel) OriginalVolume() float64 { return c.originalVolume }
func (c *Channel) DuckingLevel() float64   { return c.duckingLevel }

// AbortBlocked reports whether an active voice holds an abort rule on this channel.
func (c *Channel) AbortBlocked() bool { return len(c.aborters) > 0 }

func (c *Channel) pushDuck(v *Voice)  { c.duckers[v] = struct{}{} }
func (c *Channel) popDuck(v *Voice)   { delete(c.duckers, v) }
func (c *Channel) pushAbort(v *Voice) { c.aborters[v] = struct{}{} }
func (c *Channel) popAbort(v *Voice)  { delete(c.aborters, v) }

func (c *Channel) reset() {
	c.currentVolume = c.originalVolume
	c.duckingLevel = 1
	clear(c.duckers)
	clear(c.aborters)
}

// smooth moves currentVolume exponentially towards 0 when muted, or towards
// the configured volume otherwise.
func (c *Channel) smooth(dt time.Duration, muted bool, rate float64) {
	target := c.originalVolume
	if muted {
		target = 0
	}
	if dt <= 0 || c.currentVolume == target {
		return
	}
	k := 1 - math.Exp(-rate*dt.Seconds())
	c.currentVolume += (target - c.currentVolume) * k
	if math.Abs(target-c.currentVolume) < 1e-4 {
		c.currentVolume = target
	}
	c.currentVolume = clamp01(c.currentVolume)
}

// aggregateDucking recomputes the ducking level from every registered voice.
// It must run for all channels before any voice reads duckingLevel.
func (c *Channel) aggregateDucking(now time.Duration) {
	level := 1.0
	for v := range c.duckers {
		if l := v.duckLevelFor(c, now); l < level {
			level = l
		}
	}
	c.duckingLevel = clamp01(level)
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
