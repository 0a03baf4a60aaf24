// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"time"

	"github.com/google/uuid"
)

// PlayRecord describes one successful Play.
type PlayRecord struct {
	ID uuid.UUID
	// Key is the requested key, Asset the asset it resolved to.
	Key   string
	Asset string
	Voice int
	At    time.Duration
}

// VoiceInfo is a snapshot of one busy voice.
type VoiceInfo struct {
	Index     int
	Key       string
	State     VoiceState
	Volume    float64
	Pitch     float64
	Elapsed   time.Duration
	EndAfter  time.Duration
	LoopCount int
	Locked    bool
}

func (d *Director) record(key string, asset *Asset, v *Voice) {
	if d.historySize <= 0 {
		return
	}
	if len(d.history) == d.historySize {
		copy(d.history, d.history[1:])
		d.history = d.history[:len(d.history)-1]
	}
	d.history = append(d.history, PlayRecord{
		ID:    uuid.New(),
		Key:   key,
		Asset: asset.key,
		Voice: v.index,
		At:    d.now,
	})
}

// History returns the most recent plays, oldest first.
func (d *Director) History() []PlayRecord {
	return append([]PlayRecord(nil), d.history...)
}

// Voices returns a snapshot of every busy voice in pool order.
func (d *Director) Voices() []VoiceInfo {
	var out []VoiceInfo
	d.pool.each(func(v *Voice) {
		if !v.owned() {
			return
		}
		out = append(out, VoiceInfo{
			Index:     v.index,
			Key:       v.asset.key,
			State:     v.state,
			Volume:    v.volume,
			Pitch:     v.pitch,
			Elapsed:   v.elapsed,
			EndAfter:  v.endAfter,
			LoopCount: v.loopCount,
			Locked:    v.locked,
		})
	})
	return out
}

// ActiveVoices counts busy voices.
func (d *Director) ActiveVoices() int { return d.pool.busy() }
