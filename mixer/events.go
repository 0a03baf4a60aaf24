// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math"
	"sort"
	"time"
)

// Events every voice emits in addition to the asset's timed events.
const (
	EventStart = "start"
	EventEnd   = "end"
)

// forever stands in for unbounded durations: endless loops and the elapsed
// time used to flush pending events on recycle.
const forever = time.Duration(math.MaxInt64)

// Event is passed to listeners when a voice reaches a scheduled point.
type Event struct {
	Name  string
	Key   string
	Voice int
	// At is the trigger time relative to playback start.
	At time.Duration
	// Flushed is set when the voice was recycled before reaching At.
	Flushed bool
}

type Listener func(Event)

// ListenerID identifies one registration made with Handle.On. Zero is
// never a valid id.
type ListenerID uint64

type pendingEvent struct {
	name string
	at   time.Duration
}

type listenerEntry struct {
	id    ListenerID
	event string
	fn    Listener
}

// schedule builds the sorted pending list for one play.
func schedule(asset *Asset, endAfter time.Duration) []pendingEvent {
	pending := make([]pendingEvent, 0, len(asset.events)+2)
	pending = append(pending, pendingEvent{name: EventStart, at: 0})
	for _, ev := range asset.events {
		pending = append(pending, pendingEvent{name: ev.Name, at: ev.At})
	}
	pending = append(pending, pendingEvent{name: EventEnd, at: endAfter})
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].at < pending[j].at })
	return pending
}
