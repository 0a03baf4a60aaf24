// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultPoolSize is the number of voices when no size is configured.
const DefaultPoolSize = 42

// pool is a fixed set of voice slots, materialized on first use.
type pool struct {
	slots  []*Voice
	next   int
	logger zerolog.Logger
}

func newPool(size int, prewarm bool, logger zerolog.Logger) *pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	p := &pool{
		slots:  make([]*Voice, size),
		logger: logger,
	}
	if prewarm {
		for i := range p.slots {
			p.slots[i] = newVoice(i, logger)
		}
	}
	return p
}

func (p *pool) size() int { return len(p.slots) }

// allocate returns a free voice, starting the search after the last one
// handed out. Voices that finished but have not been recycled yet are
// reclaimed. It returns nil when every slot is busy.
func (p *pool) allocate(now time.Duration) *Voice {
	n := len(p.slots)
	for i := 0; i < n; i++ {
		idx := (p.next + i) % n
		v := p.slots[idx]
		if v == nil {
			v = newVoice(idx, p.logger)
			p.slots[idx] = v
		}
		if v.owned() && v.finished(now) {
			v.recycle()
		}
		if v.state == VoiceFree && !v.recycling {
			p.next = (idx + 1) % n
			return v
		}
	}
	return nil
}

// each calls fn for every materialized voice in index order.
func (p *pool) each(fn func(*Voice)) {
	for _, v := range p.slots {
		if v != nil {
			fn(v)
		}
	}
}

func (p *pool) busy() int {
	count := 0
	p.each(func(v *Voice) {
		if v.owned() {
			count++
		}
	})
	return count
}

// stopAll releases every lock and stops every owned voice with fade.
func (p *pool) stopAll(fade, now time.Duration) {
	p.each(func(v *Voice) {
		if v.owned() {
			v.locked = false
			v.stop(fade, now)
		}
	})
	if fade <= 0 {
		p.next = 0
	}
}
