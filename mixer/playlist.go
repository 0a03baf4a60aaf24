// SPDX-License-Identifier: EPL-2.0

package mixer

import "math/rand/v2"

// Playlist is an ordered or shuffled sequence of track keys. A track may
// itself name another playlist; the Registry follows that indirection.
type Playlist struct {
	key         string
	tracks      []string
	shuffle     bool
	cycle       bool
	randomStart bool

	// permutation of track indexes, only used when shuffled
	order  []int
	cursor int
	// last track handed out, used to avoid repeats across a reshuffle
	last string

	rng *rand.Rand
}

func newPlaylist(key string, tracks []string, shuffle, cycle, randomStart bool, rng *rand.Rand) *Playlist {
	p := &Playlist{
		key:         key,
		tracks:      append([]string(nil), tracks...),
		shuffle:     shuffle,
		cycle:       cycle,
		randomStart: randomStart,
		rng:         rng,
	}
	p.Reset()
	return p
}

func (p *Playlist) Key() string    { return p.key }
func (p *Playlist) Len() int       { return len(p.tracks) }
func (p *Playlist) Shuffled() bool { return p.shuffle }
func (p *Playlist) Cycles() bool   { return p.cycle }

func (p *Playlist) Tracks() []string {
	return append([]string(nil), p.tracks...)
}

// PeekNextTrack returns the track NextTrack would return, without advancing.
func (p *Playlist) PeekNextTrack() (string, bool) {
	if !p.ready() {
		return "", false
	}
	return p.trackAt(p.cursor), true
}

// NextTrack returns the track at the cursor and advances it. A non-cycling
// playlist reports false once every track has been handed out.
func (p *Playlist) NextTrack() (string, bool) {
	if !p.ready() {
		return "", false
	}
	track := p.trackAt(p.cursor)
	p.cursor++
	p.last = track
	return track, true
}

// SkipTrack advances the cursor by one, wrapping around at the end.
func (p *Playlist) SkipTrack() {
	if len(p.tracks) == 0 {
		return
	}
	if !p.ready() {
		p.cursor = 0
	}
	p.last = p.trackAt(p.cursor)
	p.cursor = (p.cursor + 1) % len(p.tracks)
}

// Reset rewinds the cursor. Shuffled playlists get a fresh permutation and
// random-start playlists a random cursor.
func (p *Playlist) Reset() {
	p.cursor = 0
	p.last = ""
	n := len(p.tracks)
	if n == 0 {
		return
	}
	switch {
	case p.shuffle:
		p.reshuffle(false)
	case p.randomStart:
		p.cursor = p.rng.IntN(n)
	}
}

// ready wraps the cursor when it has run off the end, reshuffling if needed.
func (p *Playlist) ready() bool {
	n := len(p.tracks)
	if n == 0 {
		return false
	}
	if p.cursor < n {
		return true
	}
	if !p.cycle {
		return false
	}
	p.cursor = 0
	if p.shuffle {
		p.reshuffle(true)
	}
	return true
}

func (p *Playlist) reshuffle(guard bool) {
	n := len(p.tracks)
	p.order = p.rng.Perm(n)
	if !guard || n < 2 || p.last == "" {
		return
	}
	if p.tracks[p.order[0]] == p.last {
		j := 1 + p.rng.IntN(n-1)
		p.order[0], p.order[j] = p.order[j], p.order[0]
	}
}

func (p *Playlist) trackAt(i int) string {
	if p.shuffle {
		return p.tracks[p.order[i]]
	}
	return p.tracks[i]
}
