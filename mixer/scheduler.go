// SPDX-License-Identifier: EPL-2.0

package mixer

import "time"

// Lanes group deferred tasks so a whole family can be cancelled at once.
type lane int

const (
	laneGlobal lane = iota
	laneMusic
	laneCount
)

type task struct {
	due   time.Duration
	ticks int
	lane  lane
	stamp uint64
	run   func()
}

// scheduler holds deferred work for the tick thread. Each lane carries a
// generation; bumping it drops every task stamped with an older one.
type scheduler struct {
	tasks []task
	gens  [laneCount]uint64
}

// after runs fn on the first tick at or past now+delay.
func (s *scheduler) after(now, delay time.Duration, l lane, fn func()) {
	s.tasks = append(s.tasks, task{due: now + delay, ticks: -1, lane: l, stamp: s.gens[l], run: fn})
}

// afterTicks runs fn once n more ticks have started.
func (s *scheduler) afterTicks(n int, l lane, fn func()) {
	s.tasks = append(s.tasks, task{ticks: max(n, 1), lane: l, stamp: s.gens[l], run: fn})
}

func (s *scheduler) invalidate(l lane) {
	s.gens[l]++
}

func (s *scheduler) generation(l lane) uint64 {
	return s.gens[l]
}

func (s *scheduler) pending() int {
	return len(s.tasks)
}

// run executes due tasks. Tasks queued while running wait for the next tick.
func (s *scheduler) run(now time.Duration) {
	if len(s.tasks) == 0 {
		return
	}
	current := s.tasks
	var due []task
	keep := current[:0]
	for _, t := range current {
		if t.stamp != s.gens[t.lane] {
			continue
		}
		if t.ticks >= 0 {
			t.ticks--
			if t.ticks <= 0 {
				due = append(due, t)
				continue
			}
		} else if now >= t.due {
			due = append(due, t)
			continue
		}
		keep = append(keep, t)
	}
	s.tasks = keep

	for _, t := range due {
		// an earlier task in this batch may have cancelled the lane
		if t.stamp != s.gens[t.lane] {
			continue
		}
		t.run()
	}
}

func (s *scheduler) clear() {
	s.tasks = nil
	for l := range s.gens {
		s.gens[l]++
	}
}
