// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math"
	"testing"
	"time"
)

func TestChannel_NewClampsVolume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{1.7, 1},
		{-2, 0},
	}
	for _, tt := range tests {
		c := newChannel("sfx", tt.in)
		if c.OriginalVolume() != tt.want {
			t.Errorf("newChannel(%v).OriginalVolume() = %v, want %v", tt.in, c.OriginalVolume(), tt.want)
		}
		if c.DuckingLevel() != 1 {
			t.Errorf("newChannel(%v).DuckingLevel() = %v, want 1", tt.in, c.DuckingLevel())
		}
	}
}

func TestChannel_AbortReferences(t *testing.T) {
	t.Parallel()

	c := newChannel("sfx", 1)
	a, b := &Voice{index: 0}, &Voice{index: 1}

	c.pushAbort(a)
	c.pushAbort(b)
	c.pushAbort(a)
	if !c.AbortBlocked() {
		t.Fatal("AbortBlocked() = false with two aborters")
	}

	c.popAbort(a)
	if !c.AbortBlocked() {
		t.Error("AbortBlocked() = false while b still aborts")
	}
	c.popAbort(b)
	if c.AbortBlocked() {
		t.Error("AbortBlocked() = true after every aborter popped")
	}
}

func TestChannel_SmoothTowardsMute(t *testing.T) {
	t.Parallel()

	c := newChannel("music", 0.8)
	prev := c.Volume()
	for range 60 {
		c.smooth(time.Second/60, true, 5)
		if c.Volume() > prev {
			t.Fatalf("Volume() rose from %v to %v while muted", prev, c.Volume())
		}
		prev = c.Volume()
	}
	// one second at rate 5 leaves e^-5 of the start level
	want := 0.8 * math.Exp(-5)
	if math.Abs(c.Volume()-want) > 0.001 {
		t.Errorf("Volume() after 1s = %v, want about %v", c.Volume(), want)
	}

	for range 600 {
		c.smooth(time.Second/60, false, 5)
	}
	if c.Volume() != 0.8 {
		t.Errorf("Volume() after unmute = %v, want 0.8", c.Volume())
	}
}

func TestChannel_AggregateWithoutDuckers(t *testing.T) {
	t.Parallel()

	c := newChannel("music", 1)
	c.duckingLevel = 0.3
	c.aggregateDucking(time.Second)
	if c.DuckingLevel() != 1 {
		t.Errorf("DuckingLevel() = %v, want 1", c.DuckingLevel())
	}
}

func TestChannel_Reset(t *testing.T) {
	t.Parallel()

	c := newChannel("sfx", 0.6)
	c.currentVolume = 0.1
	c.duckingLevel = 0.2
	c.pushAbort(&Voice{})
	c.pushDuck(&Voice{})

	c.reset()

	if c.Volume() != 0.6 || c.DuckingLevel() != 1 || c.AbortBlocked() || len(c.duckers) != 0 {
		t.Errorf("reset() left volume=%v ducking=%v blocked=%v duckers=%d",
			c.Volume(), c.DuckingLevel(), c.AbortBlocked(), len(c.duckers))
	}
}
