// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// DefaultHistorySize is how many plays History keeps.
const DefaultHistorySize = 64

type options struct {
	logger      zerolog.Logger
	rng         *rand.Rand
	poolSize    int
	prewarm     bool
	historySize int
}

// Option configures a Director.
type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRand sets the source used for shuffles and random start tracks.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithPoolSize overrides engine.pool_size.
func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithPrewarm materializes every voice slot up front instead of on demand.
func WithPrewarm() Option {
	return func(o *options) { o.prewarm = true }
}

func WithHistorySize(n int) Option {
	return func(o *options) { o.historySize = n }
}

// PlayOption adjusts a single play request.
type PlayOption func(*playParams)

// WithVolume scales the asset volume; the product is clamped to [0,1].
func WithVolume(v float64) PlayOption {
	return func(p *playParams) { p.volume = v }
}

// WithPitch is added to the asset pitch.
func WithPitch(v float64) PlayOption {
	return func(p *playParams) { p.pitch = v }
}

// WithDelay is added to the asset delay.
func WithDelay(d time.Duration) PlayOption {
	return func(p *playParams) { p.delay = d }
}

// WithLoops overrides the asset loop count; zero keeps it. LoopForever
// loops until stopped.
func WithLoops(n int) PlayOption {
	return func(p *playParams) { p.loops = n }
}
