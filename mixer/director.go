// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audmix/config"
)

// Director is the control surface of the engine. It is not safe for
// concurrent use: every call, including Update, must come from the thread
// that ticks it.
type Director struct {
	engine config.Engine
	reg    *Registry
	pool   *pool
	sched  scheduler

	loader ClipLoader
	device Device

	now   time.Duration
	mutes mutes
	music musicState

	queue          []queuedPlay
	watched        map[Handle]struct{}
	drainScheduled bool

	history     []PlayRecord
	historySize int

	opts   options
	logger zerolog.Logger
}

type queuedPlay struct {
	key    string
	params playParams
}

// New builds a Director for cfg. Clips are resolved through loader and
// played on device.
func New(cfg *config.Config, loader ClipLoader, device Device, opts ...Option) *Director {
	o := options{
		logger:      zerolog.Nop(),
		historySize: DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	d := &Director{
		loader:      loader,
		device:      device,
		watched:     make(map[Handle]struct{}),
		historySize: o.historySize,
		opts:        o,
		logger:      o.logger,
	}
	d.load(cfg)
	return d
}

func (d *Director) load(cfg *config.Config) {
	d.engine = cfg.Engine.WithDefaults()
	size := d.engine.PoolSize
	if d.opts.poolSize > 0 {
		size = d.opts.poolSize
	}
	if d.pool == nil || d.pool.size() != size {
		d.pool = newPool(size, d.opts.prewarm, d.logger)
	}
	d.reg = NewRegistry(cfg, d.logger, d.opts.rng)
}

// Registry exposes the loaded channels, assets and playlists.
func (d *Director) Registry() *Registry { return d.reg }

// Now is the engine clock: the sum of every dt passed to Update.
func (d *Director) Now() time.Duration { return d.now }

// PoolSize is the fixed number of voices.
func (d *Director) PoolSize() int { return d.pool.size() }

// Play resolves key (following playlists), checks channel contention and
// starts a voice. The zero Handle and a non-nil error mean nothing started;
// ErrQueued means the play will happen once the contending channel frees up.
func (d *Director) Play(key string, opts ...PlayOption) (Handle, error) {
	p := playParams{volume: 1}
	for _, opt := range opts {
		opt(&p)
	}
	return d.play(key, p, true)
}

func (d *Director) play(key string, p playParams, allowQueue bool) (Handle, error) {
	log := d.logger.With().Str("key", key).Logger()

	assetKey, viaPlaylist, err := d.reg.resolve(key, false)
	if err != nil {
		log.Warn().Err(err).Msg("cannot resolve audio key")
		return Handle{}, err
	}
	asset := d.reg.assets[assetKey]

	if !viaPlaylist {
		if ch := d.contended(asset.skipIf); ch != nil {
			log.Debug().Str("channel", ch.key).Msg("skipped, channel busy")
			return Handle{}, fmt.Errorf("%w: %q on %q", ErrSkipped, key, ch.key)
		}
		if ch := d.contended(asset.waitFor); ch != nil {
			if allowQueue {
				d.enqueue(queuedPlay{key: key, params: p}, ch)
				log.Debug().Str("channel", ch.key).Int("queued", len(d.queue)).Msg("queued, channel busy")
			}
			return Handle{}, fmt.Errorf("%w: %q on %q", ErrQueued, key, ch.key)
		}
	}

	asset, err = d.prepare(asset)
	if err != nil {
		if !errors.Is(err, ErrClipPending) {
			log.Warn().Err(err).Msg("audio data unavailable")
		}
		return Handle{}, err
	}
	if !asset.canPlay(d.now, d.mutes) {
		return Handle{}, fmt.Errorf("%w: %q", ErrCannotPlay, asset.key)
	}

	v := d.pool.allocate(d.now)
	if v == nil {
		log.Warn().Int("size", d.pool.size()).Msg("voice pool exhausted")
		return Handle{}, fmt.Errorf("%w: %q", ErrPoolExhausted, key)
	}
	pb, err := d.device.Open(asset.clip)
	if err != nil {
		log.Warn().Err(err).Msg("cannot open playback")
		return Handle{}, fmt.Errorf("%w: %q: %w", ErrCannotPlay, asset.key, err)
	}

	interrupted := d.abortCascade(asset)
	v.setupPlay(asset, pb, key, p, d.now)
	asset.markPlaying(d.now)
	h := v.handle()
	if interrupted {
		d.resumeMusicAfter(h)
	}
	d.record(key, asset, v)
	log.Debug().Str("asset", asset.key).Int("voice", v.index).Msg("playing")
	return h, nil
}

// prepare loads the asset clip, walking the fallback chain when the data is
// definitively missing.
func (d *Director) prepare(asset *Asset) (*Asset, error) {
	for hops := 0; ; hops++ {
		err := asset.prepareClip(d.loader, d.logger)
		if err == nil || errors.Is(err, ErrClipPending) || asset.fallbackKey == "" {
			return asset, err
		}
		if hops >= d.reg.maxDepth {
			return nil, fmt.Errorf("%w: fallback chain of %q", ErrDepthExceeded, asset.key)
		}
		next, _, rerr := d.reg.resolve(asset.fallbackKey, false)
		if rerr != nil {
			return nil, fmt.Errorf("fallback of %q: %w", asset.key, rerr)
		}
		d.logger.Debug().Str("key", asset.key).Str("fallback", next).Msg("using fallback asset")
		asset = d.reg.assets[next]
	}
}

// abortCascade fades out every voice on the channels asset aborts. It
// reports whether the music voice was among them.
func (d *Director) abortCascade(asset *Asset) bool {
	interrupted := false
	for _, rule := range asset.aborts {
		d.pool.each(func(v *Voice) {
			if !v.owned() || !v.asset.hasChannel(rule.Target) {
				return
			}
			if v.handle() == d.music.current {
				d.interruptMusic(rule.FadeOut)
				interrupted = true
				return
			}
			v.stop(rule.FadeOut, d.now)
		})
	}
	return interrupted
}

func (d *Director) contended(channels []*Channel) *Channel {
	for _, ch := range channels {
		if d.channelActive(ch) {
			return ch
		}
	}
	return nil
}

func (d *Director) channelActive(ch *Channel) bool {
	active := false
	d.pool.each(func(v *Voice) {
		if !active && v.owned() && v.asset.hasChannel(ch) && v.active(d.now) {
			active = true
		}
	})
	return active
}

// enqueue parks a play until the voices on ch end.
func (d *Director) enqueue(q queuedPlay, ch *Channel) {
	d.queue = append(d.queue, q)
	d.watch(ch)
}

func (d *Director) watch(ch *Channel) {
	d.pool.each(func(v *Voice) {
		if !v.owned() || !v.asset.hasChannel(ch) {
			return
		}
		h := v.handle()
		if _, ok := d.watched[h]; ok {
			return
		}
		d.watched[h] = struct{}{}
		h.On(EventEnd, func(Event) {
			delete(d.watched, h)
			d.scheduleDrain()
		})
	})
}

func (d *Director) scheduleDrain() {
	if d.drainScheduled || len(d.queue) == 0 {
		return
	}
	d.drainScheduled = true
	d.sched.afterTicks(d.engine.QueueDelayTicks, laneGlobal, d.drainQueue)
}

// drainQueue plays queued keys in order until one is contended again.
func (d *Director) drainQueue() {
	d.drainScheduled = false
	for len(d.queue) > 0 {
		q := d.queue[0]
		if asset, ok := d.reg.assets[q.key]; ok {
			if ch := d.contended(asset.waitFor); ch != nil {
				d.watch(ch)
				return
			}
		}
		d.queue = d.queue[1:]
		if _, err := d.play(q.key, q.params, false); err != nil {
			d.logger.Debug().Err(err).Str("key", q.key).Msg("queued play dropped")
		}
	}
}

// Queued lists the keys waiting on a contended channel.
func (d *Director) Queued() []string {
	out := make([]string, len(d.queue))
	for i, q := range d.queue {
		out[i] = q.key
	}
	return out
}

// Update advances the engine clock by dt and runs one tick: deferred tasks,
// then every channel, then every voice.
func (d *Director) Update(dt time.Duration) {
	dt = max(dt, 0)
	d.now += dt
	d.sched.run(d.now)

	for _, ch := range d.reg.channelOrder {
		muted := (ch.key == ChannelMusic && d.mutes.music) || (ch.key == ChannelSound && d.mutes.sound)
		ch.smooth(dt, muted, d.engine.ChannelFadeRate)
	}
	for _, ch := range d.reg.channelOrder {
		ch.aggregateDucking(d.now)
	}
	d.pool.each(func(v *Voice) { v.update(d.now) })
}

// Stop fades out the voice behind h, or cuts it when fade is zero. Stopping
// a stale handle is a no-op that reports ErrVoiceIdle.
func (d *Director) Stop(h Handle, fade time.Duration) error {
	v, ok := h.voice()
	if !ok {
		d.logger.Warn().Int("voice", h.Index()).Msg("stop on idle voice ignored")
		return ErrVoiceIdle
	}
	if h == d.music.current {
		d.interruptMusic(fade)
		return nil
	}
	v.stop(fade, d.now)
	return nil
}

// StopAll fades out every voice, or cuts them when fade is zero, and drops
// queued and deferred work. Locks are released. The default music key is
// kept.
func (d *Director) StopAll(fade time.Duration) {
	d.interruptMusic(fade)
	d.pool.stopAll(fade, d.now)
	d.sched.clear()
	d.queue = nil
	d.drainScheduled = false
	clear(d.watched)
}

// IsPlaying reports whether key, as an asset or as the requested playlist,
// has a voice.
func (d *Director) IsPlaying(key string) bool {
	return d.FindPlayingVoice(key).Valid()
}

// FindPlayingVoice returns the first voice playing key, or the zero Handle.
func (d *Director) FindPlayingVoice(key string) Handle {
	var found Handle
	d.pool.each(func(v *Voice) {
		if found.v == nil && v.owned() && (v.asset.key == key || v.requestKey == key) {
			found = v.handle()
		}
	})
	return found
}

// IsChannelActive reports whether any voice tagged with the channel is audible
// or still holding its slot.
func (d *Director) IsChannelActive(key string) bool {
	ch, ok := d.reg.channels[key]
	if !ok {
		return false
	}
	return d.channelActive(ch)
}

func (d *Director) MuteMusic() bool { return d.mutes.music }
func (d *Director) MuteSound() bool { return d.mutes.sound }

// SetMuteMusic fades the music channel out or back in. Unmuting restarts
// the default music when nothing is playing.
func (d *Director) SetMuteMusic(muted bool) {
	d.mutes.music = muted
	if muted || d.music.current.Valid() || d.music.defaultKey == "" {
		return
	}
	if _, err := d.startMusic(d.music.defaultKey, 0); err != nil {
		d.logger.Warn().Err(err).Str("key", d.music.defaultKey).Msg("cannot resume music")
	}
}

func (d *Director) SetMuteSound(muted bool) {
	d.mutes.sound = muted
}

// peek resolves key without advancing any playlist.
func (d *Director) peek(key string) (*Asset, error) {
	assetKey, _, err := d.reg.resolve(key, true)
	if err != nil {
		return nil, err
	}
	return d.reg.assets[assetKey], nil
}

// ClipLength is the length of one pass through the clip key resolves to
// next. Unresolvable keys report 0.
func (d *Director) ClipLength(key string) time.Duration {
	asset, err := d.peek(key)
	if err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("clip length unavailable")
		return 0
	}
	return asset.clipLength(d.loader, d.logger)
}

func (d *Director) HasChannelTag(key, tag string) bool {
	asset, err := d.peek(key)
	if err != nil {
		return false
	}
	return asset.HasChannelTag(tag)
}

// CanPlay reports whether Play(key) would currently start a voice, ignoring
// contention and pool capacity.
func (d *Director) CanPlay(key string) bool {
	asset, err := d.peek(key)
	if err != nil {
		return false
	}
	asset, err = d.prepare(asset)
	if err != nil {
		return false
	}
	return asset.canPlay(d.now, d.mutes)
}

// ResetPlaylist rewinds the playlist named key.
func (d *Director) ResetPlaylist(key string) bool {
	p, ok := d.reg.playlists[key]
	if !ok {
		return false
	}
	p.Reset()
	return true
}

// Reset stops everything and returns channels, assets and playlists to
// their loaded state. Mute flags survive.
func (d *Director) Reset() {
	d.StopAll(0)
	d.music = musicState{}
	d.reg.reset()
	d.history = nil
}

// Reload swaps in a new configuration. Every voice is stopped; the default
// music key carries over and restarts if the new configuration knows it.
func (d *Director) Reload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	defaultKey := d.music.defaultKey
	d.StopAll(0)
	d.music = musicState{}
	d.load(cfg)
	d.logger.Info().Int("assets", len(d.reg.assets)).Int("playlists", len(d.reg.playlists)).Msg("audio configuration reloaded")

	if defaultKey == "" {
		return
	}
	if !d.reg.known(defaultKey) {
		d.logger.Warn().Str("key", defaultKey).Msg("music key dropped by reload")
		return
	}
	d.music.defaultKey = defaultKey
	if !d.mutes.music {
		if _, err := d.startMusic(defaultKey, 0); err != nil {
			d.logger.Warn().Err(err).Str("key", defaultKey).Msg("cannot restart music")
		}
	}
}
