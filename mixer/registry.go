// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audmix/config"
)

// Contention tag prefixes. An asset tagged wait_for_vo waits while channel
// type_vo has an active voice; skip_if_vo is dropped instead.
const (
	TagWaitFor  = "wait_for_"
	TagSkipIf   = "skip_if_"
	TagTypeName = "type_"
)

// Registry owns every channel, asset and playlist built from one Config.
type Registry struct {
	channels      map[string]*Channel
	channelOrder  []*Channel
	assets        map[string]*Asset
	assetOrder    []*Asset
	playlists     map[string]*Playlist
	playlistOrder []*Playlist

	maxDepth int
	logger   zerolog.Logger
}

// NewRegistry builds a registry from cfg. Configuration mistakes such as
// duplicate keys are logged and skipped; the first registration wins.
func NewRegistry(cfg *config.Config, logger zerolog.Logger, rng *rand.Rand) *Registry {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	engine := cfg.Engine.WithDefaults()

	r := &Registry{
		channels:  make(map[string]*Channel),
		assets:    make(map[string]*Asset),
		playlists: make(map[string]*Playlist),
		maxDepth:  engine.MaxPlaylistDepth,
		logger:    logger,
	}

	for _, cc := range cfg.Channels {
		if cc.Key == "" {
			logger.Warn().Msg("channel without key_name ignored")
			continue
		}
		if _, ok := r.channels[cc.Key]; ok {
			logger.Warn().Str("channel", cc.Key).Msg("duplicate channel ignored")
			continue
		}
		r.addChannel(newChannel(cc.Key, config.FloatOr(cc.Volume, 1)))
	}
	r.Channel(ChannelMusic)
	r.Channel(ChannelSound)

	for _, ac := range cfg.Assets {
		r.addAsset(ac)
	}
	for _, pc := range cfg.Playlists {
		r.addPlaylist(pc, rng)
	}
	for _, p := range r.playlists {
		for _, track := range p.tracks {
			if !r.known(track) {
				logger.Warn().Str("playlist", p.key).Str("track", track).Msg("playlist references unknown key")
			}
		}
	}
	return r
}

func (r *Registry) addChannel(c *Channel) {
	r.channels[c.key] = c
	r.channelOrder = append(r.channelOrder, c)
}

// Channel finds the channel with key, creating it at full volume if needed.
func (r *Registry) Channel(key string) *Channel {
	if c, ok := r.channels[key]; ok {
		return c
	}
	c := newChannel(key, 1)
	r.addChannel(c)
	return c
}

// LookupChannel returns the channel with key without creating it.
func (r *Registry) LookupChannel(key string) (*Channel, bool) {
	c, ok := r.channels[key]
	return c, ok
}

// Channels returns every channel in registration order.
func (r *Registry) Channels() []*Channel {
	return append([]*Channel(nil), r.channelOrder...)
}

func (r *Registry) tagChannel(asset, tag string) *Channel {
	if _, ok := r.channels[tag]; !ok {
		r.logger.Debug().Str("key", asset).Str("channel", tag).Msg("creating channel for tag")
	}
	return r.Channel(tag)
}

func (r *Registry) addAsset(ac config.AssetConfig) {
	log := r.logger.With().Str("key", ac.Key).Logger()
	if ac.Key == "" {
		log.Warn().Msg("asset without key_name ignored")
		return
	}
	if _, ok := r.assets[ac.Key]; ok {
		log.Warn().Msg("duplicate asset ignored")
		return
	}

	a := &Asset{
		key:         ac.Key,
		fallbackKey: ac.FallbackKey,
		ref: ClipRef{
			Key:      ac.Key,
			FileName: ac.FileName,
			Bundle:   ac.AssetIndexKey,
		},
		volume:         clamp01(config.FloatOr(ac.Volume, 1)),
		pitch:          config.FloatOr(ac.Pitch, 1),
		delay:          max(ac.Delay.Duration(), 0),
		noReplayWindow: max(ac.NoReplayWindow.Duration(), 0),
		range3D:        ac.RangeIn3D,
		pan:            clamp(ac.Pan, -1, 1),
		loops:          ac.Loops,
		beat:           ac.Beat.Duration(),
		pickup:         ac.Pickup.Duration(),
	}

	seen := make(map[string]bool)
	for _, tag := range ac.Tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		a.channels = append(a.channels, r.tagChannel(ac.Key, tag))

		switch {
		case strings.HasPrefix(tag, TagWaitFor):
			a.waitFor = append(a.waitFor, r.Channel(TagTypeName+strings.TrimPrefix(tag, TagWaitFor)))
		case strings.HasPrefix(tag, TagSkipIf):
			a.skipIf = append(a.skipIf, r.Channel(TagTypeName+strings.TrimPrefix(tag, TagSkipIf)))
		}
	}
	if !seen[ChannelMusic] && !seen[ChannelSound] {
		a.channels = append(a.channels, r.Channel(ChannelSound))
	}

	for _, dc := range ac.DuckTags {
		if dc.Tag == "" {
			log.Warn().Msg("duck rule without tag ignored")
			continue
		}
		rule := DuckRule{
			Target:    r.tagChannel(ac.Key, dc.Tag),
			Volume:    clamp01(dc.Volume),
			Start:     max(dc.StartDuration.Duration(), 0),
			End:       max(dc.EndDuration.Duration(), 0),
			EndOffset: dc.EndOffset.Duration(),
		}
		a.ducks = append(a.ducks, rule)
		a.maxUnduck = max(a.maxUnduck, rule.EndOffset+rule.End)
	}

	for _, abc := range ac.AbortTags {
		if abc.Tag == "" {
			log.Warn().Msg("abort rule without tag ignored")
			continue
		}
		a.aborts = append(a.aborts, AbortRule{
			Target:  r.tagChannel(ac.Key, abc.Tag),
			FadeOut: max(abc.FadeOutDuration.Duration(), 0),
		})
	}

	// an asset never blocks itself through a channel it aborts
	for _, ch := range a.channels {
		blocked := true
		for _, rule := range a.aborts {
			if rule.Target == ch {
				blocked = false
				break
			}
		}
		if blocked {
			a.blocking = append(a.blocking, ch)
		}
	}

	for _, ec := range ac.Events {
		if ec.Key == "" {
			log.Warn().Msg("event without key_name ignored")
			continue
		}
		a.events = append(a.events, TimedEvent{Name: ec.Key, At: max(ec.TriggerTime.Duration(), time.Duration(0))})
	}

	r.assets[a.key] = a
	r.assetOrder = append(r.assetOrder, a)
}

func (r *Registry) addPlaylist(pc config.PlaylistConfig, rng *rand.Rand) {
	log := r.logger.With().Str("playlist", pc.Key).Logger()
	if pc.Key == "" {
		log.Warn().Msg("playlist without key_name ignored")
		return
	}
	if _, ok := r.playlists[pc.Key]; ok {
		log.Warn().Msg("duplicate playlist ignored")
		return
	}
	if _, ok := r.assets[pc.Key]; ok {
		log.Warn().Msg("playlist key shadows an asset; the playlist wins")
	}
	if len(pc.Tracks) == 0 {
		log.Warn().Msg("playlist has no tracks")
	}
	p := newPlaylist(pc.Key, pc.Tracks, pc.Shuffle, pc.Cycles(), pc.RandomStartTrack, rng)
	r.playlists[pc.Key] = p
	r.playlistOrder = append(r.playlistOrder, p)
}

func (r *Registry) known(key string) bool {
	if _, ok := r.playlists[key]; ok {
		return true
	}
	_, ok := r.assets[key]
	return ok
}

func (r *Registry) Asset(key string) (*Asset, bool) {
	a, ok := r.assets[key]
	return a, ok
}

func (r *Registry) Playlist(key string) (*Playlist, bool) {
	p, ok := r.playlists[key]
	return p, ok
}

// Assets returns every asset in configuration order.
func (r *Registry) Assets() []*Asset {
	return append([]*Asset(nil), r.assetOrder...)
}

// ClipRefs lists the clip of every asset, for preloading.
func (r *Registry) ClipRefs() []ClipRef {
	refs := make([]ClipRef, 0, len(r.assetOrder))
	for _, a := range r.assetOrder {
		refs = append(refs, a.ref)
	}
	return refs
}

// MaxDepth is the number of playlist hops resolve follows.
func (r *Registry) MaxDepth() int { return r.maxDepth }

// resolve follows playlist indirection until it reaches a non-playlist key.
// With peek set, cursors are left untouched. The bool result reports
// whether key named a playlist.
func (r *Registry) resolve(key string, peek bool) (string, bool, error) {
	current := key
	viaPlaylist := false
	for hops := 0; ; hops++ {
		p, ok := r.playlists[current]
		if !ok {
			if _, ok := r.assets[current]; !ok {
				return "", viaPlaylist, fmt.Errorf("%w: %q", ErrUnknownKey, current)
			}
			return current, viaPlaylist, nil
		}
		if hops >= r.maxDepth {
			r.logger.Warn().Str("key", key).Int("depth", r.maxDepth).Msg("playlist resolution too deep")
			return "", true, fmt.Errorf("%w: %q after %d hops", ErrDepthExceeded, key, hops)
		}
		viaPlaylist = true

		var track string
		if peek {
			track, ok = p.PeekNextTrack()
		} else {
			track, ok = p.NextTrack()
		}
		if !ok {
			return "", true, fmt.Errorf("%w: %q", ErrPlaylistExhausted, p.key)
		}
		current = track
	}
}

func (r *Registry) reset() {
	for _, c := range r.channelOrder {
		c.reset()
	}
	for _, a := range r.assetOrder {
		a.reset()
	}
	// config order keeps shuffles reproducible under a seeded rng
	for _, p := range r.playlistOrder {
		p.Reset()
	}
}
