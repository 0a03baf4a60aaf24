// SPDX-License-Identifier: EPL-2.0

package config

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine defaults, used when a field is zero.
const (
	DefaultPoolSize         = 42
	DefaultMaxPlaylistDepth = 3
	DefaultQueueDelayTicks  = 2
	DefaultChannelFadeRate  = 5.0
)

// Config is the declarative audio configuration consumed at load time.
type Config struct {
	Engine    Engine           `yaml:"engine"`
	Channels  []ChannelConfig  `yaml:"channels"`
	Assets    []AssetConfig    `yaml:"assets"`
	Playlists []PlaylistConfig `yaml:"playlists"`
}

type Engine struct {
	PoolSize         int     `yaml:"pool_size"`
	MaxPlaylistDepth int     `yaml:"max_playlist_depth"`
	QueueDelayTicks  int     `yaml:"queue_delay_ticks"`
	ChannelFadeRate  float64 `yaml:"channel_fade_rate"`
}

type ChannelConfig struct {
	Key    string   `yaml:"key_name"`
	Volume *float64 `yaml:"volume"`
}

type AssetConfig struct {
	Key            string        `yaml:"key_name"`
	FallbackKey    string        `yaml:"fallback_key_name"`
	FileName       string        `yaml:"file_name"`
	AssetIndexKey  string        `yaml:"asset_index_key"`
	Volume         *float64      `yaml:"volume"`
	Pitch          *float64      `yaml:"pitch"`
	Delay          Seconds       `yaml:"delay"`
	NoReplayWindow Seconds       `yaml:"no_replay_window"`
	RangeIn3D      float64       `yaml:"range_in_3d"`
	Pan            float64       `yaml:"pan"`
	Loops          int           `yaml:"loops"`
	Beat           Seconds       `yaml:"beat"`
	Pickup         Seconds       `yaml:"pickup"`
	Tags           []string      `yaml:"tags"`
	DuckTags       []DuckConfig  `yaml:"duck_tags"`
	AbortTags      []AbortConfig `yaml:"abort_tags"`
	Events         []EventConfig `yaml:"events"`
}

type DuckConfig struct {
	Tag           string  `yaml:"tag"`
	Volume        float64 `yaml:"volume"`
	StartDuration Seconds `yaml:"start_duration"`
	EndDuration   Seconds `yaml:"end_duration"`
	EndOffset     Seconds `yaml:"end_offset"`
}

type AbortConfig struct {
	Tag             string  `yaml:"tag"`
	FadeOutDuration Seconds `yaml:"fade_out_duration"`
}

type EventConfig struct {
	Key         string  `yaml:"key_name"`
	TriggerTime Seconds `yaml:"trigger_time"`
}

type PlaylistConfig struct {
	Key              string   `yaml:"key_name"`
	RandomStartTrack bool     `yaml:"random_start_track"`
	Shuffle          bool     `yaml:"shuffle"`
	Cycle            *bool    `yaml:"cycle"`
	Tracks           []string `yaml:"tracks"`
}

// Seconds is a duration written as fractional seconds in YAML.
type Seconds float64

func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// FloatOr returns the configured value, or def when the field was omitted.
func FloatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Cycles reports whether the playlist wraps around; playlists cycle unless told otherwise.
func (p PlaylistConfig) Cycles() bool {
	return p.Cycle == nil || *p.Cycle
}

// WithDefaults fills zero engine fields.
func (e Engine) WithDefaults() Engine {
	if e.PoolSize <= 0 {
		e.PoolSize = DefaultPoolSize
	}
	if e.MaxPlaylistDepth <= 0 {
		e.MaxPlaylistDepth = DefaultMaxPlaylistDepth
	}
	if e.QueueDelayTicks <= 0 {
		e.QueueDelayTicks = DefaultQueueDelayTicks
	}
	if e.ChannelFadeRate <= 0 {
		e.ChannelFadeRate = DefaultChannelFadeRate
	}
	return e
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Engine = cfg.Engine.WithDefaults()
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func LoadFS(fsys fs.FS, name string) (*Config, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", name, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", name, err)
	}
	return cfg, nil
}
