// SPDX-License-Identifier: EPL-2.0

// Package config holds the YAML schema for channels, assets and playlists.
//
// A minimal file:
//
//	engine:
//	  pool_size: 42
//	channels:
//	  - key_name: music
//	    volume: 0.8
//	assets:
//	  - key_name: theme
//	    file_name: music/theme.ogg
//	    tags: [music]
//	playlists:
//	  - key_name: battle_music
//	    shuffle: true
//	    tracks: [battle_a, battle_b]
//
// Times are fractional seconds. Validation of keys and references is left
// to the mixer, which logs problems and keeps loading.
package config
