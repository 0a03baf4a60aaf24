// SPDX-License-Identifier: EPL-2.0

// Package audmix wires the audio engine together: a YAML configuration,
// a clip loader over a file system and a playback device.
//
// The engine itself lives in the mixer package. It holds channels that
// duck and abort each other, a fixed pool of voices, and playlists that
// resolve to assets on every play. A host ticks it once per frame:
//
//	d, err := audmix.Open(os.DirFS("assets"), "audio.yaml", ebitenaudio.NewDevice(44100))
//	if err != nil {
//		return err
//	}
//	d.SwitchMusicKey("level1", 0)
//	d.Play("jump")
//	...
//	d.Update(time.Second / 60)
//
// # Packages
//
//   - mixer: channels, assets, playlists, voices and the Director
//   - config: configuration schema, loading and hot reload
//   - clip: clip loading and background preloading
//   - audio and formats/*: probing WAV, MP3, Ogg Vorbis and AIFF headers
//   - backend/ebitenaudio: playback through ebiten
//
// # Configuration
//
// Times are written in seconds:
//
//	engine:
//	  pool_size: 42
//	channels:
//	  - {key_name: music, volume: 0.8}
//	assets:
//	  - key_name: vo_intro
//	    file_name: vo/intro.ogg
//	    tags: [type_vo, wait_for_vo]
//	    duck_tags: [{tag: music, volume: 0.3, start_duration: 0.2, end_duration: 0.5}]
//	playlists:
//	  - {key_name: level1, shuffle: true, tracks: [level1_a, level1_b]}
package audmix
