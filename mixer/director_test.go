// SPDX-License-Identifier: EPL-2.0

package mixer_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/ik5/audmix/config"
	"github.com/ik5/audmix/internal/audiotest"
	"github.com/ik5/audmix/mixer"
)

const tick = 100 * time.Millisecond

func newDirector(t *testing.T, yml string, loader *audiotest.Loader, opts ...mixer.Option) (*mixer.Director, *audiotest.Device) {
	t.Helper()

	cfg, err := config.Parse([]byte(yml))
	if err != nil {
		t.Fatalf("config.Parse() error = %v", err)
	}
	dev := audiotest.NewDevice()
	opts = append([]mixer.Option{mixer.WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return mixer.New(cfg, loader, dev, opts...), dev
}

func mustPlay(t *testing.T, d *mixer.Director, key string, opts ...mixer.PlayOption) mixer.Handle {
	t.Helper()

	h, err := d.Play(key, opts...)
	if err != nil {
		t.Fatalf("Play(%q) error = %v", key, err)
	}
	if !h.Valid() {
		t.Fatalf("Play(%q) returned an invalid handle", key)
	}
	return h
}

func channel(t *testing.T, d *mixer.Director, key string) *mixer.Channel {
	t.Helper()

	ch, ok := d.Registry().LookupChannel(key)
	if !ok {
		t.Fatalf("LookupChannel(%q) not found", key)
	}
	return ch
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

const duckingConfig = `
channels:
  - key_name: music
    volume: 1
assets:
  - key_name: bgm
    file_name: bgm.wav
    tags: [music]
  - key_name: vo_soft
    file_name: vo_soft.wav
    tags: [vo]
    duck_tags: [{tag: music, volume: 0.5}]
  - key_name: vo_hard
    file_name: vo_hard.wav
    tags: [vo]
    duck_tags: [{tag: music, volume: 0.2}]
`

func TestDirector_DuckingTakesMinimum(t *testing.T) {
	t.Parallel()

	loader := audiotest.NewLoader().
		Add("bgm.wav", time.Minute).
		Add("vo_soft.wav", 5*time.Second).
		Add("vo_hard.wav", 2*time.Second)
	d, dev := newDirector(t, duckingConfig, loader)

	mustPlay(t, d, "bgm")
	mustPlay(t, d, "vo_soft")
	mustPlay(t, d, "vo_hard")
	audiotest.Run(d, dev, tick, 1)

	music := channel(t, d, "music")
	if got := music.DuckingLevel(); !near(got, 0.2) {
		t.Errorf("DuckingLevel() with both ducks = %v, want 0.2", got)
	}
	if got := dev.Playbacks[0].Volume; !near(got, 0.2) {
		t.Errorf("bgm volume = %v, want 0.2", got)
	}

	// vo_hard ends at 2s
	audiotest.Run(d, dev, tick, 20)
	if d.IsPlaying("vo_hard") {
		t.Fatal("vo_hard still playing after its clip ended")
	}
	if got := music.DuckingLevel(); !near(got, 0.5) {
		t.Errorf("DuckingLevel() after vo_hard = %v, want 0.5", got)
	}

	audiotest.Run(d, dev, tick, 30)
	if got := music.DuckingLevel(); got != 1 {
		t.Errorf("DuckingLevel() after every duck ended = %v, want 1", got)
	}
}

func TestDirector_DuckTailKeepsVoice(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - key_name: bgm
    file_name: bgm.wav
    tags: [music]
  - key_name: vo
    file_name: vo.wav
    duck_tags: [{tag: music, volume: 0, end_duration: 1}]
`
	loader := audiotest.NewLoader().Add("bgm.wav", time.Minute).Add("vo.wav", time.Second)
	d, dev := newDirector(t, yml, loader)

	mustPlay(t, d, "bgm")
	h := mustPlay(t, d, "vo")
	if got, want := h.EndAfter(), 2*time.Second; got != want {
		t.Errorf("EndAfter() = %v, want %v", got, want)
	}

	audiotest.Run(d, dev, tick, 15)
	if !h.Valid() {
		t.Fatal("voice recycled during its un-duck tail")
	}
	if got := channel(t, d, "music").DuckingLevel(); !near(got, 0.5) {
		t.Errorf("DuckingLevel() halfway through un-duck = %v, want 0.5", got)
	}

	audiotest.Run(d, dev, tick, 6)
	if h.Valid() {
		t.Error("voice still valid after its un-duck tail")
	}
}

const abortConfig = `
assets:
  - key_name: loop_sfx
    file_name: loop.wav
    tags: [sfx]
  - key_name: jingle
    file_name: jingle.wav
    tags: [sound]
    abort_tags: [{tag: sfx, fade_out_duration: 0.5}]
`

func TestDirector_AbortFadesAndBlocks(t *testing.T) {
	t.Parallel()

	loader := audiotest.NewLoader().Add("loop.wav", 10*time.Second).Add("jingle.wav", 3*time.Second)
	d, dev := newDirector(t, abortConfig, loader)

	loop := mustPlay(t, d, "loop_sfx")
	mustPlay(t, d, "jingle")

	if got := loop.State(); got != mixer.VoiceFading {
		t.Errorf("aborted voice State() = %v, want %v", got, mixer.VoiceFading)
	}
	if !channel(t, d, "sfx").AbortBlocked() {
		t.Error("sfx AbortBlocked() = false while jingle plays")
	}
	if d.CanPlay("loop_sfx") {
		t.Error("CanPlay(loop_sfx) = true while sfx is abort-blocked")
	}
	if _, err := d.Play("loop_sfx"); !errors.Is(err, mixer.ErrCannotPlay) {
		t.Errorf("Play(loop_sfx) error = %v, want %v", err, mixer.ErrCannotPlay)
	}

	audiotest.Run(d, dev, tick, 5)
	if loop.Valid() {
		t.Error("aborted voice still valid after its fade-out")
	}

	// jingle ends at 3s and releases the block
	audiotest.Run(d, dev, tick, 26)
	if channel(t, d, "sfx").AbortBlocked() {
		t.Error("sfx still abort-blocked after jingle ended")
	}
	mustPlay(t, d, "loop_sfx")
}

func TestDirector_PoolBound(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - key_name: click
    file_name: click.wav
`
	loader := audiotest.NewLoader().Add("click.wav", time.Second)
	d, dev := newDirector(t, yml, loader, mixer.WithPoolSize(3), mixer.WithPrewarm())

	for range 3 {
		mustPlay(t, d, "click")
	}
	if _, err := d.Play("click"); !errors.Is(err, mixer.ErrPoolExhausted) {
		t.Fatalf("fourth Play() error = %v, want %v", err, mixer.ErrPoolExhausted)
	}
	if got := d.ActiveVoices(); got != 3 {
		t.Errorf("ActiveVoices() = %d, want 3", got)
	}

	audiotest.Run(d, dev, tick, 10)
	if got := d.ActiveVoices(); got != 0 {
		t.Errorf("ActiveVoices() after clips ended = %d, want 0", got)
	}
	mustPlay(t, d, "click")
}

func TestDirector_StaleHandle(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - key_name: click
    file_name: click.wav
`
	loader := audiotest.NewLoader().Add("click.wav", time.Second)
	d, dev := newDirector(t, yml, loader, mixer.WithPoolSize(1))

	first := mustPlay(t, d, "click")
	audiotest.Run(d, dev, tick, 11)

	second := mustPlay(t, d, "click")
	if first.Index() != -1 || second.Index() != 0 {
		t.Fatalf("Index() = %d, %d; want -1, 0", first.Index(), second.Index())
	}
	if err := d.Stop(first, 0); !errors.Is(err, mixer.ErrVoiceIdle) {
		t.Errorf("Stop(stale) error = %v, want %v", err, mixer.ErrVoiceIdle)
	}
	if !second.Valid() {
		t.Error("Stop(stale) stopped the voice's new play")
	}
}

func TestDirector_PlaylistCycles(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: a, file_name: a.wav}
  - {key_name: b, file_name: b.wav}
  - {key_name: c, file_name: c.wav}
playlists:
  - key_name: bank
    tracks: [a, b, c]
`
	loader := audiotest.NewLoader().Add("a.wav", time.Second).Add("b.wav", time.Second).Add("c.wav", time.Second)
	d, _ := newDirector(t, yml, loader)

	var got []string
	for range 4 {
		h := mustPlay(t, d, "bank")
		got = append(got, h.Key())
		if h.RequestKey() != "bank" {
			t.Errorf("RequestKey() = %q, want %q", h.RequestKey(), "bank")
		}
	}
	if want := []string{"a", "b", "c", "a"}; !slices.Equal(got, want) {
		t.Errorf("played %v, want %v", got, want)
	}

	d.ResetPlaylist("bank")
	if h := mustPlay(t, d, "bank"); h.Key() != "a" {
		t.Errorf("after ResetPlaylist played %q, want %q", h.Key(), "a")
	}

	history := d.History()
	if len(history) != 5 || history[4].Asset != "a" || history[4].Key != "bank" {
		t.Errorf("History() = %+v", history)
	}
}

func TestDirector_RecursionGuard(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: leaf, file_name: leaf.wav}
playlists:
  - {key_name: self, tracks: [self]}
  - {key_name: p1, tracks: [p2]}
  - {key_name: p2, tracks: [p3]}
  - {key_name: p3, tracks: [p4]}
  - {key_name: p4, tracks: [leaf]}
  - {key_name: q1, tracks: [q2]}
  - {key_name: q2, tracks: [q3]}
  - {key_name: q3, tracks: [leaf]}
`
	loader := audiotest.NewLoader().Add("leaf.wav", time.Second)
	d, _ := newDirector(t, yml, loader)

	for _, key := range []string{"self", "p1"} {
		h, err := d.Play(key)
		if !errors.Is(err, mixer.ErrDepthExceeded) {
			t.Errorf("Play(%q) error = %v, want %v", key, err, mixer.ErrDepthExceeded)
		}
		if h.Valid() {
			t.Errorf("Play(%q) returned a valid handle", key)
		}
	}
	if h := mustPlay(t, d, "q1"); h.Key() != "leaf" {
		t.Errorf("Play(q1) played %q, want leaf", h.Key())
	}
}

func TestDirector_UnknownKey(t *testing.T) {
	t.Parallel()

	d, _ := newDirector(t, "{}", audiotest.NewLoader())
	if _, err := d.Play("nope"); !errors.Is(err, mixer.ErrUnknownKey) {
		t.Errorf("Play(nope) error = %v, want %v", err, mixer.ErrUnknownKey)
	}
	if got := d.ClipLength("nope"); got != 0 {
		t.Errorf("ClipLength(nope) = %v, want 0", got)
	}
}

func TestDirector_FadeToStop(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: amb, file_name: amb.wav}
`
	loader := audiotest.NewLoader().Add("amb.wav", 10*time.Second)
	d, dev := newDirector(t, yml, loader)

	h := mustPlay(t, d, "amb")
	audiotest.Run(d, dev, tick, 1)
	if err := d.Stop(h, time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	pb := dev.Last()

	prev := pb.Volume
	for i := range 11 {
		audiotest.Run(d, dev, tick, 1)
		if pb.Volume > prev {
			t.Fatalf("tick %d: volume rose from %v to %v", i, prev, pb.Volume)
		}
		prev = pb.Volume
	}
	if h.Valid() {
		t.Error("voice still valid after its fade-out")
	}
	if pb.IsPlaying() || !pb.Closed {
		t.Errorf("playback playing=%v closed=%v, want stopped and closed", pb.IsPlaying(), pb.Closed)
	}
}

func TestDirector_Delay(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: late, file_name: late.wav, delay: 0.5}
`
	loader := audiotest.NewLoader().Add("late.wav", time.Second)
	d, dev := newDirector(t, yml, loader)

	h := mustPlay(t, d, "late", mixer.WithDelay(200*time.Millisecond))
	pb := dev.Last()
	if h.State() != mixer.VoiceDelayed || pb.Plays != 0 {
		t.Fatalf("State() = %v, plays = %d; want delayed and not started", h.State(), pb.Plays)
	}

	audiotest.Run(d, dev, tick, 7)
	if h.State() != mixer.VoicePlaying || pb.Plays != 1 {
		t.Errorf("State() = %v, plays = %d after the delay; want playing once", h.State(), pb.Plays)
	}
}

func TestDirector_Events(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - key_name: swing
    file_name: swing.wav
    events: [{key_name: hit, trigger_time: 0.5}]
`
	loader := audiotest.NewLoader().Add("swing.wav", time.Second)
	d, dev := newDirector(t, yml, loader)

	h := mustPlay(t, d, "swing")
	var got []string
	for _, name := range []string{mixer.EventEnd, "hit", mixer.EventStart} {
		h.On(name, func(ev mixer.Event) { got = append(got, ev.Name) })
	}

	audiotest.Run(d, dev, tick, 11)
	if want := []string{mixer.EventStart, "hit", mixer.EventEnd}; !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestDirector_StopFlushesEnd(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: amb, file_name: amb.wav}
`
	loader := audiotest.NewLoader().Add("amb.wav", 10*time.Second)
	d, _ := newDirector(t, yml, loader)

	h := mustPlay(t, d, "amb")
	var flushed bool
	h.On(mixer.EventEnd, func(ev mixer.Event) { flushed = ev.Flushed })

	if err := d.Stop(h, 0); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !flushed {
		t.Error("end listener did not run on an immediate stop")
	}
}

func TestDirector_Loops(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: drum, file_name: drum.wav, loops: 2}
`
	loader := audiotest.NewLoader().Add("drum.wav", time.Second)
	d, dev := newDirector(t, yml, loader)

	h := mustPlay(t, d, "drum")
	if !dev.Last().Loop {
		t.Fatal("playback not set to loop")
	}
	if got, want := h.EndAfter(), 3*time.Second; got != want {
		t.Errorf("EndAfter() = %v, want %v", got, want)
	}

	audiotest.Run(d, dev, tick, 25)
	if got := h.LoopCount(); got != 2 {
		t.Errorf("LoopCount() = %d, want 2", got)
	}

	audiotest.Run(d, dev, tick, 6)
	if h.Valid() {
		t.Error("looping voice still valid after its last pass")
	}
}

func TestDirector_ReplayWindow(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: coin, file_name: coin.wav, no_replay_window: 0.5}
`
	loader := audiotest.NewLoader().Add("coin.wav", 2*time.Second)
	d, dev := newDirector(t, yml, loader)

	mustPlay(t, d, "coin")
	if _, err := d.Play("coin"); !errors.Is(err, mixer.ErrCannotPlay) {
		t.Errorf("Play() inside window error = %v, want %v", err, mixer.ErrCannotPlay)
	}

	audiotest.Run(d, dev, tick, 5)
	mustPlay(t, d, "coin")
}

func TestDirector_MissingDataAndFallback(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: beep, file_name: beep.wav}
  - {key_name: broken, file_name: broken.wav, fallback_key_name: beep}
  - {key_name: gone, file_name: gone.wav}
  - {key_name: slow, file_name: slow.wav}
`
	loader := audiotest.NewLoader().
		Add("beep.wav", time.Second).
		Add("slow.wav", time.Second).
		Fail("broken.wav", errors.New("corrupt header")).
		Pending("slow.wav", 1)
	d, _ := newDirector(t, yml, loader)

	if h := mustPlay(t, d, "broken"); h.Key() != "beep" {
		t.Errorf("Play(broken) played %q, want fallback beep", h.Key())
	}

	if _, err := d.Play("gone"); !errors.Is(err, mixer.ErrMissingData) {
		t.Errorf("Play(gone) error = %v, want %v", err, mixer.ErrMissingData)
	}
	gone, _ := d.Registry().Asset("gone")
	if !gone.MissingData() {
		t.Error("gone.MissingData() = false after a definitive failure")
	}

	if _, err := d.Play("slow"); !errors.Is(err, mixer.ErrClipPending) {
		t.Errorf("Play(slow) error = %v, want %v", err, mixer.ErrClipPending)
	}
	slow, _ := d.Registry().Asset("slow")
	if slow.MissingData() {
		t.Error("slow.MissingData() = true while still loading")
	}
	mustPlay(t, d, "slow")
}

func TestDirector_Mute(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: rain, file_name: rain.wav}
`
	loader := audiotest.NewLoader().Add("rain.wav", time.Minute)
	d, dev := newDirector(t, yml, loader)

	mustPlay(t, d, "rain")
	d.SetMuteSound(true)
	if !d.MuteSound() {
		t.Fatal("MuteSound() = false after SetMuteSound(true)")
	}
	if _, err := d.Play("rain"); !errors.Is(err, mixer.ErrCannotPlay) {
		t.Errorf("Play() while muted error = %v, want %v", err, mixer.ErrCannotPlay)
	}

	audiotest.Run(d, dev, tick, 10)
	if got := dev.Playbacks[0].Volume; got > 0.05 {
		t.Errorf("volume after 1s muted = %v, want near 0", got)
	}
}

func TestDirector_ChannelTags(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: theme, file_name: theme.wav, tags: [music]}
  - {key_name: step, file_name: step.wav, tags: [foley]}
`
	loader := audiotest.NewLoader().Add("theme.wav", time.Second).Add("step.wav", time.Second)
	d, _ := newDirector(t, yml, loader)

	tests := []struct {
		key, tag string
		want     bool
	}{
		{"theme", mixer.ChannelMusic, true},
		{"theme", mixer.ChannelSound, false},
		{"step", "foley", true},
		{"step", mixer.ChannelSound, true},
	}
	for _, tt := range tests {
		if got := d.HasChannelTag(tt.key, tt.tag); got != tt.want {
			t.Errorf("HasChannelTag(%q, %q) = %v, want %v", tt.key, tt.tag, got, tt.want)
		}
	}

	mustPlay(t, d, "step")
	if !d.IsChannelActive("foley") || d.IsChannelActive(mixer.ChannelMusic) {
		t.Error("IsChannelActive() does not follow the playing voice")
	}
}

func TestDirector_StopAllAndReload(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: a, file_name: a.wav}
`
	loader := audiotest.NewLoader().Add("a.wav", time.Minute).Add("b.wav", time.Minute)
	d, _ := newDirector(t, yml, loader)

	mustPlay(t, d, "a")
	mustPlay(t, d, "a")
	d.StopAll(0)
	if got := d.ActiveVoices(); got != 0 {
		t.Fatalf("ActiveVoices() after StopAll = %d, want 0", got)
	}

	next, err := config.Parse([]byte(`
assets:
  - {key_name: b, file_name: b.wav}
`))
	if err != nil {
		t.Fatal(err)
	}
	d.Reload(next)
	if _, err := d.Play("a"); !errors.Is(err, mixer.ErrUnknownKey) {
		t.Errorf("Play(a) after reload error = %v, want %v", err, mixer.ErrUnknownKey)
	}
	mustPlay(t, d, "b")
}

func TestDirector_ListenerOff(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - key_name: swing
    file_name: swing.wav
    events: [{key_name: hit, trigger_time: 0.2}]
`
	loader := audiotest.NewLoader().Add("swing.wav", time.Second)
	d, dev := newDirector(t, yml, loader)

	h := mustPlay(t, d, "swing")
	calls := 0
	id := h.On("hit", func(mixer.Event) { calls++ })
	if id == 0 {
		t.Fatal("On() returned 0 on a live handle")
	}
	if !h.Off(id) {
		t.Fatal("Off() = false for a registered listener")
	}
	if h.Off(id) {
		t.Error("Off() = true for an already removed listener")
	}

	audiotest.Run(d, dev, tick, 11)
	if calls != 0 {
		t.Errorf("removed listener ran %d times", calls)
	}
	if h.On("hit", func(mixer.Event) {}) != 0 {
		t.Error("On() on a stale handle returned a non-zero id")
	}
}

func TestDirector_StopAllFades(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: bgm, file_name: bgm.wav, tags: [music]}
  - {key_name: amb, file_name: amb.wav}
  - {key_name: vo, file_name: vo.wav, tags: [wait_for_vo, type_vo]}
`
	loader := audiotest.NewLoader().
		Add("bgm.wav", time.Minute).
		Add("amb.wav", 10*time.Second).
		Add("vo.wav", 5*time.Second)
	d, dev := newDirector(t, yml, loader)

	music, err := d.SwitchMusicKeyImmediate("bgm", 0)
	if err != nil {
		t.Fatalf("SwitchMusicKeyImmediate() error = %v", err)
	}
	amb := mustPlay(t, d, "amb")
	mustPlay(t, d, "vo")
	if _, err := d.Play("vo"); !errors.Is(err, mixer.ErrQueued) {
		t.Fatalf("second Play(vo) error = %v, want %v", err, mixer.ErrQueued)
	}
	audiotest.Run(d, dev, tick, 1)

	d.StopAll(time.Second)
	if !music.Valid() || !amb.Valid() {
		t.Fatal("StopAll with a fade cut voices immediately")
	}
	if music.State() != mixer.VoiceFading || amb.State() != mixer.VoiceFading {
		t.Errorf("State() = %v, %v; want both fading", music.State(), amb.State())
	}
	if len(d.Queued()) != 0 {
		t.Errorf("Queued() = %v after StopAll, want empty", d.Queued())
	}

	prev := make([]float64, len(dev.Playbacks))
	for i, pb := range dev.Playbacks {
		prev[i] = pb.Volume
	}
	for i := range 11 {
		audiotest.Run(d, dev, tick, 1)
		for j, pb := range dev.Playbacks {
			if pb.Volume > prev[j] {
				t.Fatalf("tick %d: playback %d volume rose from %v to %v", i, j, prev[j], pb.Volume)
			}
			prev[j] = pb.Volume
		}
	}
	if got := d.ActiveVoices(); got != 0 {
		t.Errorf("ActiveVoices() after the fade = %d, want 0", got)
	}

	audiotest.Run(d, dev, tick, 5)
	if d.IsPlaying("bgm") || d.IsPlaying("vo") {
		t.Error("StopAll left deferred music or queued lines to start later")
	}
	if got := d.MusicKey(); got != "bgm" {
		t.Errorf("MusicKey() = %q after StopAll, want %q", got, "bgm")
	}
}

func TestDirector_ShorterFadeWins(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: amb, file_name: amb.wav}
`
	loader := audiotest.NewLoader().Add("amb.wav", 10*time.Second)
	d, dev := newDirector(t, yml, loader)

	h := mustPlay(t, d, "amb")
	if err := d.Stop(h, 2*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	audiotest.Run(d, dev, tick, 1)
	// a longer fade leaves the running one alone
	if err := d.Stop(h, 10*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := d.Stop(h, 200*time.Millisecond); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	audiotest.Run(d, dev, tick, 2)
	if h.Valid() {
		t.Error("voice still valid after the shortened fade")
	}
}

func TestDirector_Locked(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: click, file_name: click.wav}
`
	loader := audiotest.NewLoader().Add("click.wav", time.Second)
	d, dev := newDirector(t, yml, loader, mixer.WithPoolSize(1))

	h := mustPlay(t, d, "click")
	if !h.SetLocked(true) {
		t.Fatal("SetLocked() = false on a live handle")
	}
	pb := dev.Last()

	audiotest.Run(d, dev, tick, 12)
	if !h.Valid() {
		t.Fatal("locked voice recycled after its clip ended")
	}
	if pb.IsPlaying() || pb.Closed {
		t.Errorf("playback playing=%v closed=%v, want stopped and open", pb.IsPlaying(), pb.Closed)
	}
	if !slices.Contains(h.Handled(), mixer.EventEnd) {
		t.Errorf("Handled() = %v, want end delivered", h.Handled())
	}
	if _, err := d.Play("click"); !errors.Is(err, mixer.ErrPoolExhausted) {
		t.Errorf("Play() with the only voice locked error = %v, want %v", err, mixer.ErrPoolExhausted)
	}

	h.SetLocked(false)
	audiotest.Run(d, dev, tick, 1)
	if h.Valid() || !pb.Closed {
		t.Error("unlocked voice was not recycled")
	}

	h = mustPlay(t, d, "click")
	h.SetLocked(true)
	if err := d.Stop(h, 0); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !h.Valid() || dev.Last().IsPlaying() {
		t.Errorf("Stop() on a locked voice: valid=%v playing=%v; want valid and silent", h.Valid(), dev.Last().IsPlaying())
	}
	d.StopAll(0)
	if h.Valid() {
		t.Error("StopAll() kept a locked voice")
	}
}

func TestDirector_VolumeAndPitchClamp(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: hi, file_name: hi.wav, volume: 0.8, pitch: 2.5}
`
	loader := audiotest.NewLoader().Add("hi.wav", time.Second)
	d, dev := newDirector(t, yml, loader)

	tests := []struct {
		name       string
		opts       []mixer.PlayOption
		vol, pitch float64
	}{
		{"defaults", nil, 0.8, 2.5},
		{"above range", []mixer.PlayOption{mixer.WithVolume(2), mixer.WithPitch(2)}, 1, mixer.MaxPitch},
		{"below range", []mixer.PlayOption{mixer.WithVolume(-1), mixer.WithPitch(-7)}, 0, mixer.MinPitch},
		{"inside range", []mixer.PlayOption{mixer.WithVolume(0.5), mixer.WithPitch(-1)}, 0.4, 1.5},
	}
	for _, tt := range tests {
		h := mustPlay(t, d, "hi", tt.opts...)
		if got := h.Volume(); !near(got, tt.vol) {
			t.Errorf("%s: Volume() = %v, want %v", tt.name, got, tt.vol)
		}
		if got := h.Pitch(); !near(got, tt.pitch) {
			t.Errorf("%s: Pitch() = %v, want %v", tt.name, got, tt.pitch)
		}
		if got := dev.Last().Pitch; !near(got, tt.pitch) {
			t.Errorf("%s: playback pitch = %v, want %v", tt.name, got, tt.pitch)
		}
	}
}

func TestDirector_DuckStartRamp(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: bgm, file_name: bgm.wav, tags: [music]}
  - key_name: vo
    file_name: vo.wav
    duck_tags: [{tag: music, volume: 0.2, start_duration: 1}]
`
	loader := audiotest.NewLoader().Add("bgm.wav", time.Minute).Add("vo.wav", 5*time.Second)
	d, dev := newDirector(t, yml, loader)

	mustPlay(t, d, "bgm")
	mustPlay(t, d, "vo")
	music := channel(t, d, "music")

	prev := 1.0
	for i := range 4 {
		audiotest.Run(d, dev, tick, 1)
		if got := music.DuckingLevel(); got >= prev {
			t.Fatalf("tick %d: DuckingLevel() = %v, want below %v while ramping", i, got, prev)
		}
		prev = music.DuckingLevel()
	}
	audiotest.Run(d, dev, tick, 1)
	if got := music.DuckingLevel(); !near(got, 0.6) {
		t.Errorf("DuckingLevel() halfway through the ramp = %v, want 0.6", got)
	}

	audiotest.Run(d, dev, tick, 5)
	if got := music.DuckingLevel(); !near(got, 0.2) {
		t.Errorf("DuckingLevel() after the ramp = %v, want 0.2", got)
	}
}

func TestDirector_ListenersDuringDelivery(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - key_name: swing
    file_name: swing.wav
    events: [{key_name: hit, trigger_time: 0.2}]
`
	loader := audiotest.NewLoader().Add("swing.wav", 10*time.Second)
	d, dev := newDirector(t, yml, loader)

	h := mustPlay(t, d, "swing")

	// a listener removed by an earlier one in the same delivery does not run
	var second trackedListener
	h.On("hit", func(mixer.Event) {
		if !h.Off(second.id) {
			t.Error("Off() = false for a live listener inside delivery")
		}
	})
	second.id = h.On("hit", func(mixer.Event) { second.calls++ })

	audiotest.Run(d, dev, tick, 3)
	if second.calls != 0 {
		t.Errorf("removed listener ran %d times", second.calls)
	}

	// end is flushed while the voice is recycling; the handle is already idle
	var late, other trackedListener
	other.id = h.On(mixer.EventEnd, func(mixer.Event) { other.calls++ })
	h.On(mixer.EventEnd, func(mixer.Event) {
		late.id = h.On("hit", func(mixer.Event) {})
		if h.Off(other.id) {
			t.Error("Off() = true on a recycling voice")
		}
	})
	if err := d.Stop(h, 0); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if late.id != 0 {
		t.Errorf("On() while recycling = %d, want 0", late.id)
	}
	if other.calls != 1 {
		t.Errorf("end listener ran %d times, want 1", other.calls)
	}
}

// trackedListener is one listener id and how often it ran.
type trackedListener struct {
	id    mixer.ListenerID
	calls int
}

func TestDirector_ResetKeepsSeededShuffles(t *testing.T) {
	t.Parallel()

	const yml = `
assets:
  - {key_name: a, file_name: a.wav}
  - {key_name: b, file_name: b.wav}
  - {key_name: c, file_name: c.wav}
  - {key_name: e, file_name: e.wav}
playlists:
  - {key_name: p1, shuffle: true, tracks: [a, b, c, e]}
  - {key_name: p2, shuffle: true, tracks: [a, b, c, e]}
  - {key_name: p3, shuffle: true, tracks: [a, b, c, e]}
  - {key_name: p4, shuffle: true, tracks: [a, b, c, e]}
`
	order := func() string {
		loader := audiotest.NewLoader().
			Add("a.wav", time.Second).Add("b.wav", time.Second).
			Add("c.wav", time.Second).Add("e.wav", time.Second)
		d, _ := newDirector(t, yml, loader)
		d.Reset()

		var keys []byte
		for _, p := range []string{"p1", "p2", "p3", "p4"} {
			for range 4 {
				h := mustPlay(t, d, p)
				keys = append(keys, h.Key()...)
				d.StopAll(0)
			}
		}
		return string(keys)
	}

	want := order()
	for i := range 10 {
		if got := order(); got != want {
			t.Fatalf("run %d: order after Reset() = %q, want %q", i, got, want)
		}
	}
}
