// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// LoopForever keeps a voice looping until it is stopped.
	LoopForever = -1

	// MeaningfulVolume is the level below which a fading voice is cut.
	MeaningfulVolume = 0.01

	MinPitch = -3.0
	MaxPitch = 3.0
)

type VoiceState int

const (
	VoiceFree VoiceState = iota
	VoiceDelayed
	VoicePlaying
	VoiceFading
)

func (s VoiceState) String() string {
	switch s {
	case VoiceFree:
		return "free"
	case VoiceDelayed:
		return "delayed"
	case VoicePlaying:
		return "playing"
	case VoiceFading:
		return "fading"
	}
	return "unknown"
}

// Voice is one pooled playback slot.
type Voice struct {
	index int
	// bumped on every recycle so stale handles can be told apart
	epoch     uint64
	state     VoiceState
	recycling bool
	locked    bool

	asset      *Asset
	requestKey string
	playback   Playback

	relVolume float64
	relPitch  float64
	loops     int
	loopCount int

	startTime time.Duration
	delay     time.Duration
	playEnd   time.Duration
	endAfter  time.Duration
	elapsed   time.Duration
	lastPos   time.Duration

	fadeStart    time.Duration
	fadeDuration time.Duration

	volume float64
	pitch  float64

	pending   []pendingEvent
	handled   []string
	listeners []listenerEntry
	lastID    ListenerID

	ducked  []*Channel
	aborted []*Channel

	logger zerolog.Logger
}

func newVoice(index int, logger zerolog.Logger) *Voice {
	return &Voice{
		index:  index,
		logger: logger.With().Int("voice", index).Logger(),
	}
}

type playParams struct {
	volume float64
	pitch  float64
	delay  time.Duration
	loops  int
}

func (v *Voice) handle() Handle {
	return Handle{v: v, epoch: v.epoch}
}

func (v *Voice) owned() bool {
	return v.state != VoiceFree && !v.recycling
}

// setupPlay takes a free voice and starts (or schedules) playback.
func (v *Voice) setupPlay(asset *Asset, pb Playback, requestKey string, p playParams, now time.Duration) {
	loops := p.loops
	if loops == 0 {
		loops = asset.loops
	}

	v.asset = asset
	v.playback = pb
	v.requestKey = requestKey
	v.relVolume = p.volume
	v.relPitch = p.pitch
	v.loops = loops
	v.loopCount = 0
	v.startTime = now
	v.delay = max(asset.delay+p.delay, 0)
	v.playEnd = asset.playLength(loops)
	v.endAfter = v.playEnd
	if v.playEnd != forever {
		v.endAfter += asset.maxUnduck
	}
	v.elapsed = -v.delay
	v.lastPos = 0
	v.fadeStart = 0
	v.fadeDuration = 0
	v.pending = schedule(asset, v.endAfter)
	v.handled = v.handled[:0]

	for _, rule := range asset.ducks {
		rule.Target.pushDuck(v)
		v.ducked = append(v.ducked, rule.Target)
	}
	for _, rule := range asset.aborts {
		rule.Target.pushAbort(v)
		v.aborted = append(v.aborted, rule.Target)
	}

	pb.SetLoop(loops != 0)
	if panner, ok := pb.(Panner); ok {
		panner.SetPan(asset.pan)
	}

	if v.delay > 0 {
		v.state = VoiceDelayed
		pb.SetVolume(0)
		return
	}
	v.state = VoicePlaying
	v.mix(now)
	pb.Play()
}

func (v *Voice) elapsedAt(now time.Duration) time.Duration {
	return now - v.startTime - v.delay
}

// mix pushes the current volume and pitch to the playback.
func (v *Voice) mix(now time.Duration) {
	vol := clamp01(v.asset.volume * v.relVolume)
	for _, ch := range v.asset.channels {
		vol *= ch.currentVolume * ch.duckingLevel
	}
	if v.state == VoiceFading {
		vol *= v.fadeFactor(now)
	}
	v.volume = vol
	v.pitch = clamp(v.asset.pitch+v.relPitch, MinPitch, MaxPitch)

	v.playback.SetVolume(v.volume)
	v.playback.SetPitch(v.pitch)
}

// fadeFactor follows (1-f)^2 over the fade duration.
func (v *Voice) fadeFactor(now time.Duration) float64 {
	if v.fadeDuration <= 0 {
		return 0
	}
	f := clamp01(float64(now-v.fadeStart) / float64(v.fadeDuration))
	return (1 - f) * (1 - f)
}

// duckLevelFor is this voice's contribution to c's ducking level right now.
func (v *Voice) duckLevelFor(c *Channel, now time.Duration) float64 {
	if !v.owned() || v.state == VoiceDelayed {
		return 1
	}
	t := v.elapsedAt(now)
	level := 1.0
	for _, rule := range v.asset.ducks {
		if rule.Target != c {
			continue
		}
		if l := v.ruleLevel(rule, t); l < level {
			level = l
		}
	}
	return level
}

func (v *Voice) ruleLevel(rule DuckRule, t time.Duration) float64 {
	level := rule.Volume
	if rule.Start > 0 && t < rule.Start {
		f := clamp01(float64(t) / float64(rule.Start))
		level = 1 + (rule.Volume-1)*f
	}

	unduck := forever
	if v.playEnd != forever {
		unduck = v.playEnd + rule.EndOffset
	}
	if v.state == VoiceFading {
		unduck = min(unduck, v.fadeStart-v.startTime-v.delay)
	}
	if t < unduck {
		return level
	}
	if rule.End <= 0 {
		return 1
	}
	f := clamp01(float64(t-unduck) / float64(rule.End))
	return level + (1-level)*f
}

// active reports whether the voice still needs its slot: loading, audible,
// or inside its un-duck tail.
func (v *Voice) active(now time.Duration) bool {
	switch v.state {
	case VoiceDelayed:
		return true
	case VoicePlaying:
		if v.playback.IsPlaying() {
			return true
		}
		return len(v.asset.ducks) > 0 && v.elapsedAt(now) < v.endAfter
	case VoiceFading:
		return v.playback.IsPlaying()
	}
	return false
}

// finished voices can be reclaimed by the pool before their own update runs.
func (v *Voice) finished(now time.Duration) bool {
	return v.owned() && !v.locked && v.state != VoiceDelayed && !v.active(now)
}

func (v *Voice) update(now time.Duration) {
	if !v.owned() {
		return
	}
	if v.state == VoiceDelayed {
		if now < v.startTime+v.delay {
			return
		}
		v.state = VoicePlaying
		v.mix(now)
		v.playback.Play()
	}

	epoch := v.epoch
	v.elapsed = v.elapsedAt(now)
	v.mix(now)

	if v.state == VoiceFading && v.volume < MeaningfulVolume && v.playback.IsPlaying() {
		v.playback.Stop()
	}
	// looping clips are cut at the scheduled end; the un-duck tail stays silent
	if v.loops > 0 && v.elapsed >= v.playEnd && v.playback.IsPlaying() {
		v.playback.Stop()
	}
	v.detectLoop(now)

	v.fire(v.elapsed, false)
	if v.epoch != epoch || !v.owned() {
		return
	}

	if !v.active(now) {
		if !v.locked {
			v.recycle()
		}
		return
	}
	if v.elapsed >= v.endAfter && v.state != VoiceFading {
		v.stop(0, now)
	}
}

// detectLoop counts wraparounds of the playback position and re-marks the
// asset so its replay window holds during long loops.
func (v *Voice) detectLoop(now time.Duration) {
	pos := v.playback.Position()
	if pos < v.lastPos {
		v.loopCount++
		v.asset.markPlaying(now)
	}
	v.lastPos = pos
}

// fire delivers pending events up to elapsed, in trigger order. Listeners
// may stop or recycle the voice; delivery stops once the epoch moves on.
func (v *Voice) fire(elapsed time.Duration, flushed bool) {
	epoch := v.epoch
	for len(v.pending) > 0 && v.pending[0].at <= elapsed {
		ev := v.pending[0]
		v.pending = v.pending[1:]
		v.handled = append(v.handled, ev.name)
		v.dispatch(Event{
			Name:    ev.name,
			Key:     v.asset.key,
			Voice:   v.index,
			At:      ev.at,
			Flushed: flushed,
		})
		if v.epoch != epoch {
			return
		}
	}
}

func (v *Voice) dispatch(ev Event) {
	if len(v.listeners) == 0 {
		return
	}
	snapshot := append([]listenerEntry(nil), v.listeners...)
	for _, l := range snapshot {
		if l.event == ev.Name && v.hasListener(l.id) {
			l.fn(ev)
		}
	}
}

func (v *Voice) addListener(event string, fn Listener) ListenerID {
	v.lastID++
	v.listeners = append(v.listeners, listenerEntry{id: v.lastID, event: event, fn: fn})
	return v.lastID
}

func (v *Voice) hasListener(id ListenerID) bool {
	for _, l := range v.listeners {
		if l.id == id {
			return true
		}
	}
	return false
}

func (v *Voice) removeListener(id ListenerID) bool {
	for i, l := range v.listeners {
		if l.id == id {
			v.listeners = append(v.listeners[:i:i], v.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// stop fades the voice out, or cuts it immediately when fade is zero. A
// locked voice keeps its slot after the cut until it is unlocked.
func (v *Voice) stop(fade time.Duration, now time.Duration) {
	switch {
	case !v.owned():
		v.logger.Warn().Msg("stop on idle voice ignored")
		return
	case v.state == VoiceDelayed:
		v.recycle()
		return
	case v.state == VoiceFading && fade > 0:
		// a shorter fade pulls in the end of the running one
		if end := now + fade; end < v.fadeStart+v.fadeDuration {
			v.fadeDuration = end - v.fadeStart
		}
		return
	}

	if fade <= 0 {
		v.playback.Stop()
		if !v.locked {
			v.recycle()
		}
		return
	}
	v.state = VoiceFading
	v.fadeStart = now
	v.fadeDuration = fade
}

// recycle returns the voice to the pool. Pending events are flushed first
// so "end" listeners always run. Safe to call from any state.
func (v *Voice) recycle() {
	if v.state == VoiceFree || v.recycling {
		return
	}
	v.recycling = true

	v.fire(forever, true)

	for _, ch := range v.ducked {
		ch.popDuck(v)
	}
	for _, ch := range v.aborted {
		ch.popAbort(v)
	}
	if v.playback != nil {
		v.playback.Stop()
		if err := v.playback.Close(); err != nil {
			v.logger.Debug().Err(err).Msg("closing playback")
		}
	}

	v.ducked = v.ducked[:0]
	v.aborted = v.aborted[:0]
	v.pending = nil
	v.listeners = nil
	v.asset = nil
	v.requestKey = ""
	v.playback = nil
	v.locked = false
	v.volume = 0
	v.state = VoiceFree
	v.recycling = false
	v.epoch++
}

// Handle refers to one play on one voice. It goes stale as soon as the
// voice is recycled; every method is safe on a stale or zero Handle.
type Handle struct {
	v     *Voice
	epoch uint64
}

func (h Handle) voice() (*Voice, bool) {
	if h.v == nil || h.v.epoch != h.epoch || !h.v.owned() {
		return nil, false
	}
	return h.v, true
}

// Valid reports whether the play this handle refers to is still going.
func (h Handle) Valid() bool {
	_, ok := h.voice()
	return ok
}

func (h Handle) Index() int {
	if v, ok := h.voice(); ok {
		return v.index
	}
	return -1
}

// Key is the asset key being played.
func (h Handle) Key() string {
	if v, ok := h.voice(); ok {
		return v.asset.key
	}
	return ""
}

// RequestKey is the key passed to Play, which may be a playlist.
func (h Handle) RequestKey() string {
	if v, ok := h.voice(); ok {
		return v.requestKey
	}
	return ""
}

func (h Handle) State() VoiceState {
	if v, ok := h.voice(); ok {
		return v.state
	}
	return VoiceFree
}

func (h Handle) Volume() float64 {
	if v, ok := h.voice(); ok {
		return v.volume
	}
	return 0
}

func (h Handle) Pitch() float64 {
	if v, ok := h.voice(); ok {
		return v.pitch
	}
	return 0
}

// Elapsed is the playback time as of the last tick; negative while delayed.
func (h Handle) Elapsed() time.Duration {
	if v, ok := h.voice(); ok {
		return v.elapsed
	}
	return 0
}

// EndAfter is the scheduled total duration, including the un-duck tail.
func (h Handle) EndAfter() time.Duration {
	if v, ok := h.voice(); ok {
		return v.endAfter
	}
	return 0
}

func (h Handle) LoopCount() int {
	if v, ok := h.voice(); ok {
		return v.loopCount
	}
	return 0
}

// Handled lists the events already delivered, in order.
func (h Handle) Handled() []string {
	if v, ok := h.voice(); ok {
		return append([]string(nil), v.handled...)
	}
	return nil
}

// On registers fn for the named event and returns an id for Off. Each
// event fires at most once per play. It returns 0 on a stale handle.
func (h Handle) On(event string, fn Listener) ListenerID {
	v, ok := h.voice()
	if !ok || fn == nil {
		return 0
	}
	return v.addListener(event, fn)
}

// Off removes a listener registered with On.
func (h Handle) Off(id ListenerID) bool {
	v, ok := h.voice()
	if !ok {
		return false
	}
	return v.removeListener(id)
}

// SetLocked keeps a finished or stopped voice from being recycled until
// unlocked. StopAll releases every lock.
func (h Handle) SetLocked(locked bool) bool {
	v, ok := h.voice()
	if !ok {
		return false
	}
	v.locked = locked
	return true
}
