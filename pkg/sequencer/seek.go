package sequencer

import (
	"github.com/nicmidi-go/midiseq/pkg/midi"
	"github.com/nicmidi-go/midiseq/pkg/notifier"
)

// GoToZero resets the iterator and state to song origin and notifies
// GROUP_ALL. Unlike GoToTime(0, ...), it never replays tick-0 events
// into state or chases them to the output (§4.7.2).
func (e *Engine) GoToZero() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Reset()
	e.it = midi.NewMultiTrackIterator(e.mt)
	e.reanchorLocked(0, e.anchorSysMs)
	if e.notifier != nil {
		e.notifier.Notify(notifier.Event{Group: notifier.GroupAll})
	}
}

// GoToTime seeks to tick t. While playing, held sounding notes from
// before t are not carried over; program/control/SysEx events that
// occurred at or before t are replayed to the output drivers so the
// destination matches the state at t (the "chase" behavior, §4.7.2).
func (e *Engine) GoToTime(t midi.ClockTime, nowMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.goToTimeLocked(t, e.playing)
	e.reanchorLocked(t, nowMs)
}

// GoToMeasure computes a tick from the time-signature history recorded
// while building warp positions, then seeks there (§4.7.2). beat is
// 0-based within the measure.
func (e *Engine) GoToMeasure(measure, beat int, nowMs int64) {
	e.mu.Lock()
	e.ensureWarpsBuiltLocked()
	tick := e.tickForMeasureLocked(measure, beat)
	e.mu.Unlock()
	e.GoToTime(tick, nowMs)
}

// tickForMeasureLocked walks the warp cache (which records a tick at
// every warpEveryMeasures boundary) to approximate the tick for
// (measure, beat) using the time signature in effect at the nearest
// snapshot. Exact only when the time signature has not changed between
// the snapshot and the target measure.
func (e *Engine) tickForMeasureLocked(measure, beat int) midi.ClockTime {
	var baseTick midi.ClockTime
	baseMeasure := 0
	beatLen := e.state.BeatLength()
	beatsPerMeasure := int(e.state.TimeSigNumerator)
	if beatsPerMeasure <= 0 {
		beatsPerMeasure = 4
	}

	for _, w := range e.warps {
		snapMeasure := w.state.CurMeasure
		if snapMeasure > measure {
			break
		}
		baseTick = w.tick
		baseMeasure = snapMeasure
		beatLen = w.state.BeatLength()
		beatsPerMeasure = int(w.state.TimeSigNumerator)
		if beatsPerMeasure <= 0 {
			beatsPerMeasure = 4
		}
	}

	measuresFromBase := midi.ClockTime(measure - baseMeasure)
	return baseTick + measuresFromBase*midi.ClockTime(beatsPerMeasure)*beatLen + midi.ClockTime(beat)*beatLen
}

// goToTimeLocked must be called with e.mu held. When chase is true
// (typically because playback is active), program/controller/SysEx
// events up to t are forwarded to each track's output so the synth
// matches the state at t; note-on/off events are neither applied to state
// nor re-sounded. When chase is false, every event up to t, notes
// included, is applied to state and nothing is sent.
func (e *Engine) goToTimeLocked(t midi.ClockTime, chase bool) {
	e.ensureWarpsBuiltLocked()

	baseTick, snapshot := e.nearestWarpLocked(t)
	e.state = snapshot.Clone()
	e.it = midi.NewMultiTrackIterator(e.mt)
	e.it.GoToTime(baseTick)

	for {
		trackIdx, ev, ok := e.it.CurEvent()
		if !ok || ev.Time > t {
			break
		}
		// While chasing during playback, notes are not carried over as
		// sounding state: only program/controller/bend/meta facts are
		// replayed (§4.7.2). Outside playback, a seek is a plain replay
		// and notes update state like any other event.
		if !chase || !ev.Message.IsNoteOnOrOff() {
			e.state.apply(trackIdx, ev.Message)
		}
		if chase && isChaseWorthy(ev.Message) {
			if out := e.outputLocked(trackIdx); out != nil {
				out.Output(ev.Message)
			}
		}
		e.it.Advance()
	}
	for e.state.NextBeatTime <= t {
		e.state.advanceBeatSilently()
	}

	if e.notifier != nil {
		e.notifier.Notify(notifier.Event{Group: notifier.GroupAll})
	}
}

// isChaseWorthy reports whether msg is the kind of state-establishing
// event that must be re-sent to a synth on a chase seek: program
// change, control change, or SysEx. Notes are excluded; chasing never
// re-sounds a note that would already have ended.
func isChaseWorthy(msg midi.Message) bool {
	return msg.IsProgramChange() || msg.IsControlChange() || msg.IsSysEx()
}

// nearestWarpLocked returns the tick and state snapshot of the cached
// warp position at or before t, or (0, a fresh reset State) if none
// qualifies.
func (e *Engine) nearestWarpLocked(t midi.ClockTime) (midi.ClockTime, *State) {
	var best *warpSnapshot
	for i := range e.warps {
		if e.warps[i].tick <= t {
			best = &e.warps[i]
		} else {
			break
		}
	}
	if best == nil {
		fresh := NewState(len(e.state.Tracks), e.state.ClocksPerBeat, e.notifier)
		return 0, fresh
	}
	return best.tick, best.state
}

// ensureWarpsBuiltLocked performs a one-time forward replay of the whole
// song, caching a state snapshot every warpEveryMeasures measures so
// later seeks do not have to replay from zero (§4.7.2). The tick
// attached to each snapshot is the exact tick at which the measure
// boundary is crossed (the beat-crossing loop's NextBeatTime just
// before it rolls the measure over), not the timestamp of whichever
// event happens to be current when the crossing is detected; those
// can differ whenever a measure contains no event of its own.
func (e *Engine) ensureWarpsBuiltLocked() {
	if e.warpsBuilt {
		return
	}
	e.warpsBuilt = true

	scratch := NewState(len(e.state.Tracks), e.state.ClocksPerBeat, nil)
	e.warps = append(e.warps, warpSnapshot{tick: 0, state: scratch.Clone()})

	it := midi.NewMultiTrackIterator(e.mt)
	for {
		trackIdx, ev, ok := it.CurEvent()
		if !ok {
			break
		}
		// Catch up any beat crossings strictly before this event is
		// applied, so a recorded snapshot never includes the very event
		// its tick is positioned at; goToTimeLocked repositions the
		// iterator at >= that tick and would otherwise reapply it.
		for scratch.NextBeatTime <= ev.Time {
			boundaryTick := scratch.NextBeatTime
			priorMeasure := scratch.CurMeasure
			scratch.advanceBeatSilently()
			if scratch.CurMeasure != priorMeasure && scratch.CurMeasure%e.warpEveryMeasures == 0 {
				e.warps = append(e.warps, warpSnapshot{tick: boundaryTick, state: scratch.Clone()})
			}
		}
		scratch.apply(trackIdx, ev.Message)
		it.Advance()
	}
}
