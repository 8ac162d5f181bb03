// Package sequencer owns the per-song playback state (C6) and the
// engine that drives it against wall-clock time through the tick
// scheduler (C7): a track processor chain, chase-aware seeking, tempo
// conversion, and the per-millisecond tick step.
package sequencer

import (
	"errors"
	"sync"

	"github.com/nicmidi-go/midiseq/pkg/driver"
	"github.com/nicmidi-go/midiseq/pkg/logger"
	"github.com/nicmidi-go/midiseq/pkg/midi"
	"github.com/nicmidi-go/midiseq/pkg/notifier"
)

// PlayMode controls what happens when playback reaches the end of the
// song.
type PlayMode int

const (
	// PlayBounded stops at the end of the song (or the repeat window).
	PlayBounded PlayMode = iota
	// PlayLooping seeks back to the repeat start and continues.
	PlayLooping
)

// ErrPlaying is returned by editing operations attempted while the
// engine is playing; per the stop-modify-resume discipline (§9), the
// caller must Stop, edit the MultiTrack directly, then Play again.
var ErrPlaying = errors.New("sequencer: cannot edit while playing")

// TickComponentPriority is the fixed scheduler priority the Engine
// registers itself at.
const TickComponentPriority = 0

// Engine drives a MultiTrack's playback: it owns the iterator, the
// sequencer State, the per-track processor chain, and the outputs each
// track's events are sent to.
type Engine struct {
	mu sync.Mutex

	mt       *midi.MultiTrack
	state    *State
	notifier notifier.Notifier
	it       *midi.MultiTrackIterator

	processors []*Processor
	outputs    []*driver.OutputDriver

	playing  bool
	playMode PlayMode

	tempoScalePercent int

	anchorTick  midi.ClockTime
	anchorSysMs int64

	repeatStart, repeatEnd midi.ClockTime

	warps             []warpSnapshot
	warpEveryMeasures int
	warpsBuilt        bool
}

type warpSnapshot struct {
	tick  midi.ClockTime
	state *State
}

// DefaultWarpEveryMeasures is how often (in measures) a seek snapshot is
// cached (§4.7.2).
const DefaultWarpEveryMeasures = 4

// NewEngine returns an Engine over mt, reset to song origin. n may be
// nil (events are still processed; nothing is notified).
func NewEngine(mt *midi.MultiTrack, n notifier.Notifier) *Engine {
	e := &Engine{
		mt:                mt,
		notifier:          n,
		tempoScalePercent: DefaultTempoScale,
		warpEveryMeasures: DefaultWarpEveryMeasures,
		playMode:          PlayBounded,
	}
	e.state = NewState(mt.NumTracks(), mt.ClocksPerBeat(), n)
	e.processors = make([]*Processor, mt.NumTracks())
	for i := range e.processors {
		e.processors[i] = NewProcessor()
	}
	e.outputs = make([]*driver.OutputDriver, mt.NumTracks())
	e.it = midi.NewMultiTrackIterator(mt)
	return e
}

// State returns the live sequencer state (read-only by convention;
// mutate only through Process/GoToTime).
func (e *Engine) State() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Processor returns the processor chain for a track, growing the slice
// if the song has gained tracks.
func (e *Engine) Processor(trackIndex int) *Processor {
	e.mu.Lock()
	defer e.mu.Unlock()
	for trackIndex >= len(e.processors) {
		e.processors = append(e.processors, NewProcessor())
	}
	return e.processors[trackIndex]
}

// SetOutput assigns an output driver to a track; events on that track
// are sent there during playback and chase.
func (e *Engine) SetOutput(trackIndex int, out *driver.OutputDriver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for trackIndex >= len(e.outputs) {
		e.outputs = append(e.outputs, nil)
	}
	e.outputs[trackIndex] = out
}

// SetRepeat configures the loop window used when PlayMode is PlayLooping.
func (e *Engine) SetRepeat(start, end midi.ClockTime) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeatStart, e.repeatEnd = start, end
}

// SetPlayMode switches between bounded and looping end-of-song behavior.
func (e *Engine) SetPlayMode(mode PlayMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playMode = mode
}

// SetTempoScale sets the integer tempo-scale percentage (100=normal,
// 200=double speed), re-anchoring the clock so ms->ticks stays
// monotonic.
func (e *Engine) SetTempoScale(percent int, nowMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reanchorLocked(e.anchorTick, nowMs)
	e.tempoScalePercent = percent
}

func (e *Engine) reanchorLocked(tick midi.ClockTime, sysMs int64) {
	e.anchorTick = tick
	e.anchorSysMs = sysMs
}

// Edit applies fn to the underlying MultiTrack and returns ErrPlaying
// without calling fn if the engine is currently playing; the
// stop-modify-resume discipline (§9): callers must Stop, edit, then
// Play again rather than mutate a song out from under a running tick
// loop. A successful edit invalidates the iterator and warp-position
// cache, since both assume the event stream they were built against.
func (e *Engine) Edit(fn func(mt *midi.MultiTrack) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		return ErrPlaying
	}
	if err := fn(e.mt); err != nil {
		return err
	}
	e.it = midi.NewMultiTrackIterator(e.mt)
	e.warps = nil
	e.warpsBuilt = false
	return nil
}

// Play starts playback, anchoring the clock at the current position.
func (e *Engine) Play(nowMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = true
	e.reanchorLocked(e.anchorTick, nowMs)
	if e.notifier != nil {
		e.notifier.Notify(notifier.Event{Group: notifier.GroupTransport, Item: notifier.ItemTransportStart})
	}
}

// Stop halts playback and silences every assigned output.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if !e.playing {
		return
	}
	e.playing = false
	for _, out := range e.outputs {
		if out != nil {
			out.AllNotesOffAll()
		}
	}
	if e.notifier != nil {
		e.notifier.Notify(notifier.Event{Group: notifier.GroupTransport, Item: notifier.ItemTransportStop})
	}
}

// Playing reports whether the engine is currently playing.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// anySoloedLocked reports whether any track processor is currently soloed.
func (e *Engine) anySoloedLocked() bool {
	for _, p := range e.processors {
		if p != nil && p.Solo {
			return true
		}
	}
	return false
}

// songEndLocked returns the largest end time across every track.
func (e *Engine) songEndLocked() midi.ClockTime {
	var end midi.ClockTime
	for i := 0; i < e.mt.NumTracks(); i++ {
		if t := e.mt.Track(i).EndTime(); t > end {
			end = t
		}
	}
	return end
}

// Tick implements scheduler.TickComponent (§4.7.4).
func (e *Engine) Tick(nowMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return
	}

	deltaMs := float64(nowMs - e.anchorSysMs)
	targetTick := e.anchorTick + msToTicks(deltaMs, e.state.TempoBPM, e.tempoScalePercent, e.state.ClocksPerBeat)

	anySoloed := e.anySoloedLocked()
	for {
		trackIdx, ev, ok := e.it.CurEvent()
		if !ok || ev.Time > targetTick {
			break
		}

		proc := e.processorLocked(trackIdx)
		msg, keep := proc.Apply(ev.Message, anySoloed)
		if keep {
			e.state.Process(trackIdx, msg)
			if out := e.outputLocked(trackIdx); out != nil {
				out.Output(msg)
			}
			if msg.IsTempo() {
				e.reanchorLocked(ev.Time, nowMs)
			}
		}
		e.it.Advance()
	}

	for e.state.NextBeatTime <= targetTick {
		e.state.AdvanceBeat()
	}

	if e.playMode == PlayLooping && e.repeatEnd > 0 && targetTick >= e.repeatEnd {
		e.goToTimeLocked(e.repeatStart, true)
		e.reanchorLocked(e.repeatStart, nowMs)
		return
	}

	if e.playMode == PlayBounded && targetTick >= e.songEndLocked() {
		e.stopLocked()
	}
}

func (e *Engine) processorLocked(trackIndex int) *Processor {
	for trackIndex >= len(e.processors) {
		e.processors = append(e.processors, NewProcessor())
	}
	return e.processors[trackIndex]
}

func (e *Engine) outputLocked(trackIndex int) *driver.OutputDriver {
	if trackIndex >= len(e.outputs) {
		return nil
	}
	return e.outputs[trackIndex]
}

// Start implements scheduler.TickComponent; the engine does not need
// any extra setup beyond being registered.
func (e *Engine) Start() { logger.GetLogger().Debug("sequencer engine started") }

// Priority implements scheduler.TickComponent.
func (e *Engine) Priority() int { return TickComponentPriority }
