package sequencer

import (
	"github.com/nicmidi-go/midiseq/pkg/driver"
	"github.com/nicmidi-go/midiseq/pkg/midi"
	"github.com/nicmidi-go/midiseq/pkg/notifier"
)

// TrackState holds the per-track facts a sequencer derives purely from
// having played (or replayed) a track's events: the current program,
// every controller value, the current pitch-bend, the track's name
// (latched from the first unnamed Track-Name meta), and a note/pedal
// matrix for chase and panic purposes.
type TrackState struct {
	Program     byte
	Controllers [128]byte
	BenderValue int
	Name        string
	Matrix      *driver.NoteMatrix
}

func newTrackState() TrackState {
	return TrackState{Matrix: driver.NewNoteMatrix()}
}

// State is the whole-song sequencer state (§3.5, §4.6): conductor-level
// facts (tempo, time/key signature, marker) plus one TrackState per
// track, plus beat/measure position. Process and GoToTime are the only
// ways state changes; both route through notifier events unless told
// not to.
type State struct {
	TempoBPM           float64
	TimeSigNumerator   byte
	TimeSigDenominator byte
	KeySigSharpsFlats  int8
	KeySigMode         byte
	Marker             string

	ClocksPerBeat int
	CurBeat       int
	CurMeasure    int
	NextBeatTime  midi.ClockTime

	Tracks []TrackState

	notifier notifier.Notifier
}

// NewState returns a freshly reset State for a song with numTracks
// tracks at the given ticks-per-beat resolution.
func NewState(numTracks, clocksPerBeat int, n notifier.Notifier) *State {
	s := &State{ClocksPerBeat: clocksPerBeat, notifier: n}
	s.resize(numTracks)
	s.Reset()
	return s
}

func (s *State) resize(numTracks int) {
	s.Tracks = make([]TrackState, numTracks)
	for i := range s.Tracks {
		s.Tracks[i] = newTrackState()
	}
}

// Reset restores every field to its song-origin default: 120bpm, 4/4, C
// major, no marker, beat/measure zero, and every track's matrix/program/
// controllers/name cleared.
func (s *State) Reset() {
	s.TempoBPM = 120
	s.TimeSigNumerator = 4
	s.TimeSigDenominator = 4
	s.KeySigSharpsFlats = 0
	s.KeySigMode = 0
	s.Marker = ""
	s.CurBeat = 0
	s.CurMeasure = 0
	s.NextBeatTime = s.BeatLength()
	for i := range s.Tracks {
		s.Tracks[i] = newTrackState()
	}
}

// Clone deep-copies the state, used for warp-position snapshots.
func (s *State) Clone() *State {
	c := &State{
		TempoBPM:           s.TempoBPM,
		TimeSigNumerator:   s.TimeSigNumerator,
		TimeSigDenominator: s.TimeSigDenominator,
		KeySigSharpsFlats:  s.KeySigSharpsFlats,
		KeySigMode:         s.KeySigMode,
		Marker:             s.Marker,
		ClocksPerBeat:      s.ClocksPerBeat,
		CurBeat:            s.CurBeat,
		CurMeasure:         s.CurMeasure,
		NextBeatTime:       s.NextBeatTime,
		notifier:           s.notifier,
		Tracks:             make([]TrackState, len(s.Tracks)),
	}
	for i, ts := range s.Tracks {
		m := driver.NewNoteMatrix()
		for ch := byte(0); ch < 16; ch++ {
			for _, note := range ts.Matrix.SoundingNotes(ch) {
				for n := 0; n < ts.Matrix.SoundingCount(ch, note); n++ {
					m.Observe(midi.NewNoteOn(ch, note, 100))
				}
			}
			if ts.Matrix.PedalHeld(ch) {
				m.Observe(midi.NewControlChange(ch, 64, 127))
			}
		}
		c.Tracks[i] = TrackState{
			Program:     ts.Program,
			Controllers: ts.Controllers,
			BenderValue: ts.BenderValue,
			Name:        ts.Name,
			Matrix:      m,
		}
	}
	return c
}

// BeatLength is the tick span of one beat at the current time signature
// (§4.6.3): clocks_per_beat × 4 / denominator.
func (s *State) BeatLength() midi.ClockTime {
	den := s.TimeSigDenominator
	if den == 0 {
		den = 4
	}
	return midi.ClockTime(s.ClocksPerBeat) * 4 / midi.ClockTime(den)
}

// Track returns a pointer to trackIndex's state, growing the slice if
// the song has gained tracks since construction.
func (s *State) Track(trackIndex int) *TrackState {
	for trackIndex >= len(s.Tracks) {
		s.Tracks = append(s.Tracks, newTrackState())
	}
	return &s.Tracks[trackIndex]
}

// Process applies one event to the state and emits the corresponding
// notifier event (§4.6.1).
func (s *State) Process(trackIndex int, msg midi.Message) {
	if ev, ok := s.apply(trackIndex, msg); ok && s.notifier != nil {
		s.notifier.Notify(ev)
	}
}

// apply mutates state for msg without notifying, returning the event
// that would be notified and whether msg caused any change at all.
func (s *State) apply(trackIndex int, msg midi.Message) (notifier.Event, bool) {
	switch {
	case msg.IsProgramChange():
		s.Track(trackIndex).Program = msg.Data1
		return notifier.Event{Group: notifier.GroupTrack, Subgroup: trackIndex, Item: notifier.ItemTrackProgram}, true

	case msg.IsControlChange():
		ts := s.Track(trackIndex)
		ts.Controllers[msg.Data1&0x7F] = msg.Data2
		if msg.Data1 == 64 {
			ts.Matrix.Observe(msg)
		}
		return notifier.Event{Group: notifier.GroupTrack, Subgroup: trackIndex, Item: controllerNotifyItem(msg.Data1)}, true

	case msg.IsPitchBend():
		s.Track(trackIndex).BenderValue = msg.BenderValue()
		return notifier.Event{Group: notifier.GroupTrack, Subgroup: trackIndex, Item: notifier.ItemTrackNote}, true

	case msg.IsNoteOnOrOff():
		s.Track(trackIndex).Matrix.Observe(msg)
		return notifier.Event{Group: notifier.GroupTrack, Subgroup: trackIndex, Item: notifier.ItemTrackNote}, true

	case msg.IsTempo():
		s.TempoBPM = msg.Tempo()
		return notifier.Event{Group: notifier.GroupConductor, Item: notifier.ItemTempo}, true

	case msg.IsTimeSig():
		s.TimeSigNumerator = msg.TimeSigNumerator()
		s.TimeSigDenominator = msg.TimeSigDenominator()
		return notifier.Event{Group: notifier.GroupConductor, Item: notifier.ItemTimeSig}, true

	case msg.IsKeySig():
		s.KeySigSharpsFlats = msg.KeySigSharpsFlats()
		s.KeySigMode = msg.KeySigMode()
		return notifier.Event{Group: notifier.GroupConductor, Item: notifier.ItemKeySig}, true

	case msg.IsTrackName():
		ts := s.Track(trackIndex)
		if ts.Name == "" {
			ts.Name = msg.Text()
		}
		return notifier.Event{Group: notifier.GroupTrack, Subgroup: trackIndex, Item: notifier.ItemTrackName}, true

	case msg.IsMarkerText():
		s.Marker = msg.Text()
		return notifier.Event{Group: notifier.GroupConductor, Item: notifier.ItemMarker}, true

	default:
		return notifier.Event{}, false
	}
}

func controllerNotifyItem(controller byte) notifier.Item {
	switch controller {
	case 7:
		return notifier.ItemTrackVolume
	case 10:
		return notifier.ItemTrackPan
	case 91:
		return notifier.ItemTrackReverb
	case 93:
		return notifier.ItemTrackChorus
	default:
		return notifier.ItemTrackVolume
	}
}

// GoToTime replays mt from song origin through every event with time <=
// t, applying each to a freshly reset state, then emits a single
// GROUP_ALL notifier event instead of one per change (§4.6.2).
func (s *State) GoToTime(mt *midi.MultiTrack, t midi.ClockTime) {
	s.Reset()
	it := midi.NewMultiTrackIterator(mt)
	for {
		trackIdx, e, ok := it.CurEvent()
		if !ok || e.Time > t {
			break
		}
		s.apply(trackIdx, e.Message)
		it.Advance()
	}
	for s.NextBeatTime <= t {
		s.advanceBeatSilently()
	}
	if s.notifier != nil {
		s.notifier.Notify(notifier.Event{Group: notifier.GroupAll})
	}
}

// AdvanceBeat rolls the beat/measure counters forward by one beat and
// notifies GROUP_TRANSPORT BEAT (and MEASURE on a rollover).
func (s *State) AdvanceBeat() {
	s.advanceBeatSilently()
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(notifier.Event{Group: notifier.GroupTransport, Item: notifier.ItemBeat})
	if s.CurBeat == 0 {
		s.notifier.Notify(notifier.Event{Group: notifier.GroupTransport, Item: notifier.ItemMeasure})
	}
}

func (s *State) advanceBeatSilently() {
	beatsPerMeasure := int(s.TimeSigNumerator)
	if beatsPerMeasure <= 0 {
		beatsPerMeasure = 4
	}
	s.NextBeatTime += s.BeatLength()
	s.CurBeat++
	if s.CurBeat >= beatsPerMeasure {
		s.CurBeat = 0
		s.CurMeasure++
	}
}
