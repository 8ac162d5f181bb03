package sequencer

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nicmidi-go/midiseq/pkg/midi"
)

// buildTempoSong builds a one-track song with a tempo change at every
// multiple of 100 ticks from a list of bpm values.
func buildTempoSong(bpms []uint16) *midi.MultiTrack {
	mt := midi.NewMultiTrack(120)
	tr := mt.Track(0)
	for i, bpm := range bpms {
		v := float64(bpm%200) + 40 // keep bpm in a sane, nonzero range
		_ = tr.InsertEvent(midi.NewTimedMessage(midi.NewTempo(v), midi.ClockTime(i*100)))
	}
	return mt
}

// TestStateReplayDeterminism implements spec property 6: replaying the
// same MultiTrack to the same tick twice (tempo_scale is an engine-level
// concept that never touches state.GoToTime) yields byte-equal
// TempoBPM, time-signature numerator, beat and measure both times.
func TestStateReplayDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("GoToTime is deterministic across repeated calls", prop.ForAll(
		func(bpms []uint16, tick uint16) bool {
			if len(bpms) == 0 {
				return true
			}
			mt := buildTempoSong(bpms)

			s1 := NewState(mt.NumTracks(), mt.ClocksPerBeat(), nil)
			s1.GoToTime(mt, midi.ClockTime(tick))

			s2 := NewState(mt.NumTracks(), mt.ClocksPerBeat(), nil)
			s2.GoToTime(mt, midi.ClockTime(tick))

			return s1.TempoBPM == s2.TempoBPM &&
				s1.TimeSigNumerator == s2.TimeSigNumerator &&
				s1.CurBeat == s2.CurBeat &&
				s1.CurMeasure == s2.CurMeasure
		},
		gen.SliceOf(gen.UInt16Range(0, 199)),
		gen.UInt16Range(0, 2000),
	))

	properties.TestingRun(t)
}
