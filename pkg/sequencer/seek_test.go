package sequencer

import (
	"testing"

	"github.com/nicmidi-go/midiseq/pkg/midi"
)

func buildMeasureSong(numMeasures int) *midi.MultiTrack {
	mt := midi.NewMultiTrack(120) // 120 ticks/beat, 4/4 implied (480 ticks/measure)
	tr := mt.Track(0)
	for m := 0; m < numMeasures; m++ {
		t := midi.ClockTime(m * 480)
		_ = tr.InsertNote(midi.NewTimedMessage(midi.NewNoteOn(0, byte(60+m%12), 100), t), 60, midi.InsertAlways)
	}
	return mt
}

func TestGoToMeasureSeeksToMeasureBoundary(t *testing.T) {
	mt := buildMeasureSong(20)
	e := NewEngine(mt, nil)

	e.GoToMeasure(5, 0, 0)
	if e.State().CurMeasure != 5 {
		t.Errorf("expected to land on measure 5, got %d", e.State().CurMeasure)
	}
}

func TestWarpPositionsAreCachedEveryFourMeasures(t *testing.T) {
	mt := buildMeasureSong(20)
	e := NewEngine(mt, nil)

	e.mu.Lock()
	e.ensureWarpsBuiltLocked()
	n := len(e.warps)
	e.mu.Unlock()

	if n == 0 {
		t.Fatal("expected at least one warp snapshot")
	}
	for _, w := range e.warps {
		if w.state.CurMeasure%DefaultWarpEveryMeasures != 0 {
			t.Errorf("expected every cached snapshot at a multiple of %d measures, got %d", DefaultWarpEveryMeasures, w.state.CurMeasure)
		}
	}
}

func TestGoToTimeUsesNearestWarpBeforeTarget(t *testing.T) {
	mt := buildMeasureSong(20)
	e := NewEngine(mt, nil)

	// Seek far into the song; regardless of warp caching the resulting
	// state must match a from-scratch state.GoToTime to the same tick.
	target := midi.ClockTime(15 * 480)
	e.GoToTime(target, 0)

	want := NewState(mt.NumTracks(), mt.ClocksPerBeat(), nil)
	want.GoToTime(mt, target)

	if e.State().CurMeasure != want.CurMeasure || e.State().CurBeat != want.CurBeat {
		t.Errorf("warp-accelerated seek landed at measure=%d beat=%d, want measure=%d beat=%d",
			e.State().CurMeasure, e.State().CurBeat, want.CurMeasure, want.CurBeat)
	}
}
