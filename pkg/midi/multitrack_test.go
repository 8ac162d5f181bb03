package midi

import "testing"

func TestNewMultiTrackDefaults(t *testing.T) {
	mt := NewMultiTrack(0)
	if mt.ClocksPerBeat() != DefaultClocksPerBeat {
		t.Errorf("expected default clocks per beat %d, got %d", DefaultClocksPerBeat, mt.ClocksPerBeat())
	}
	if mt.NumTracks() != 1 {
		t.Errorf("expected 1 track, got %d", mt.NumTracks())
	}
}

func TestInsertDeleteMoveTrack(t *testing.T) {
	mt := NewMultiTrack(480)
	if err := mt.InsertTrack(1); err != nil {
		t.Fatal(err)
	}
	if err := mt.InsertTrack(1); err != nil {
		t.Fatal(err)
	}
	if mt.NumTracks() != 3 {
		t.Fatalf("expected 3 tracks, got %d", mt.NumTracks())
	}

	// tag track 2 so we can follow it through a move
	_ = mt.Track(2).InsertEvent(NewTimedMessage(NewTempo(140), 0))

	if err := mt.MoveTrack(2, 0); err != nil {
		t.Fatal(err)
	}
	if !mt.Track(0).Event(0).IsTempo() {
		t.Fatalf("expected tagged track to move to index 0, got %v", mt.Track(0).Event(0))
	}

	if err := mt.DeleteTrack(0); err != nil {
		t.Fatal(err)
	}
	if mt.NumTracks() != 2 {
		t.Fatalf("expected 2 tracks after delete, got %d", mt.NumTracks())
	}

	if err := mt.DeleteTrack(5); err != ErrTrackIndexOutOfRange {
		t.Fatalf("expected ErrTrackIndexOutOfRange, got %v", err)
	}
}

func buildTwoTrackSong() *MultiTrack {
	mt := NewMultiTrack(480)
	_ = mt.InsertTrack(1)
	_ = mt.Track(0).InsertEvent(NewTimedMessage(NewTempo(120), 0))
	_ = mt.Track(1).InsertNote(NewTimedMessage(NewNoteOn(0, 60, 100), 0), 480, InsertAlways)
	_ = mt.Track(1).InsertNote(NewTimedMessage(NewNoteOn(0, 62, 100), 480), 480, InsertAlways)
	return mt
}

func TestEditCopyCutClear(t *testing.T) {
	mt := buildTwoTrackSong()

	copied, err := mt.EditCopy(0, 480, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	// the note's off sits exactly at the end boundary (480), outside the
	// half-open interval [0,480), so MakeInterval excludes it: only the on
	// survives (plus End-of-Track).
	if copied.NumTracks() != 1 || copied.Track(0).Len() != 2 {
		t.Fatalf("unexpected copy result: tracks=%d len=%d", copied.NumTracks(), copied.Track(0).Len())
	}

	before := mt.Track(1).EndTime()
	cut, err := mt.EditCut(0, 480, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if cut.Track(0).Len() != 2 {
		t.Fatalf("expected cut to carry the removed note, got len %d", cut.Track(0).Len())
	}
	if mt.Track(1).EndTime() != before-480 {
		t.Fatalf("expected cut track shortened by 480, got %d (was %d)", mt.Track(1).EndTime(), before)
	}
}

func TestEditInsertShiftsTargetRange(t *testing.T) {
	mt := buildTwoTrackSong()
	before := mt.Track(1).EndTime()
	if err := mt.EditInsert(240, 960, 1, 1, nil); err != nil {
		t.Fatal(err)
	}
	if mt.Track(1).EndTime() != before+960 {
		t.Fatalf("expected track 1 end time shifted by 960, got %d (was %d)", mt.Track(1).EndTime(), before)
	}
	if mt.Track(0).EndTime() != 0 {
		t.Fatalf("expected track 0 untouched, got end time %d", mt.Track(0).EndTime())
	}
}
