package smfcodec

import (
	"bytes"
	"testing"

	"github.com/nicmidi-go/midiseq/pkg/midi"
)

func buildSongForRoundTrip() *midi.MultiTrack {
	mt := midi.NewMultiTrack(120)
	_ = mt.InsertTrack(1)
	_ = mt.Track(0).InsertEvent(midi.NewTimedMessage(midi.NewTempo(120), 0))
	_ = mt.Track(1).InsertNote(midi.NewTimedMessage(midi.NewNoteOn(0, 60, 100), 0), 120, midi.InsertAlways)
	return mt
}

// TestScenarioS1InsertNoteRoundTrip implements spec scenario S1: insert
// a note on track 1, save format 1, reload, and expect exactly the two
// paired events back.
func TestScenarioS1InsertNoteRoundTrip(t *testing.T) {
	mt := buildSongForRoundTrip()

	var buf bytes.Buffer
	if err := Save(&buf, mt, Format1, false); err != nil {
		t.Fatal(err)
	}

	reloaded, format, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if format != Format1 {
		t.Fatalf("expected format 1, got %v", format)
	}
	if reloaded.NumTracks() != 2 {
		t.Fatalf("expected 2 tracks, got %d", reloaded.NumTracks())
	}

	track1 := reloaded.Track(1)
	if track1.Len() != 3 { // Note-On, Note-Off, End-of-Track
		t.Fatalf("expected 3 events on track 1, got %d: %v", track1.Len(), track1.Events())
	}
	on := track1.Event(0)
	if !on.IsNoteOn() || on.Channel() != 0 || on.Data1 != 60 || on.Time != 0 {
		t.Errorf("unexpected first event: %v", on)
	}
	off := track1.Event(1)
	if !off.IsNoteOff() || off.Channel() != 0 || off.Data1 != 60 || off.Time != 120 {
		t.Errorf("unexpected second event: %v", off)
	}
}

// TestScenarioS6Format0Split implements spec scenario S6: a format-0
// file with a tempo and a channel-2 Note-On splits tempo onto track 0
// and the note onto track 3 (1-based channel + 1).
func TestScenarioS6Format0Split(t *testing.T) {
	mt := midi.NewMultiTrack(120)
	tr := mt.Track(0)
	_ = tr.InsertEvent(midi.NewTimedMessage(midi.NewTempo(100), 0))
	_ = tr.InsertNote(midi.NewTimedMessage(midi.NewNoteOn(2, 64, 90), 0), 240, midi.InsertAlways)

	var buf bytes.Buffer
	if err := Save(&buf, mt, Format0, false); err != nil {
		t.Fatal(err)
	}

	loaded, format, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if format != Format0 {
		t.Fatalf("expected format 0, got %v", format)
	}
	if loaded.NumTracks() != 17 {
		t.Fatalf("expected 17 tracks (0 + 16 channels), got %d", loaded.NumTracks())
	}

	foundTempo := false
	for i := 0; i < loaded.Track(0).Len(); i++ {
		if loaded.Track(0).Event(i).IsTempo() {
			foundTempo = true
		}
	}
	if !foundTempo {
		t.Error("expected tempo on track 0")
	}

	foundNote := false
	for i := 0; i < loaded.Track(3).Len(); i++ {
		e := loaded.Track(3).Event(i)
		if e.IsNoteOn() && e.Channel() == 2 && e.Data1 == 64 {
			foundNote = true
		}
	}
	if !foundNote {
		t.Error("expected channel-2 Note-On on track 3")
	}
}

// TestRunningStatusRoundTrip implements spec property 9: a run of
// same-status channel events followed by a different-status event
// survives a write/read cycle unchanged.
func TestRunningStatusRoundTrip(t *testing.T) {
	mt := midi.NewMultiTrack(120)
	tr := mt.Track(0)
	_ = tr.InsertEvent(midi.NewTimedMessage(midi.NewNoteOn(0, 60, 100), 0))
	_ = tr.InsertEvent(midi.NewTimedMessage(midi.NewNoteOn(0, 64, 100), 0))
	_ = tr.InsertEvent(midi.NewTimedMessage(midi.NewControlChange(0, 7, 127), 10))
	_ = tr.SetEndTime(20)

	var buf bytes.Buffer
	if err := Save(&buf, mt, Format1, false); err != nil {
		t.Fatal(err)
	}
	reloaded, _, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}

	got := reloaded.Track(0)
	want := tr
	if got.Len() != want.Len() {
		t.Fatalf("expected %d events, got %d", want.Len(), got.Len())
	}
	for i := 0; i < want.Len(); i++ {
		if !got.Event(i).Equal(want.Event(i).Message) || got.Event(i).Time != want.Event(i).Time {
			t.Errorf("event %d mismatch: got %v, want %v", i, got.Event(i), want.Event(i))
		}
	}
}

func TestLoadRejectsTruncatedHeader(t *testing.T) {
	_, _, err := Load(bytes.NewReader([]byte{'M', 'T', 'h', 'd'}))
	if err == nil {
		t.Fatal("expected error on truncated header")
	}
}

func TestSaveRejectsFormat2(t *testing.T) {
	mt := midi.NewMultiTrack(120)
	if err := Save(&bytes.Buffer{}, mt, Format2, false); err != ErrFormat2NotWritten {
		t.Fatalf("expected ErrFormat2NotWritten, got %v", err)
	}
}
