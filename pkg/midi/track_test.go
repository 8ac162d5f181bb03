package midi

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func assertNonDecreasing(t *testing.T, tr *Track) {
	t.Helper()
	for i := 1; i < tr.Len(); i++ {
		if tr.Event(i).Time < tr.Event(i-1).Time {
			t.Fatalf("track not time-ordered at index %d: %v", i, tr.Events())
		}
	}
	if !tr.Event(tr.Len() - 1).IsEndOfTrack() {
		t.Fatalf("last event must be End-of-Track")
	}
}

func TestNewTrackStartsWithEndOfTrack(t *testing.T) {
	tr := NewTrack(960)
	if tr.Len() != 1 {
		t.Fatalf("expected 1 event, got %d", tr.Len())
	}
	if !tr.Event(0).IsEndOfTrack() || tr.EndTime() != 960 {
		t.Fatalf("expected End-of-Track at 960, got %v", tr.Event(0))
	}
}

func TestInsertEventCannotInsertEndOfTrack(t *testing.T) {
	tr := NewTrack(0)
	err := tr.InsertEvent(NewTimedMessage(NewEndOfTrack(), 10))
	if err != ErrInsertEndOfTrack {
		t.Fatalf("expected ErrInsertEndOfTrack, got %v", err)
	}
}

func TestInsertEventGrowsEndTime(t *testing.T) {
	tr := NewTrack(0)
	if err := tr.InsertEvent(NewTimedMessage(NewNoteOn(0, 60, 100), 100)); err != nil {
		t.Fatal(err)
	}
	if tr.EndTime() != 100 {
		t.Fatalf("expected end time 100, got %d", tr.EndTime())
	}
	assertNonDecreasing(t, tr)
}

func TestInsertEventOrdersMetaBeforeChannelBeforeSysEx(t *testing.T) {
	tr := NewTrack(200)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(tr.InsertEvent(NewTimedMessage(NewSysExFromData([]byte{1}), 50)))
	must(tr.InsertEvent(NewTimedMessage(NewNoteOn(0, 60, 100), 50)))
	must(tr.InsertEvent(NewTimedMessage(NewTempo(120), 50)))

	if !tr.Event(0).IsTempo() {
		t.Errorf("expected tempo first, got %v", tr.Event(0))
	}
	if !tr.Event(1).IsNoteOn() {
		t.Errorf("expected channel message second, got %v", tr.Event(1))
	}
	if !tr.Event(2).IsSysEx() {
		t.Errorf("expected SysEx third, got %v", tr.Event(2))
	}
	assertNonDecreasing(t, tr)
}

func TestInsertOrReplaceModes(t *testing.T) {
	tr := NewTrack(0)
	cc := NewTimedMessage(NewControlChange(0, 7, 100), 10)
	if err := tr.InsertEventMode(cc, InsertAlways); err != nil {
		t.Fatal(err)
	}

	replacement := NewTimedMessage(NewControlChange(0, 7, 50), 10)
	if err := tr.InsertEventMode(replacement, InsertReplace); err != nil {
		t.Fatal(err)
	}
	if tr.Len() != 2 { // replacement + End-of-Track
		t.Fatalf("expected replace not to grow track, got len %d", tr.Len())
	}
	if tr.Event(0).Data2 != 50 {
		t.Fatalf("expected replaced value 50, got %d", tr.Event(0).Data2)
	}

	missing := NewTimedMessage(NewControlChange(0, 10, 1), 10)
	if err := tr.InsertEventMode(missing, InsertReplace); err != ErrNoSameKindEvent {
		t.Fatalf("expected ErrNoSameKindEvent, got %v", err)
	}
}

func TestInsertOrReplaceButNoteAlwaysAddsNotes(t *testing.T) {
	tr := NewTrack(0)
	on1 := NewTimedMessage(NewNoteOn(0, 60, 100), 10)
	on2 := NewTimedMessage(NewNoteOn(0, 60, 90), 10)
	if err := tr.InsertEventMode(on1, InsertOrReplaceButNote); err != nil {
		t.Fatal(err)
	}
	if err := tr.InsertEventMode(on2, InsertOrReplaceButNote); err != nil {
		t.Fatal(err)
	}
	if tr.Len() != 3 {
		t.Fatalf("expected both notes kept, got len %d", tr.Len())
	}
}

func TestInsertNoteCreatesPairedNoteOff(t *testing.T) {
	tr := NewTrack(0)
	on := NewTimedMessage(NewNoteOn(0, 60, 100), 0)
	if err := tr.InsertNote(on, 480, DefaultInsertMode); err != nil {
		t.Fatal(err)
	}
	if got := tr.NoteLength(on); got != 480 {
		t.Fatalf("expected note length 480, got %d", got)
	}
	assertNonDecreasing(t, tr)
}

func TestDeleteNoteRemovesBothEvents(t *testing.T) {
	tr := NewTrack(0)
	on := NewTimedMessage(NewNoteOn(1, 64, 100), 0)
	if err := tr.InsertNote(on, 100, DefaultInsertMode); err != nil {
		t.Fatal(err)
	}
	if err := tr.DeleteNote(on); err != nil {
		t.Fatal(err)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected only End-of-Track left, got len %d", tr.Len())
	}
}

func TestSetEndTimeRejectsTruncation(t *testing.T) {
	tr := NewTrack(0)
	if err := tr.InsertEvent(NewTimedMessage(NewNoteOn(0, 60, 100), 500)); err != nil {
		t.Fatal(err)
	}
	if err := tr.SetEndTime(100); err != ErrEndTimeBeforeLastEvent {
		t.Fatalf("expected ErrEndTimeBeforeLastEvent, got %v", err)
	}
	if err := tr.SetEndTime(1000); err != nil {
		t.Fatal(err)
	}
	if tr.EndTime() != 1000 {
		t.Fatalf("expected end time 1000, got %d", tr.EndTime())
	}
}

func TestCloseOpenEventsTerminatesSoundingNote(t *testing.T) {
	tr := NewTrack(0)
	on := NewTimedMessage(NewNoteOn(0, 60, 100), 0)
	if err := tr.InsertNote(on, 400, DefaultInsertMode); err != nil {
		t.Fatal(err)
	}
	tr.CloseOpenEvents(200)

	found := false
	for i := 0; i < tr.Len(); i++ {
		e := tr.Event(i)
		if e.IsNoteOff() && e.Time == 200 {
			found = true
		}
		if e.IsNoteOff() && e.Time == 400 {
			t.Fatalf("original note-off at 400 should have been moved")
		}
	}
	if !found {
		t.Fatal("expected a note-off inserted at 200")
	}
	assertNonDecreasing(t, tr)
}

func TestCloseOpenEventsLeavesExactBoundaryUntouched(t *testing.T) {
	tr := NewTrack(0)
	on := NewTimedMessage(NewNoteOn(0, 60, 100), 0)
	if err := tr.InsertNote(on, 200, DefaultInsertMode); err != nil {
		t.Fatal(err)
	}
	before := tr.Events()
	tr.CloseOpenEvents(200)
	after := tr.Events()
	if len(before) != len(after) {
		t.Fatalf("closing at an exact boundary should not change event count: before=%d after=%d", len(before), len(after))
	}
}

func buildScaleTrack() *Track {
	tr := NewTrack(0)
	for i, note := range []byte{60, 62, 64, 65, 67} {
		t := ClockTime(i * 100)
		on := NewTimedMessage(NewNoteOn(0, note, 100), t)
		_ = tr.InsertNote(on, 90, InsertAlways)
	}
	return tr
}

func TestMakeIntervalExtractsSubrange(t *testing.T) {
	tr := buildScaleTrack()
	extracted := tr.MakeInterval(100, 300)
	// two full notes at local time 0 and 100, each contributing on+off
	if extracted.Len() != 5 { // 2*(on+off) + End-of-Track
		t.Fatalf("expected 5 events, got %d: %v", extracted.Len(), extracted.Events())
	}
	assertNonDecreasing(t, extracted)
}

func TestInsertIntervalShiftsLaterEvents(t *testing.T) {
	tr := buildScaleTrack()
	originalEnd := tr.EndTime()
	tr.InsertInterval(150, 1000, nil)
	if tr.EndTime() != originalEnd+1000 {
		t.Fatalf("expected end time shifted by 1000, got %d (was %d)", tr.EndTime(), originalEnd)
	}
	assertNonDecreasing(t, tr)
}

func TestDeleteIntervalShrinksTrack(t *testing.T) {
	tr := buildScaleTrack()
	before := tr.EndTime()
	tr.DeleteInterval(100, 300)
	if tr.EndTime() != before-200 {
		t.Fatalf("expected end time reduced by 200, got %d (was %d)", tr.EndTime(), before)
	}
	assertNonDecreasing(t, tr)
}

func TestReplaceIntervalOverlaysTranslatedContent(t *testing.T) {
	tr := buildScaleTrack()
	replacement := NewTrack(50)
	_ = replacement.InsertNote(NewTimedMessage(NewNoteOn(0, 72, 127), 0), 40, InsertAlways)

	tr.ReplaceInterval(100, 200, replacement)
	found := false
	for i := 0; i < tr.Len(); i++ {
		e := tr.Event(i)
		if e.IsNoteOn() && e.Data1 == 72 && e.Time == 100 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected overlaid note at translated time 100")
	}
	assertNonDecreasing(t, tr)
}

func TestTrackTypeClassification(t *testing.T) {
	empty := NewTrack(0)
	if got, _ := empty.Type(); got != TrackEmpty {
		t.Errorf("expected TrackEmpty, got %v", got)
	}

	main := NewTrack(0)
	_ = main.InsertEvent(NewTimedMessage(NewTempo(120), 0))
	_ = main.InsertEvent(NewTimedMessage(NewTimeSig(4, 4, 24, 8), 0))
	if got, _ := main.Type(); got != TrackMain {
		t.Errorf("expected TrackMain, got %v", got)
	}

	chan0 := NewTrack(0)
	_ = chan0.InsertNote(NewTimedMessage(NewNoteOn(3, 60, 100), 0), 10, InsertAlways)
	if got, ch := chan0.Type(); got != TrackChan || ch != 3 {
		t.Errorf("expected TrackChan on channel 3, got %v ch=%d", got, ch)
	}

	mixed := NewTrack(0)
	_ = mixed.InsertNote(NewTimedMessage(NewNoteOn(1, 60, 100), 0), 10, InsertAlways)
	_ = mixed.InsertNote(NewTimedMessage(NewNoteOn(2, 61, 100), 0), 10, InsertAlways)
	if got, _ := mixed.Type(); got != TrackMixedChan {
		t.Errorf("expected TrackMixedChan, got %v", got)
	}
}

func TestTrackInsertionOrderInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("inserting notes at arbitrary times keeps the track ordered", prop.ForAll(
		func(times []uint16) bool {
			tr := NewTrack(0)
			for _, raw := range times {
				tm := ClockTime(raw)
				note := byte(raw%88 + 21)
				if err := tr.InsertNote(NewTimedMessage(NewNoteOn(0, note, 100), tm), 10, InsertAlways); err != nil {
					return false
				}
			}
			for i := 1; i < tr.Len(); i++ {
				if tr.Event(i).Time < tr.Event(i-1).Time {
					return false
				}
			}
			return tr.Event(tr.Len()-1).IsEndOfTrack()
		},
		gen.SliceOf(gen.UInt16Range(0, 2000)),
	))

	properties.TestingRun(t)
}
