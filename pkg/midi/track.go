package midi

import "errors"

// Errors returned by Track's invariant-preserving operations. Operations
// that violate an invariant return one of these directly (unwrapped)
// rather than panicking or silently mutating.
var (
	ErrInsertEndOfTrack       = errors.New("midi: cannot insert an End-of-Track event directly")
	ErrDeleteEndOfTrack       = errors.New("midi: cannot delete the End-of-Track event")
	ErrNoSameKindEvent        = errors.New("midi: no event of the same kind at that time to replace")
	ErrEndTimeBeforeLastEvent = errors.New("midi: end time precedes the last musical event")
	ErrEventNotFound          = errors.New("midi: event not found")
	ErrInvalidEventIndex      = errors.New("midi: invalid event index")
)

// InsertMode selects the collision policy used by InsertEvent and
// InsertNote when an event of the same kind already exists at the target
// time.
type InsertMode int

const (
	// InsertAlways always adds the new event, duplicating if needed.
	InsertAlways InsertMode = iota
	// InsertReplace replaces an existing same-kind event; fails if none
	// exists.
	InsertReplace
	// InsertOrReplace replaces if a same-kind event exists, else inserts.
	InsertOrReplace
	// InsertOrReplaceButNote behaves like InsertOrReplace, except notes
	// are always added rather than replaced.
	InsertOrReplaceButNote
)

// DefaultInsertMode is the process-wide default insertion policy. Track's
// insert methods take their mode as an argument and do not read it;
// callers pass it explicitly when they want the default.
var DefaultInsertMode = InsertAlways

// FindMode selects how FindEventNumber matches among events that share a
// target time.
type FindMode int

const (
	// FindEqual requires bitwise equality (Message.Equal).
	FindEqual FindMode = iota
	// FindSameKind requires IsSameKind.
	FindSameKind
	// FindTime matches the first event at the target time, regardless of
	// content.
	FindTime
)

// Track is an ordered sequence of TimedMessage. Event times are
// non-decreasing; ties are ordered by compareForInsert. The last event is
// always an End-of-Track meta event.
type Track struct {
	events []TimedMessage
}

// NewTrack returns an empty track whose End-of-Track sits at endTime.
func NewTrack(endTime ClockTime) *Track {
	return &Track{events: []TimedMessage{{Message: NewEndOfTrack(), Time: endTime}}}
}

// NewTrackFromEvents builds a track directly from a pre-sorted,
// End-of-Track-terminated event list, trusting the caller's ordering.
// Used by the SMF loader, which has already decoded events in
// non-decreasing time order.
func NewTrackFromEvents(events []TimedMessage) *Track {
	return &Track{events: events}
}

// Len returns the number of events, including End-of-Track.
func (tr *Track) Len() int { return len(tr.events) }

// Event returns the event at index i.
func (tr *Track) Event(i int) TimedMessage { return tr.events[i] }

// Events returns a copy of all events in the track.
func (tr *Track) Events() []TimedMessage {
	out := make([]TimedMessage, len(tr.events))
	copy(out, tr.events)
	return out
}

// EndTime returns the time of the End-of-Track event.
func (tr *Track) EndTime() ClockTime { return tr.events[len(tr.events)-1].Time }

// compareForInsert implements §4.2.2: returns 0 (indifferent), 1 (a
// before b), or 2 (b before a).
func compareForInsert(a, b TimedMessage) int {
	aNoOp, bNoOp := a.IsNoOp(), b.IsNoOp()
	if aNoOp && bNoOp {
		return 0
	}
	if aNoOp {
		return 2
	}
	if bNoOp {
		return 1
	}

	if a.Time != b.Time {
		if a.Time < b.Time {
			return 1
		}
		return 2
	}

	aEOT, bEOT := a.IsEndOfTrack(), b.IsEndOfTrack()
	if aEOT && bEOT {
		return 0
	}
	if aEOT {
		return 2
	}
	if bEOT {
		return 1
	}

	rank := func(m TimedMessage) int {
		switch {
		case m.IsMeta():
			return 0
		case m.IsSysEx():
			return 2
		default:
			return 1 // channel messages and other system messages
		}
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return 1
		}
		return 2
	}
	if ra != 1 {
		return 0
	}

	aChan, bChan := a.IsChannelMessage(), b.IsChannelMessage()
	if !aChan || !bChan {
		return 0
	}
	if a.Channel() != b.Channel() {
		if a.Channel() < b.Channel() {
			return 1
		}
		return 2
	}

	aNote, bNote := a.IsNoteOnOrOff(), b.IsNoteOnOrOff()
	if aNote != bNote {
		if bNote {
			return 1
		}
		return 2
	}
	if aNote && bNote {
		aOff, bOff := a.IsNoteOff(), b.IsNoteOff()
		if aOff != bOff {
			if aOff {
				return 1
			}
			return 2
		}
	}
	return 0
}

// findTimeIndex returns the index of the first event with time >= t, and
// whether an event at exactly t exists.
func (tr *Track) findTimeIndex(t ClockTime) (int, bool) {
	lo, hi := 0, len(tr.events)
	for lo < hi {
		mid := (lo + hi) / 2
		if tr.events[mid].Time < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(tr.events) && tr.events[lo].Time == t
}

// FindEventNumber returns the index of the first event at or after
// msg.Time, and whether an event matching mode was found at msg.Time
// exactly (the deferred-detection search: on a miss, the returned index is
// still the correct insertion point).
func (tr *Track) FindEventNumber(msg TimedMessage, mode FindMode) (int, bool) {
	idx, _ := tr.findTimeIndex(msg.Time)
	for i := idx; i < len(tr.events) && tr.events[i].Time == msg.Time; i++ {
		switch mode {
		case FindEqual:
			if tr.events[i].Equal(msg.Message) {
				return i, true
			}
		case FindSameKind:
			if IsSameKind(tr.events[i].Message, msg.Message) {
				return i, true
			}
		case FindTime:
			return i, true
		}
	}
	return idx, false
}

// FindTimeExact returns the index of the first event at or after t, and
// whether an event at exactly t exists.
func (tr *Track) FindTimeExact(t ClockTime) (int, bool) {
	return tr.findTimeIndex(t)
}

func (tr *Track) insertionIndex(msg TimedMessage) int {
	i, _ := tr.findTimeIndex(msg.Time)
	for i < len(tr.events) && tr.events[i].Time == msg.Time {
		if compareForInsert(tr.events[i], msg) == 2 {
			break
		}
		i++
	}
	return i
}

func (tr *Track) insertAt(i int, msg TimedMessage) {
	tr.events = append(tr.events, TimedMessage{})
	copy(tr.events[i+1:], tr.events[i:])
	tr.events[i] = msg
}

func (tr *Track) removeAt(i int) {
	tr.events = append(tr.events[:i], tr.events[i+1:]...)
}

// PushEvent appends msg without the insertion-order check. Used by the
// SMF loader, which already feeds events in non-decreasing time order.
func (tr *Track) PushEvent(msg TimedMessage) {
	tr.events = append(tr.events, msg)
}

// InsertEvent inserts msg according to DefaultInsertMode. It refuses to
// insert an End-of-Track event directly.
func (tr *Track) InsertEvent(msg TimedMessage) error {
	return tr.InsertEventMode(msg, DefaultInsertMode)
}

// InsertEventMode inserts msg according to an explicit mode.
func (tr *Track) InsertEventMode(msg TimedMessage, mode InsertMode) error {
	if msg.IsEndOfTrack() {
		return ErrInsertEndOfTrack
	}

	if mode != InsertAlways {
		if idx, found := tr.FindEventNumber(msg, FindSameKind); found {
			isNote := msg.IsNoteOnOrOff()
			if mode == InsertOrReplaceButNote && isNote {
				// fall through to plain insertion below
			} else {
				tr.events[idx] = msg
				if msg.Time > tr.EndTime() {
					tr.events[len(tr.events)-1].Time = msg.Time
				}
				return nil
			}
		} else if mode == InsertReplace {
			return ErrNoSameKindEvent
		}
	}

	// advance End-of-Track first so msg is placed before it
	if msg.Time > tr.EndTime() {
		tr.events[len(tr.events)-1].Time = msg.Time
	}
	i := tr.insertionIndex(msg)
	tr.insertAt(i, msg)
	return nil
}

// InsertNote inserts a paired Note-On (on) and Note-Off at
// on.Time+length, per mode. In InsertReplace and
// InsertOrReplace modes, any existing Note-On of the same channel/note
// and its matching Note-Off are removed first.
func (tr *Track) InsertNote(on TimedMessage, length ClockTime, mode InsertMode) error {
	if !on.IsNoteOn() {
		return errors.New("midi: InsertNote requires a Note-On message")
	}
	if mode == InsertReplace || mode == InsertOrReplace {
		if idx, found := tr.FindEventNumber(on, FindSameKind); found {
			oldOn := tr.events[idx]
			tr.removeAt(idx)
			tr.deleteMatchingNoteOff(oldOn, idx)
		} else if mode == InsertReplace {
			return ErrNoSameKindEvent
		}
	}

	if err := tr.InsertEventMode(on, InsertAlways); err != nil {
		return err
	}
	off := TimedMessage{Message: NewNoteOffMode(on.Channel(), on.Data1, 0, DefaultNoteOffMode), Time: on.Time + length}
	return tr.InsertEventMode(off, InsertAlways)
}

// deleteMatchingNoteOff removes the first Note-Off for on's channel/note
// at or after searchFrom.
func (tr *Track) deleteMatchingNoteOff(on TimedMessage, searchFrom int) {
	for i := searchFrom; i < len(tr.events); i++ {
		e := tr.events[i]
		if e.IsNoteOff() && e.Channel() == on.Channel() && e.Data1 == on.Data1 {
			tr.removeAt(i)
			return
		}
	}
}

// DeleteEvent deletes the exact match of msg (including payload
// equality). Refuses to delete End-of-Track.
func (tr *Track) DeleteEvent(msg TimedMessage) error {
	if msg.IsEndOfTrack() {
		return ErrDeleteEndOfTrack
	}
	idx, found := tr.FindEventNumber(msg, FindEqual)
	if !found {
		return ErrEventNotFound
	}
	tr.removeAt(idx)
	return nil
}

// DeleteNote deletes a Note-On and its paired Note-Off.
func (tr *Track) DeleteNote(on TimedMessage) error {
	idx, found := tr.FindEventNumber(on, FindSameKind)
	if !found {
		return ErrEventNotFound
	}
	found1 := tr.events[idx]
	tr.removeAt(idx)
	tr.deleteMatchingNoteOff(found1, idx)
	return nil
}

// NoteLength returns the tick distance to on's matching Note-Off, or
// TimeInfinite if there is none.
func (tr *Track) NoteLength(on TimedMessage) ClockTime {
	idx, found := tr.FindEventNumber(on, FindSameKind)
	if !found {
		return TimeInfinite
	}
	for i := idx; i < len(tr.events); i++ {
		e := tr.events[i]
		if e.IsNoteOff() && e.Channel() == on.Channel() && e.Data1 == on.Data1 {
			return e.Time.SubTime(tr.events[idx].Time)
		}
	}
	return TimeInfinite
}

// SetEndTime moves the End-of-Track event to t. Rejects if any
// non-End-of-Track event exists past t.
func (tr *Track) SetEndTime(t ClockTime) error {
	n := len(tr.events)
	if n >= 2 && tr.events[n-2].Time > t {
		return ErrEndTimeBeforeLastEvent
	}
	tr.events[n-1].Time = t
	return nil
}

// ShrinkEndTime pulls the End-of-Track event to the time of the last
// musical event.
func (tr *Track) ShrinkEndTime() {
	n := len(tr.events)
	if n < 2 {
		tr.events[n-1].Time = 0
		return
	}
	tr.events[n-1].Time = tr.events[n-2].Time
}

// SetChannel rewrites the channel nibble of every channel event.
func (tr *Track) SetChannel(channel byte) {
	for i := range tr.events {
		if tr.events[i].IsChannelMessage() {
			tr.events[i].Status = (tr.events[i].Status & 0xF0) | (channel & 0x0F)
		}
	}
}
