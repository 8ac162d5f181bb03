package midi

// CloseOpenEvents implements §4.2.5: at tick t, terminate any note
// sounding across t, any sustain pedal held across t, and any non-zero
// pitch bend in effect at t, so that nothing is left dangling across the
// boundary. Events already sitting exactly at t are left untouched (the
// reading codified by the most recent revision of the source library).
func (tr *Track) CloseOpenEvents(t ClockTime) {
	tr.closeOpenNotes(t)
	tr.closeOpenPedals(t)
	tr.closeOpenBends(t)
}

type noteKey struct {
	channel byte
	note    byte
}

func (tr *Track) closeOpenNotes(t ClockTime) {
	active := map[noteKey]int{}
	for _, e := range tr.events {
		if e.Time >= t {
			break
		}
		if e.IsNoteOn() {
			active[noteKey{e.Channel(), e.Data1}]++
		} else if e.IsNoteOff() {
			k := noteKey{e.Channel(), e.Data1}
			if active[k] > 0 {
				active[k]--
			}
		}
	}
	for k, count := range active {
		for i := 0; i < count; i++ {
			tr.closeOneNote(k.channel, k.note, t)
		}
	}
}

func (tr *Track) closeOneNote(channel, note byte, t ClockTime) {
	idx := tr.findAfter(t, func(e TimedMessage) bool {
		return e.IsNoteOff() && e.Channel() == channel && e.Data1 == note
	})
	if idx < 0 || tr.events[idx].Time == t {
		return
	}
	tr.removeAt(idx)
	off := TimedMessage{Message: NewNoteOffMode(channel, note, 0, DefaultNoteOffMode), Time: t}
	tr.insertAt(tr.insertionIndex(off), off)
}

func (tr *Track) closeOpenPedals(t ClockTime) {
	var held [16]bool
	for _, e := range tr.events {
		if e.Time >= t {
			break
		}
		if e.IsSustainPedal() {
			held[e.Channel()] = e.Data2 >= 64
		}
	}
	for ch := byte(0); ch < 16; ch++ {
		if !held[ch] {
			continue
		}
		idx := tr.findAfter(t, func(e TimedMessage) bool {
			return e.IsSustainPedal() && e.Channel() == ch && e.Data2 < 64
		})
		if idx < 0 || tr.events[idx].Time == t {
			continue
		}
		tr.removeAt(idx)
		off := TimedMessage{Message: NewControlChange(ch, 64, 0), Time: t}
		tr.insertAt(tr.insertionIndex(off), off)
	}
}

func (tr *Track) closeOpenBends(t ClockTime) {
	var bend [16]int
	for _, e := range tr.events {
		if e.Time >= t {
			break
		}
		if e.IsPitchBend() {
			bend[e.Channel()] = e.BenderValue()
		}
	}
	for ch := byte(0); ch < 16; ch++ {
		if bend[ch] == 0 {
			continue
		}
		tr.clearBendsUntilZero(ch, t)
	}
}

func (tr *Track) clearBendsUntilZero(channel byte, t ClockTime) {
	idx, _ := tr.findTimeIndex(t)
	for idx < len(tr.events) {
		e := tr.events[idx]
		if e.Time == t {
			break
		}
		if e.IsPitchBend() && e.Channel() == channel {
			wasZero := e.BenderValue() == 0
			tr.removeAt(idx)
			if wasZero {
				break
			}
			continue
		}
		idx++
	}
	bend := TimedMessage{Message: NewPitchBend(channel, 0), Time: t}
	tr.insertAt(tr.insertionIndex(bend), bend)
}

// findAfter returns the index of the first event with time > t matching
// pred, or -1.
func (tr *Track) findAfter(t ClockTime, pred func(TimedMessage) bool) int {
	idx, exact := tr.findTimeIndex(t)
	if exact {
		idx++
	}
	for ; idx < len(tr.events); idx++ {
		if pred(tr.events[idx]) {
			return idx
		}
	}
	return -1
}

func isCloseArtifact(e TimedMessage) bool {
	return e.IsNoteOff() ||
		(e.IsSustainPedal() && e.Data2 < 64) ||
		(e.IsPitchBend() && e.BenderValue() == 0)
}

func isOpenArtifact(e TimedMessage) bool {
	return e.IsNoteOn() ||
		(e.IsSustainPedal() && e.Data2 >= 64) ||
		(e.IsPitchBend() && e.BenderValue() != 0)
}

// Clone returns a deep copy of the track.
func (tr *Track) Clone() *Track {
	out := &Track{events: make([]TimedMessage, len(tr.events))}
	for i, e := range tr.events {
		out.events[i] = TimedMessage{Message: cloneMessage(e.Message), Time: e.Time}
	}
	return out
}

func cloneMessage(m Message) Message {
	if m.SysEx == nil {
		return m
	}
	cp := make([]byte, len(m.SysEx))
	copy(cp, m.SysEx)
	m.SysEx = cp
	return m
}

// InsertInterval implements §4.2.4: closes open events at start, shifts
// every event with time >= start by +length, then overlays a translated
// copy of src (if non-nil) at start.
func (tr *Track) InsertInterval(start, length ClockTime, src *Track) {
	tr.CloseOpenEvents(start)
	for i := range tr.events {
		if tr.events[i].Time >= start {
			tr.events[i].Time += length
		}
	}
	tr.overlay(src, start)
	tr.CloseOpenEvents(start + length)
}

// overlay inserts a copy of src's musical events (excluding its
// End-of-Track) translated by +origin.
func (tr *Track) overlay(src *Track, origin ClockTime) {
	if src == nil {
		return
	}
	for i := 0; i < src.Len()-1; i++ {
		e := src.Event(i)
		translated := TimedMessage{Message: cloneMessage(e.Message), Time: e.Time + origin}
		tr.InsertEventMode(translated, InsertAlways)
	}
}

// MakeInterval deep-copies events in [start, end) into a new track
// translated to origin 0, excluding zero-length close/open artifacts
// exactly at the boundaries.
func (tr *Track) MakeInterval(start, end ClockTime) *Track {
	working := tr.Clone()
	working.CloseOpenEvents(start)
	working.CloseOpenEvents(end)

	var out []TimedMessage
	for i := 0; i < working.Len()-1; i++ {
		e := working.Event(i)
		if e.Time < start || e.Time >= end {
			continue
		}
		if e.Time == start && isCloseArtifact(e) {
			continue
		}
		if e.Time == end && isOpenArtifact(e) {
			continue
		}
		out = append(out, TimedMessage{Message: cloneMessage(e.Message), Time: e.Time - start})
	}
	out = append(out, TimedMessage{Message: NewEndOfTrack(), Time: end - start})
	return &Track{events: out}
}

// ClearInterval implements §4.2.4: closes open events at both
// boundaries, then erases [start, end): all strictly interior events,
// any Note-On/Pedal-On/Pitch-Bend exactly at start (its content belongs
// to the interval being cleared), and any Note-Off/Pedal-Off/Pitch-Bend-
// zero exactly at end (the synthetic closes produced by the boundary
// CloseOpenEvents, whose matching opens were inside the interval). Events
// at start that close material from before the interval, and events at
// end that open material after it, are left in place.
func (tr *Track) ClearInterval(start, end ClockTime) {
	tr.CloseOpenEvents(start)
	tr.CloseOpenEvents(end)

	kept := tr.events[:0:0]
	for _, e := range tr.events {
		if e.Time > start && e.Time < end {
			continue
		}
		if e.Time == start && isOpenArtifact(e) {
			continue
		}
		if e.Time == end && isCloseArtifact(e) {
			continue
		}
		kept = append(kept, e)
	}
	tr.events = kept
}

// DeleteInterval clears [start, end) and shifts later events back by
// end-start.
func (tr *Track) DeleteInterval(start, end ClockTime) {
	tr.ClearInterval(start, end)
	length := end.SubTime(start)
	for i := range tr.events {
		if tr.events[i].Time >= end {
			tr.events[i].Time -= length
		}
	}
}

// ReplaceInterval clears [start, start+length), overlays a translated
// copy of src, then closes open events at the far boundary.
func (tr *Track) ReplaceInterval(start, length ClockTime, src *Track) {
	end := start + length
	tr.ClearInterval(start, end)
	tr.overlay(src, start)
	tr.CloseOpenEvents(end)
}
