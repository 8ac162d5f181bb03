package midi

// MultiTrackIterator merges N pre-sorted track event streams into a
// single non-decreasing time order, ties broken by ascending track
// index. Selection is O(N) per step; small N (a handful to a few dozen
// tracks) makes a heap unnecessary.
type MultiTrackIterator struct {
	mt       *MultiTrack
	nextIdx  []int // per-track index of the next unvisited event
	curTrack int    // track index holding the minimum-time next event, or -1
}

// NewMultiTrackIterator returns an iterator positioned at time 0.
func NewMultiTrackIterator(mt *MultiTrack) *MultiTrackIterator {
	it := &MultiTrackIterator{mt: mt, nextIdx: make([]int, mt.NumTracks())}
	it.GoToTime(0)
	return it
}

// GoToTime resets every track's cursor to its first event with time >= t
// and recomputes the current event.
func (it *MultiTrackIterator) GoToTime(t ClockTime) {
	for i, tr := range it.mt.Tracks() {
		idx, _ := tr.FindTimeExact(t)
		it.nextIdx[i] = idx
	}
	it.selectMin()
}

func (it *MultiTrackIterator) selectMin() {
	it.curTrack = -1
	var min ClockTime
	for i, tr := range it.mt.Tracks() {
		if it.nextIdx[i] >= tr.Len() {
			continue
		}
		t := tr.Event(it.nextIdx[i]).Time
		if it.curTrack == -1 || t < min {
			min = t
			it.curTrack = i
		}
	}
}

// CurEventTime returns the time of the current event, and false if the
// iterator is exhausted.
func (it *MultiTrackIterator) CurEventTime() (ClockTime, bool) {
	if it.curTrack < 0 {
		return 0, false
	}
	return it.mt.Track(it.curTrack).Event(it.nextIdx[it.curTrack]).Time, true
}

// CurEvent returns the current track index and event, and false if the
// iterator is exhausted.
func (it *MultiTrackIterator) CurEvent() (int, TimedMessage, bool) {
	if it.curTrack < 0 {
		return 0, TimedMessage{}, false
	}
	return it.curTrack, it.mt.Track(it.curTrack).Event(it.nextIdx[it.curTrack]), true
}

// Advance consumes the current event and re-selects the minimum-time
// track. Returns false if the iterator was already exhausted.
func (it *MultiTrackIterator) Advance() bool {
	if it.curTrack < 0 {
		return false
	}
	it.nextIdx[it.curTrack]++
	it.selectMin()
	return true
}

// AdvanceOnTrack skips track i's cursor to its next event without
// touching any other track, then re-selects the minimum-time track.
// Returns false if track i was already exhausted.
func (it *MultiTrackIterator) AdvanceOnTrack(i int) bool {
	if it.nextIdx[i] >= it.mt.Track(i).Len() {
		return false
	}
	it.nextIdx[i]++
	it.selectMin()
	return true
}
