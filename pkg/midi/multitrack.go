package midi

import "errors"

// DefaultClocksPerBeat is the ticks-per-quarter-note used when a
// MultiTrack is constructed without an explicit division.
const DefaultClocksPerBeat = 120

// Errors returned by MultiTrack's track-management operations.
var (
	ErrTrackIndexOutOfRange = errors.New("midi: track index out of range")
)

// MultiTrack owns an ordered sequence of tracks sharing a single
// ticks-per-beat. Track 0 is, by convention, the "master" track carrying
// tempo, time signature, key signature, and markers.
type MultiTrack struct {
	tracks        []*Track
	clocksPerBeat int
}

// NewMultiTrack returns a MultiTrack with a single empty track and the
// given ticks-per-beat division.
func NewMultiTrack(clocksPerBeat int) *MultiTrack {
	if clocksPerBeat <= 0 {
		clocksPerBeat = DefaultClocksPerBeat
	}
	return &MultiTrack{tracks: []*Track{NewTrack(0)}, clocksPerBeat: clocksPerBeat}
}

// NewMultiTrackFromTracks builds a MultiTrack directly from pre-built
// tracks, trusting the caller's ordering. Used by the SMF loader, which
// has already split and time-ordered events per track.
func NewMultiTrackFromTracks(clocksPerBeat int, tracks []*Track) *MultiTrack {
	if clocksPerBeat <= 0 {
		clocksPerBeat = DefaultClocksPerBeat
	}
	if len(tracks) == 0 {
		tracks = []*Track{NewTrack(0)}
	}
	return &MultiTrack{tracks: tracks, clocksPerBeat: clocksPerBeat}
}

// ClocksPerBeat returns the ticks-per-quarter-note division.
func (mt *MultiTrack) ClocksPerBeat() int { return mt.clocksPerBeat }

// SetClocksPerBeat overrides the division. Does not rescale existing
// event times.
func (mt *MultiTrack) SetClocksPerBeat(clocksPerBeat int) { mt.clocksPerBeat = clocksPerBeat }

// NumTracks returns the number of tracks.
func (mt *MultiTrack) NumTracks() int { return len(mt.tracks) }

// Track returns the track at index i.
func (mt *MultiTrack) Track(i int) *Track { return mt.tracks[i] }

// Tracks returns the underlying track slice. Callers must not retain it
// past a subsequent InsertTrack/DeleteTrack/MoveTrack call.
func (mt *MultiTrack) Tracks() []*Track { return mt.tracks }

// InsertTrack inserts a new empty track at index at, shifting later
// tracks up by one. at == NumTracks() appends.
func (mt *MultiTrack) InsertTrack(at int) error {
	if at < 0 || at > len(mt.tracks) {
		return ErrTrackIndexOutOfRange
	}
	mt.tracks = append(mt.tracks, nil)
	copy(mt.tracks[at+1:], mt.tracks[at:])
	mt.tracks[at] = NewTrack(0)
	return nil
}

// DeleteTrack removes the track at index idx.
func (mt *MultiTrack) DeleteTrack(idx int) error {
	if idx < 0 || idx >= len(mt.tracks) {
		return ErrTrackIndexOutOfRange
	}
	mt.tracks = append(mt.tracks[:idx], mt.tracks[idx+1:]...)
	return nil
}

// MoveTrack relocates the track at from to index to, shifting the
// tracks between them.
func (mt *MultiTrack) MoveTrack(from, to int) error {
	if from < 0 || from >= len(mt.tracks) || to < 0 || to >= len(mt.tracks) {
		return ErrTrackIndexOutOfRange
	}
	if from == to {
		return nil
	}
	tr := mt.tracks[from]
	mt.tracks = append(mt.tracks[:from], mt.tracks[from+1:]...)
	mt.tracks = append(mt.tracks, nil)
	copy(mt.tracks[to+1:], mt.tracks[to:])
	mt.tracks[to] = tr
	return nil
}

// trackRange normalizes [firstTrack, lastTrack] to valid bounds,
// treating a negative lastTrack as "through the last track".
func (mt *MultiTrack) trackRange(firstTrack, lastTrack int) (int, int, error) {
	if lastTrack < 0 || lastTrack >= len(mt.tracks) {
		lastTrack = len(mt.tracks) - 1
	}
	if firstTrack < 0 || firstTrack > lastTrack {
		return 0, 0, ErrTrackIndexOutOfRange
	}
	return firstTrack, lastTrack, nil
}

// EditCopy extracts the rectangle [start, end) x [firstTrack, lastTrack]
// into a fresh MultiTrack sharing this multitrack's division.
func (mt *MultiTrack) EditCopy(start, end ClockTime, firstTrack, lastTrack int) (*MultiTrack, error) {
	firstTrack, lastTrack, err := mt.trackRange(firstTrack, lastTrack)
	if err != nil {
		return nil, err
	}
	out := &MultiTrack{clocksPerBeat: mt.clocksPerBeat}
	for i := firstTrack; i <= lastTrack; i++ {
		out.tracks = append(out.tracks, mt.tracks[i].MakeInterval(start, end))
	}
	return out, nil
}

// EditCut extracts the rectangle like EditCopy, then removes it from mt
// via DeleteInterval.
func (mt *MultiTrack) EditCut(start, end ClockTime, firstTrack, lastTrack int) (*MultiTrack, error) {
	cut, err := mt.EditCopy(start, end, firstTrack, lastTrack)
	if err != nil {
		return nil, err
	}
	firstTrack, lastTrack, _ = mt.trackRange(firstTrack, lastTrack)
	for i := firstTrack; i <= lastTrack; i++ {
		mt.tracks[i].DeleteInterval(start, end)
	}
	return cut, nil
}

// EditClear erases the rectangle [start, end) x [firstTrack, lastTrack]
// in place, without shifting later events.
func (mt *MultiTrack) EditClear(start, end ClockTime, firstTrack, lastTrack int) error {
	firstTrack, lastTrack, err := mt.trackRange(firstTrack, lastTrack)
	if err != nil {
		return err
	}
	for i := firstTrack; i <= lastTrack; i++ {
		mt.tracks[i].ClearInterval(start, end)
	}
	return nil
}

// EditInsert makes room for length ticks starting at start on every
// track in [firstTrack, lastTrack], optionally overlaying src's
// corresponding track content (by relative track index).
func (mt *MultiTrack) EditInsert(start, length ClockTime, firstTrack, lastTrack int, src *MultiTrack) error {
	firstTrack, lastTrack, err := mt.trackRange(firstTrack, lastTrack)
	if err != nil {
		return err
	}
	for i := firstTrack; i <= lastTrack; i++ {
		var srcTrack *Track
		if src != nil {
			if rel := i - firstTrack; rel < src.NumTracks() {
				srcTrack = src.Track(rel)
			}
		}
		mt.tracks[i].InsertInterval(start, length, srcTrack)
	}
	return nil
}

// EditReplace overlays src onto the rectangle [start, start+length) x
// [firstTrack, lastTrack], discarding what was there.
func (mt *MultiTrack) EditReplace(start, length ClockTime, firstTrack, lastTrack int, src *MultiTrack) error {
	firstTrack, lastTrack, err := mt.trackRange(firstTrack, lastTrack)
	if err != nil {
		return err
	}
	for i := firstTrack; i <= lastTrack; i++ {
		var srcTrack *Track
		if src != nil {
			if rel := i - firstTrack; rel < src.NumTracks() {
				srcTrack = src.Track(rel)
			}
		}
		mt.tracks[i].ReplaceInterval(start, length, srcTrack)
	}
	return nil
}
