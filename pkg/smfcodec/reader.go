package smfcodec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nicmidi-go/midiseq/pkg/midi"
)

// ParseError reports a malformed Standard MIDI File: bad chunk framing,
// a short read, a length that runs past the buffer, or an unsupported
// running-status sequence. The parse aborts and the partial MultiTrack
// is discarded.
type ParseError struct {
	Offset  int
	Context string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("smfcodec: parse error at offset %d (%s): %v", e.Offset, e.Context, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(offset int, context string, err error) error {
	return &ParseError{Offset: offset, Context: context, Err: err}
}

// Format identifies the SMF file format.
type Format int

const (
	Format0 Format = 0
	Format1 Format = 1
	// Format2 files are accepted on read but treated as Format1: each
	// chunk becomes an independent track with no identity mapping
	// guarantee across sequences.
	Format2 Format = 2
)

// Load parses a Standard MIDI File and returns the resulting MultiTrack
// together with the format byte that was read.
func Load(r io.Reader) (*midi.MultiTrack, Format, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, parseErr(0, "read", err)
	}

	pos := 0
	format, numTracks, division, n, err := readHeaderChunk(data, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += n

	rawTracks := make([][]midi.TimedMessage, 0, numTracks)
	for len(rawTracks) < int(numTracks) && pos < len(data) {
		chunkType, payload, next, err := readChunk(data, pos)
		if err != nil {
			return nil, 0, err
		}
		if chunkType == "MTrk" {
			events, err := parseTrackChunk(payload, pos)
			if err != nil {
				return nil, 0, err
			}
			rawTracks = append(rawTracks, events)
		}
		pos = next
	}

	clocksPerBeat := int(division)
	if division&0x8000 != 0 {
		// SMPTE-based division: accepted but not interpreted (§6.1).
		clocksPerBeat = midi.DefaultClocksPerBeat
	}

	var tracks []*midi.Track
	if format == Format0 {
		tracks = splitFormat0(rawTracksFlatten(rawTracks))
	} else {
		tracks = make([]*midi.Track, len(rawTracks))
		for i, events := range rawTracks {
			tracks[i] = midi.NewTrackFromEvents(events)
		}
	}

	return midi.NewMultiTrackFromTracks(clocksPerBeat, tracks), format, nil
}

// rawTracksFlatten concatenates a format-0 file's single track-chunk
// payload set (normally exactly one MTrk) into one event stream.
func rawTracksFlatten(rawTracks [][]midi.TimedMessage) []midi.TimedMessage {
	var out []midi.TimedMessage
	for _, events := range rawTracks {
		out = append(out, events...)
	}
	return out
}

func readHeaderChunk(data []byte, pos int) (Format, uint16, uint16, int, error) {
	chunkType, payload, next, err := readChunk(data, pos)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if chunkType != "MThd" {
		return 0, 0, 0, 0, parseErr(pos, "header", fmt.Errorf("expected MThd chunk, got %q", chunkType))
	}
	if len(payload) != 6 {
		return 0, 0, 0, 0, parseErr(pos, "header", fmt.Errorf("expected 6-byte header payload, got %d", len(payload)))
	}
	format := Format(binary.BigEndian.Uint16(payload[0:2]))
	numTracks := binary.BigEndian.Uint16(payload[2:4])
	division := binary.BigEndian.Uint16(payload[4:6])
	return format, numTracks, division, next - pos, nil
}

// readChunk reads one chunk (4-byte type + big-endian u32 length +
// payload) starting at pos, returning its type, payload, and the offset
// of the next chunk.
func readChunk(data []byte, pos int) (string, []byte, int, error) {
	if pos+8 > len(data) {
		return "", nil, 0, parseErr(pos, "chunk header", io.ErrUnexpectedEOF)
	}
	chunkType := string(data[pos : pos+4])
	length := binary.BigEndian.Uint32(data[pos+4 : pos+8])
	start := pos + 8
	end := start + int(length)
	if end > len(data) {
		return "", nil, 0, parseErr(pos, "chunk payload", fmt.Errorf("chunk length %d overflows file", length))
	}
	return chunkType, data[start:end], end, nil
}

func channelMessageLength(status byte) int {
	switch status & 0xF0 {
	case midi.StatusProgramChange, midi.StatusChannelPressure:
		return 1
	default:
		return 2
	}
}

// parseTrackChunk decodes one MTrk payload into a time-ordered event
// slice, applying running status and the meta/sysex framing rules of
// §4.4.2. baseOffset is used only to annotate errors.
func parseTrackChunk(payload []byte, baseOffset int) ([]midi.TimedMessage, error) {
	var events []midi.TimedMessage
	var tick midi.ClockTime
	var runningStatus byte
	pos := 0

	for pos < len(payload) {
		delta, n, err := readVarLen(payload[pos:])
		if err != nil {
			return nil, parseErr(baseOffset+pos, "delta time", err)
		}
		pos += n
		tick += midi.ClockTime(delta)

		if pos >= len(payload) {
			return nil, parseErr(baseOffset+pos, "event status", io.ErrUnexpectedEOF)
		}
		statusByte := payload[pos]

		if statusByte < 0x80 {
			if runningStatus == 0 {
				return nil, parseErr(baseOffset+pos, "running status", fmt.Errorf("data byte 0x%02X with no running status", statusByte))
			}
			nbytes := channelMessageLength(runningStatus)
			if pos+nbytes > len(payload) {
				return nil, parseErr(baseOffset+pos, "channel event (running status)", io.ErrUnexpectedEOF)
			}
			d1 := payload[pos]
			var d2 byte
			if nbytes == 2 {
				d2 = payload[pos+1]
			}
			pos += nbytes
			events = append(events, midi.NewTimedMessage(midi.Message{Status: runningStatus, Data1: d1, Data2: d2}, tick))
			continue
		}

		switch {
		case statusByte == midi.StatusMeta:
			pos++
			if pos >= len(payload) {
				return nil, parseErr(baseOffset+pos, "meta type", io.ErrUnexpectedEOF)
			}
			metaType := payload[pos]
			pos++
			length, n, err := readVarLen(payload[pos:])
			if err != nil {
				return nil, parseErr(baseOffset+pos, "meta length", err)
			}
			pos += n
			if pos+int(length) > len(payload) {
				return nil, parseErr(baseOffset+pos, "meta payload", io.ErrUnexpectedEOF)
			}
			data := append([]byte(nil), payload[pos:pos+int(length)]...)
			pos += int(length)
			runningStatus = 0
			events = append(events, midi.NewTimedMessage(midi.Message{Status: midi.StatusMeta, Data1: metaType, SysEx: data}, tick))
			if metaType == midi.MetaEndOfTrack {
				return events, nil
			}

		case statusByte == midi.StatusSysEx || statusByte == midi.StatusSysExContinuation:
			pos++
			length, n, err := readVarLen(payload[pos:])
			if err != nil {
				return nil, parseErr(baseOffset+pos, "sysex length", err)
			}
			pos += n
			if pos+int(length) > len(payload) {
				return nil, parseErr(baseOffset+pos, "sysex payload", io.ErrUnexpectedEOF)
			}
			raw := payload[pos : pos+int(length)]
			pos += int(length)
			framed := make([]byte, 0, len(raw)+1)
			framed = append(framed, statusByte)
			framed = append(framed, raw...)
			runningStatus = 0
			events = append(events, midi.NewTimedMessage(midi.NewSysEx(framed), tick))

		case statusByte < midi.StatusSysEx:
			pos++
			nbytes := channelMessageLength(statusByte)
			if pos+nbytes > len(payload) {
				return nil, parseErr(baseOffset+pos, "channel event", io.ErrUnexpectedEOF)
			}
			d1 := payload[pos]
			var d2 byte
			if nbytes == 2 {
				d2 = payload[pos+1]
			}
			pos += nbytes
			runningStatus = statusByte
			events = append(events, midi.NewTimedMessage(midi.Message{Status: statusByte, Data1: d1, Data2: d2}, tick))

		default:
			// System common/real-time message: accepted defensively,
			// though SMF files should not contain these.
			pos++
			nbytes := systemDataBytes(statusByte)
			if nbytes < 0 {
				return nil, parseErr(baseOffset+pos, "system event", fmt.Errorf("unexpected status 0x%02X", statusByte))
			}
			if pos+nbytes > len(payload) {
				return nil, parseErr(baseOffset+pos, "system event", io.ErrUnexpectedEOF)
			}
			var d1, d2 byte
			if nbytes >= 1 {
				d1 = payload[pos]
			}
			if nbytes >= 2 {
				d2 = payload[pos+1]
			}
			pos += nbytes
			runningStatus = 0
			events = append(events, midi.NewTimedMessage(midi.Message{Status: statusByte, Data1: d1, Data2: d2}, tick))
		}
	}

	return nil, parseErr(baseOffset+pos, "track", fmt.Errorf("missing End-of-Track"))
}

func systemDataBytes(status byte) int {
	switch status {
	case midi.StatusMTCQuarterFrame, midi.StatusSongSelect:
		return 1
	case midi.StatusSongPosition:
		return 2
	case midi.StatusTuneRequest, midi.StatusClock, midi.StatusStart, midi.StatusContinue, midi.StatusStop, midi.StatusActiveSensing:
		return 0
	default:
		return -1
	}
}

// splitFormat0 implements §4.4.3: channel events fan out to tracks
// 1..=16 by channel; track 0 collects everything else.
func splitFormat0(events []midi.TimedMessage) []*midi.Track {
	buckets := make([][]midi.TimedMessage, 17)
	for _, e := range events {
		if e.IsEndOfTrack() {
			continue
		}
		idx := 0
		if e.IsChannelMessage() {
			idx = int(e.Channel()) + 1
		}
		buckets[idx] = append(buckets[idx], e)
	}

	tracks := make([]*midi.Track, 17)
	for i, bucketEvents := range buckets {
		var end midi.ClockTime
		if len(bucketEvents) > 0 {
			end = bucketEvents[len(bucketEvents)-1].Time
		}
		bucketEvents = append(bucketEvents, midi.NewTimedMessage(midi.NewEndOfTrack(), end))
		tracks[i] = midi.NewTrackFromEvents(bucketEvents)
	}
	return tracks
}
