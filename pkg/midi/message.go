// Package midi implements the MIDI data model: messages, tracks,
// multitracks, and the merge-sorted multitrack iterator.
package midi

import (
	"fmt"
)

// Status byte values for channel messages (top nibble; bottom nibble is
// the channel 0-15).
const (
	StatusNoteOff         byte = 0x80
	StatusNoteOn          byte = 0x90
	StatusPolyPressure    byte = 0xA0
	StatusControlChange   byte = 0xB0
	StatusProgramChange   byte = 0xC0
	StatusChannelPressure byte = 0xD0
	StatusPitchBend       byte = 0xE0
)

// System / meta status bytes.
const (
	StatusSysEx             byte = 0xF0
	StatusMTCQuarterFrame   byte = 0xF1
	StatusSongPosition      byte = 0xF2
	StatusSongSelect        byte = 0xF3
	StatusTuneRequest       byte = 0xF6
	StatusSysExContinuation byte = 0xF7
	StatusClock             byte = 0xF8
	StatusStart             byte = 0xFA
	StatusContinue          byte = 0xFB
	StatusStop              byte = 0xFC
	StatusActiveSensing     byte = 0xFE
	StatusMeta              byte = 0xFF
)

// Meta event types, carried in Data1 when Status == StatusMeta.
const (
	MetaSequenceNumber    byte = 0x00
	MetaText              byte = 0x01
	MetaCopyright         byte = 0x02
	MetaTrackName         byte = 0x03
	MetaInstrumentName    byte = 0x04
	MetaLyric             byte = 0x05
	MetaMarkerText        byte = 0x06
	MetaCuePoint          byte = 0x07
	MetaChannelPrefix     byte = 0x20
	MetaEndOfTrack        byte = 0x2F
	MetaTempo             byte = 0x51
	MetaSMPTEOffset       byte = 0x54
	MetaTimeSig           byte = 0x58
	MetaKeySig            byte = 0x59
	MetaSequencerSpecific byte = 0x7F
)

// Internal sentinel encodings. These reuse the status==0 slot, which is
// not a valid MIDI status byte on the wire, and are never serialized by
// the SMF codec or sent to a Port.
const (
	sentinelNoOp       byte = 0 // Data1 == 0
	sentinelBeatMarker byte = 1 // Data1 == 1
)

// NoteOffMode controls how SetNoteOff encodes a note-off: as a genuine
// StatusNoteOff, or as StatusNoteOn with velocity 0. Both forms are always
// accepted on read (IsNoteOff recognizes both); this only affects what a
// builder produces. Process-wide, matching the source library's global
// configuration flag.
type NoteOffMode int

const (
	// NoteOffAsStatusNoteOff emits a genuine Note-Off status byte (the
	// canonical, lossless encoding recommended by this library).
	NoteOffAsStatusNoteOff NoteOffMode = iota
	// NoteOffAsNoteOnZeroVelocity emits Note-On with velocity 0, for
	// compatibility with gear that expects running-status note-off.
	NoteOffAsNoteOnZeroVelocity
)

// DefaultNoteOffMode is the process-wide default used by SetNoteOff.
var DefaultNoteOffMode = NoteOffAsStatusNoteOff

// channelDataBytes gives the number of data bytes following the status
// byte for each channel message type, indexed by (status>>4)-8.
var channelDataBytes = [16]int{
	0: 2, // 0x80 NoteOff
	1: 2, // 0x90 NoteOn
	2: 2, // 0xA0 PolyPressure
	3: 2, // 0xB0 ControlChange
	4: 1, // 0xC0 ProgramChange
	5: 1, // 0xD0 ChannelPressure
	6: 2, // 0xE0 PitchBend
	7: 0, // 0xF0 (not a channel message; unused slot)
}

// systemDataBytes gives the number of data bytes following the status
// byte for system common/realtime messages, indexed by status&0x0F.
// -1 marks variable-length (SysEx) messages.
var systemDataBytes = [16]int{
	0x0: -1, // 0xF0 SysEx start
	0x1: 1,  // 0xF1 MTC quarter frame
	0x2: 2,  // 0xF2 song position pointer
	0x3: 1,  // 0xF3 song select
	0x4: 0,  // 0xF4 undefined
	0x5: 0,  // 0xF5 undefined
	0x6: 0,  // 0xF6 tune request
	0x7: -1, // 0xF7 SysEx continuation/escape
	0x8: 0,  // 0xF8 clock
	0x9: 0,  // 0xF9 undefined
	0xA: 0,  // 0xFA start
	0xB: 0,  // 0xFB continue
	0xC: 0,  // 0xFC stop
	0xD: 0,  // 0xFD undefined
	0xE: 0,  // 0xFE active sensing
	0xF: 0,  // 0xFF meta (variable) / realtime reset on the wire
}

// Message carries one MIDI channel message, one system message, one meta
// event, or an internal sentinel (NoOp / BeatMarker).
type Message struct {
	Status byte
	Data1  byte
	Data2  byte
	Data3  byte
	SysEx  []byte // SysEx payload, meta payload, tempo/timesig/SMPTE bytes
}

// NewNoOp returns the internal no-op sentinel.
func NewNoOp() Message { return Message{Status: 0, Data1: sentinelNoOp} }

// NewBeatMarker returns the internal beat-marker sentinel emitted by the
// sequencer at beat boundaries.
func NewBeatMarker() Message { return Message{Status: 0, Data1: sentinelBeatMarker} }

// IsNoOp reports whether m is the internal no-op sentinel.
func (m Message) IsNoOp() bool { return m.Status == 0 && m.Data1 == sentinelNoOp }

// IsBeatMarker reports whether m is the internal beat-marker sentinel.
func (m Message) IsBeatMarker() bool { return m.Status == 0 && m.Data1 == sentinelBeatMarker }

// --- channel message constructors ---

// NewNoteOn builds a Note-On message.
func NewNoteOn(channel, note, velocity byte) Message {
	return Message{Status: StatusNoteOn | (channel & 0x0F), Data1: note, Data2: velocity}
}

// NewNoteOff builds a note-off using DefaultNoteOffMode.
func NewNoteOff(channel, note, velocity byte) Message {
	return NewNoteOffMode(channel, note, velocity, DefaultNoteOffMode)
}

// NewNoteOffMode builds a note-off using an explicit encoding mode.
func NewNoteOffMode(channel, note, velocity byte, mode NoteOffMode) Message {
	if mode == NoteOffAsNoteOnZeroVelocity {
		return Message{Status: StatusNoteOn | (channel & 0x0F), Data1: note, Data2: 0}
	}
	return Message{Status: StatusNoteOff | (channel & 0x0F), Data1: note, Data2: velocity}
}

// NewPolyPressure builds a polyphonic key-pressure message.
func NewPolyPressure(channel, note, pressure byte) Message {
	return Message{Status: StatusPolyPressure | (channel & 0x0F), Data1: note, Data2: pressure}
}

// NewControlChange builds a control-change message.
func NewControlChange(channel, controller, value byte) Message {
	return Message{Status: StatusControlChange | (channel & 0x0F), Data1: controller, Data2: value}
}

// NewProgramChange builds a program-change message.
func NewProgramChange(channel, program byte) Message {
	return Message{Status: StatusProgramChange | (channel & 0x0F), Data1: program}
}

// NewChannelPressure builds a channel (monophonic) pressure message.
func NewChannelPressure(channel, pressure byte) Message {
	return Message{Status: StatusChannelPressure | (channel & 0x0F), Data1: pressure}
}

// NewPitchBend builds a pitch-bend message from a signed value in
// [-8192, 8191], biased to the 14-bit unsigned wire encoding.
func NewPitchBend(channel byte, value int) Message {
	v := uint16(value + 8192)
	return Message{
		Status: StatusPitchBend | (channel & 0x0F),
		Data1:  byte(v & 0x7F),
		Data2:  byte((v >> 7) & 0x7F),
	}
}

// --- system / sysex constructors ---

// NewSysEx builds a SysEx message. payload must begin with 0xF0 and end
// with 0xF7; NewSysExFromData wraps that framing for you.
func NewSysEx(payload []byte) Message {
	return Message{Status: StatusSysEx, SysEx: payload}
}

// NewSysExFromData frames data between 0xF0 and 0xF7.
func NewSysExFromData(data []byte) Message {
	payload := make([]byte, 0, len(data)+2)
	payload = append(payload, StatusSysEx)
	payload = append(payload, data...)
	payload = append(payload, StatusSysExContinuation)
	return NewSysEx(payload)
}

// --- meta constructors ---

func newMeta(metaType byte, payload []byte) Message {
	return Message{Status: StatusMeta, Data1: metaType, SysEx: payload}
}

// NewEndOfTrack builds the End-of-Track meta event.
func NewEndOfTrack() Message { return newMeta(MetaEndOfTrack, nil) }

// NewTempo builds a tempo meta event from a tempo in beats per minute.
func NewTempo(bpm float64) Message {
	microsPerQuarter := uint32(60000000.0 / bpm)
	payload := []byte{byte(microsPerQuarter >> 16), byte(microsPerQuarter >> 8), byte(microsPerQuarter)}
	return newMeta(MetaTempo, payload)
}

// NewTimeSig builds a time-signature meta event. clocksPerMetronome is
// typically 24; thirtySecondsPerQuarter is typically 8.
func NewTimeSig(numerator, denominator byte, clocksPerMetronome, thirtySecondsPerQuarter byte) Message {
	logDen := byte(0)
	for d := denominator; d > 1; d >>= 1 {
		logDen++
	}
	return newMeta(MetaTimeSig, []byte{numerator, logDen, clocksPerMetronome, thirtySecondsPerQuarter})
}

// NewKeySig builds a key-signature meta event. sharpsFlats is signed:
// negative for flats, positive for sharps. mode is 0 (major) or 1 (minor).
func NewKeySig(sharpsFlats int8, mode byte) Message {
	return newMeta(MetaKeySig, []byte{byte(sharpsFlats), mode})
}

// NewSMPTEOffset builds an SMPTE-offset meta event.
func NewSMPTEOffset(hour, minute, second, frame, subframe byte) Message {
	return newMeta(MetaSMPTEOffset, []byte{hour, minute, second, frame, subframe})
}

// NewText builds a text-family meta event (Text, Copyright, TrackName,
// InstrumentName, Lyric, MarkerText, CuePoint). The text is stored without
// a trailing NUL.
func NewText(metaType byte, text string) Message {
	return newMeta(metaType, []byte(text))
}

// --- predicates ---

// IsChannelMessage reports whether m carries a channel message.
func (m Message) IsChannelMessage() bool {
	return m.Status >= StatusNoteOff && m.Status < StatusSysEx
}

// Channel returns the channel (0-15) of a channel message; 0 otherwise.
func (m Message) Channel() byte {
	if m.IsChannelMessage() {
		return m.Status & 0x0F
	}
	return 0
}

// Type returns the channel-message type (top nibble); 0 for non-channel
// messages.
func (m Message) Type() byte {
	if m.IsChannelMessage() {
		return m.Status & 0xF0
	}
	return 0
}

func (m Message) IsNoteOn() bool {
	return m.Status&0xF0 == StatusNoteOn && m.Data2 > 0
}

func (m Message) IsNoteOff() bool {
	if m.Status&0xF0 == StatusNoteOff {
		return true
	}
	return m.Status&0xF0 == StatusNoteOn && m.Data2 == 0
}

func (m Message) IsNoteOnOrOff() bool {
	return m.Status&0xF0 == StatusNoteOn || m.Status&0xF0 == StatusNoteOff
}

func (m Message) IsPolyPressure() bool    { return m.Status&0xF0 == StatusPolyPressure }
func (m Message) IsControlChange() bool   { return m.Status&0xF0 == StatusControlChange }
func (m Message) IsProgramChange() bool   { return m.Status&0xF0 == StatusProgramChange }
func (m Message) IsChannelPressure() bool { return m.Status&0xF0 == StatusChannelPressure }
func (m Message) IsPitchBend() bool       { return m.Status&0xF0 == StatusPitchBend }

// IsSustainPedal reports whether m is a control change for controller 64
// (damper / sustain pedal).
func (m Message) IsSustainPedal() bool {
	return m.IsControlChange() && m.Data1 == 64
}

// IsSysEx reports whether m is a SysEx message.
func (m Message) IsSysEx() bool { return m.Status == StatusSysEx }

// IsSystemMessage reports whether m is a non-meta system message
// (0xF0-0xFE).
func (m Message) IsSystemMessage() bool {
	return m.Status >= StatusSysEx && m.Status < StatusMeta
}

// IsMeta reports whether m is a meta event.
func (m Message) IsMeta() bool { return m.Status == StatusMeta }

// MetaType returns the meta-event type byte; only valid when IsMeta().
func (m Message) MetaType() byte { return m.Data1 }

func (m Message) IsEndOfTrack() bool { return m.IsMeta() && m.Data1 == MetaEndOfTrack }
func (m Message) IsTempo() bool      { return m.IsMeta() && m.Data1 == MetaTempo }
func (m Message) IsTimeSig() bool    { return m.IsMeta() && m.Data1 == MetaTimeSig }
func (m Message) IsKeySig() bool     { return m.IsMeta() && m.Data1 == MetaKeySig }
func (m Message) IsTrackName() bool  { return m.IsMeta() && m.Data1 == MetaTrackName }
func (m Message) IsMarkerText() bool { return m.IsMeta() && m.Data1 == MetaMarkerText }
func (m Message) IsSMPTEOffset() bool {
	return m.IsMeta() && m.Data1 == MetaSMPTEOffset
}

// IsTextMeta reports whether m is one of the text-family meta events.
func (m Message) IsTextMeta() bool {
	if !m.IsMeta() {
		return false
	}
	switch m.Data1 {
	case MetaText, MetaCopyright, MetaTrackName, MetaInstrumentName, MetaLyric, MetaMarkerText, MetaCuePoint:
		return true
	}
	return false
}

// Text returns the text payload of a text-family meta event.
func (m Message) Text() string { return string(m.SysEx) }

// BenderValue returns the pitch-bend value biased to [-8192, 8191].
func (m Message) BenderValue() int {
	raw := int(m.Data2)<<7 | int(m.Data1)
	return raw - 8192
}

// Tempo returns the tempo meta event's value in beats per minute.
func (m Message) Tempo() float64 {
	if len(m.SysEx) < 3 {
		return 0
	}
	microsPerQuarter := uint32(m.SysEx[0])<<16 | uint32(m.SysEx[1])<<8 | uint32(m.SysEx[2])
	if microsPerQuarter == 0 {
		return 0
	}
	return 60000000.0 / float64(microsPerQuarter)
}

// TimeSigNumerator returns the time-signature numerator.
func (m Message) TimeSigNumerator() byte {
	if len(m.SysEx) < 1 {
		return 4
	}
	return m.SysEx[0]
}

// TimeSigDenominator returns the time-signature denominator (2, 4, 8, ...).
func (m Message) TimeSigDenominator() byte {
	if len(m.SysEx) < 2 {
		return 4
	}
	return 1 << m.SysEx[1]
}

// KeySigSharpsFlats returns the signed sharps/flats count.
func (m Message) KeySigSharpsFlats() int8 {
	if len(m.SysEx) < 1 {
		return 0
	}
	return int8(m.SysEx[0])
}

// KeySigMode returns 0 for major, 1 for minor.
func (m Message) KeySigMode() byte {
	if len(m.SysEx) < 2 {
		return 0
	}
	return m.SysEx[1]
}

// SetNoteOff rewrites m in place as a note-off for the given mode, if m is
// currently a note-on or note-off. No-op otherwise.
func (m *Message) SetNoteOff(mode NoteOffMode) {
	if !m.IsNoteOnOrOff() {
		return
	}
	ch := m.Channel()
	if mode == NoteOffAsNoteOnZeroVelocity {
		m.Status = StatusNoteOn | ch
		m.Data2 = 0
	} else {
		m.Status = StatusNoteOff | ch
	}
}

// Length returns the number of data bytes following the status byte. -1
// means variable-length (SysEx/meta), where the length is carried by the
// SysEx field directly instead.
func (m Message) Length() int {
	switch {
	case m.IsChannelMessage():
		return channelDataBytes[(m.Status>>4)-8]
	case m.Status == StatusMeta:
		return -1
	case m.IsSystemMessage():
		return systemDataBytes[m.Status&0x0F]
	default:
		return 0
	}
}

// IsSameKind reports whether a and b are "the same kind" of event per
// Track's insertion-replacement rules: NoOp vs NoOp, same-channel notes
// with the same note number, same-channel control changes with the same
// controller, other same-channel-and-type channel messages, same meta
// type, or identical non-meta non-channel system status.
func IsSameKind(a, b Message) bool {
	switch {
	case a.IsNoOp() && b.IsNoOp():
		return true
	case a.IsNoteOnOrOff() && b.IsNoteOnOrOff():
		return a.Channel() == b.Channel() && a.Data1 == b.Data1
	case a.IsControlChange() && b.IsControlChange():
		return a.Channel() == b.Channel() && a.Data1 == b.Data1
	case a.IsChannelMessage() && b.IsChannelMessage():
		return a.Channel() == b.Channel() && a.Type() == b.Type()
	case a.IsMeta() && b.IsMeta():
		return a.MetaType() == b.MetaType()
	case a.IsSystemMessage() && !a.IsSysEx() && b.IsSystemMessage() && !b.IsSysEx():
		return a.Status == b.Status
	default:
		return false
	}
}

// Equal reports bitwise equality, including the SysEx/meta payload.
func (m Message) Equal(o Message) bool {
	if m.Status != o.Status || m.Data1 != o.Data1 || m.Data2 != o.Data2 || m.Data3 != o.Data3 {
		return false
	}
	if len(m.SysEx) != len(o.SysEx) {
		return false
	}
	for i := range m.SysEx {
		if m.SysEx[i] != o.SysEx[i] {
			return false
		}
	}
	return true
}

// String renders a human-readable summary of the message.
func (m Message) String() string {
	switch {
	case m.IsNoOp():
		return "NoOp"
	case m.IsBeatMarker():
		return "BeatMarker"
	case m.IsNoteOn():
		return fmt.Sprintf("NoteOn  ch=%d note=%d vel=%d", m.Channel(), m.Data1, m.Data2)
	case m.IsNoteOff():
		return fmt.Sprintf("NoteOff ch=%d note=%d vel=%d", m.Channel(), m.Data1, m.Data2)
	case m.IsControlChange():
		return fmt.Sprintf("CC      ch=%d ctrl=%d val=%d", m.Channel(), m.Data1, m.Data2)
	case m.IsProgramChange():
		return fmt.Sprintf("PC      ch=%d prog=%d", m.Channel(), m.Data1)
	case m.IsPitchBend():
		return fmt.Sprintf("Bend    ch=%d val=%d", m.Channel(), m.BenderValue())
	case m.IsTempo():
		return fmt.Sprintf("Tempo   %.2f bpm", m.Tempo())
	case m.IsTimeSig():
		return fmt.Sprintf("TimeSig %d/%d", m.TimeSigNumerator(), m.TimeSigDenominator())
	case m.IsKeySig():
		return fmt.Sprintf("KeySig  sf=%d mode=%d", m.KeySigSharpsFlats(), m.KeySigMode())
	case m.IsTextMeta():
		return fmt.Sprintf("Text(0x%02X) %q", m.MetaType(), m.Text())
	case m.IsEndOfTrack():
		return "EndOfTrack"
	case m.IsSysEx():
		return fmt.Sprintf("SysEx   %d bytes", len(m.SysEx))
	default:
		return fmt.Sprintf("Status=0x%02X Data1=%d Data2=%d", m.Status, m.Data1, m.Data2)
	}
}

