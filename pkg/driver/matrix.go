package driver

import "github.com/nicmidi-go/midiseq/pkg/midi"

// NoteMatrix tracks, per channel and note, how many more Note-Ons than
// Note-Offs have been observed (outstanding sounding-note count), plus a
// per-channel pedal-held flag. Observe is called for every channel
// message that passes through the output driver so all_notes_off can
// reconstruct exactly which notes/pedals need turning off.
type NoteMatrix struct {
	counts     [16][128]int
	channelSum [16]int
	pedalHeld  [16]bool
}

// NewNoteMatrix returns an empty matrix.
func NewNoteMatrix() *NoteMatrix {
	return &NoteMatrix{}
}

// Observe updates the matrix for a channel message already sent to the
// port. Non-note, non-pedal messages are ignored.
func (m *NoteMatrix) Observe(msg midi.Message) {
	switch {
	case msg.IsNoteOn():
		ch, note := msg.Channel(), msg.Data1
		m.counts[ch][note]++
		m.channelSum[ch]++
	case msg.IsNoteOff():
		ch, note := msg.Channel(), msg.Data1
		if m.counts[ch][note] > 0 {
			m.counts[ch][note]--
			m.channelSum[ch]--
		}
	case msg.IsSustainPedal():
		m.pedalHeld[msg.Channel()] = msg.Data2 >= 64
	}
}

// SoundingCount returns the outstanding Note-On count for (channel, note).
func (m *NoteMatrix) SoundingCount(channel, note byte) int {
	return m.counts[channel][note]
}

// ChannelSoundingCount returns the total outstanding note count on a channel.
func (m *NoteMatrix) ChannelSoundingCount(channel byte) int {
	return m.channelSum[channel]
}

// PedalHeld reports whether the sustain pedal is currently held on a channel.
func (m *NoteMatrix) PedalHeld(channel byte) bool {
	return m.pedalHeld[channel]
}

// SoundingNotes returns the distinct notes currently sounding on a channel,
// in ascending note-number order.
func (m *NoteMatrix) SoundingNotes(channel byte) []byte {
	var notes []byte
	for note := 0; note < 128; note++ {
		if m.counts[channel][note] > 0 {
			notes = append(notes, byte(note))
		}
	}
	return notes
}

// ClearChannel zeroes out the matrix's bookkeeping for one channel, as if
// every sounding note had received a matching Note-Off and the pedal had
// been released. It does not itself emit any messages; callers use it
// after having sent the corresponding Note-Offs/CC64=0 to the port.
func (m *NoteMatrix) ClearChannel(channel byte) {
	for note := range m.counts[channel] {
		m.counts[channel][note] = 0
	}
	m.channelSum[channel] = 0
	m.pedalHeld[channel] = false
}

// ClearAll zeroes the entire matrix.
func (m *NoteMatrix) ClearAll() {
	for ch := 0; ch < 16; ch++ {
		m.ClearChannel(byte(ch))
	}
}

// Total returns the sum of outstanding note counts across all channels,
// used by the all_notes_off property test (§8.1 property 8).
func (m *NoteMatrix) Total() int {
	total := 0
	for _, sum := range m.channelSum {
		total += sum
	}
	return total
}

// AnyPedalHeld reports whether any channel currently has its pedal held.
func (m *NoteMatrix) AnyPedalHeld() bool {
	for _, held := range m.pedalHeld {
		if held {
			return true
		}
	}
	return false
}
