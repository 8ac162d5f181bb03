package sequencer

import "github.com/nicmidi-go/midiseq/pkg/midi"

// RechannelizeDrop is the RechannelizeTarget sentinel that drops every
// channel message instead of remapping it.
const RechannelizeDrop = -1

// RechannelizeDisabled marks a Processor whose rechannelize stage is
// inactive (messages pass through with their original channel).
const RechannelizeDisabled = -2

// Processor is the configurable per-track stage chain applied to every
// channel message before it reaches the sequencer state and output
// driver (§4.7.1). Non-channel messages (meta, SysEx) pass through
// every stage untouched.
type Processor struct {
	Mute bool
	Solo bool

	// VelocityScalePercent multiplies Note-On velocity; 100 is a no-op.
	// The result is clamped to 1..127 so a scaled note never becomes a
	// disguised Note-Off.
	VelocityScalePercent int

	// RechannelizeTarget is RechannelizeDisabled (pass through), a
	// channel 0-15 (remap to it), or RechannelizeDrop (drop the message).
	RechannelizeTarget int

	// TransposeSemitones shifts note numbers on Note-On/Off/PolyPressure;
	// a result outside 0..127 drops the message.
	TransposeSemitones int

	// User, if set, runs last and may itself drop or rewrite the message.
	User func(midi.Message) (midi.Message, bool)
}

// NewProcessor returns a Processor with every stage at its identity
// default (unmuted, not soloed, no scaling, no rechannelize, no
// transpose).
func NewProcessor() *Processor {
	return &Processor{
		VelocityScalePercent: 100,
		RechannelizeTarget:   RechannelizeDisabled,
	}
}

// Apply runs msg through the chain. anySoloed reports whether some
// track in the song is currently soloed (if so, every non-soloed track
// is muted for the purposes of this call). The returned bool is false
// when a stage drops the message.
func (p *Processor) Apply(msg midi.Message, anySoloed bool) (midi.Message, bool) {
	if !msg.IsChannelMessage() {
		return msg, true
	}
	if p.Mute {
		return msg, false
	}
	if anySoloed && !p.Solo {
		return msg, false
	}

	if msg.IsNoteOn() && p.VelocityScalePercent != 100 {
		v := int(msg.Data2) * p.VelocityScalePercent / 100
		switch {
		case v < 1:
			v = 1
		case v > 127:
			v = 127
		}
		msg.Data2 = byte(v)
	}

	if p.RechannelizeTarget != RechannelizeDisabled {
		if p.RechannelizeTarget == RechannelizeDrop {
			return msg, false
		}
		msg.Status = (msg.Status & 0xF0) | byte(p.RechannelizeTarget&0x0F)
	}

	if p.TransposeSemitones != 0 && (msg.IsNoteOnOrOff() || msg.IsPolyPressure()) {
		n := int(msg.Data1) + p.TransposeSemitones
		if n < 0 || n > 127 {
			return msg, false
		}
		msg.Data1 = byte(n)
	}

	if p.User != nil {
		return p.User(msg)
	}
	return msg, true
}
