package driver

import (
	"sync"

	"github.com/nicmidi-go/midiseq/pkg/midi"
)

// DefaultQueueCapacity is the input ring's default size.
const DefaultQueueCapacity = 256

// IgnoreMask bits select message categories the input driver drops
// before they ever reach the queue or thru path.
type IgnoreMask uint8

const (
	IgnoreSysEx IgnoreMask = 1 << iota
	IgnoreMTC
	IgnoreActiveSensing
)

// DefaultIgnoreMask matches §4.8.2's default: sysex, MTC, and active
// sensing are dropped unless explicitly re-enabled.
const DefaultIgnoreMask = IgnoreSysEx | IgnoreMTC | IgnoreActiveSensing

// RawMessage is one entry in the input ring: a decoded message, the
// backend-reported timestamp, and the originating port id.
type RawMessage struct {
	Msg         midi.Message
	TimestampMs int64
	PortID      int
}

// InputDriver wraps a Port whose backend delivers bytes through a
// callback on its own thread. Accepted messages are either forwarded to
// a thru output or pushed onto a bounded ring queue; when the queue is
// full, the oldest entry is silently discarded.
type InputDriver struct {
	port       Port
	portID     int
	ignoreMask IgnoreMask

	mu       sync.Mutex
	ring     []RawMessage
	head     int // index of the oldest entry
	size     int // number of valid entries
	capacity int

	thruEnabled bool
	thruChannel int // -1 = omni
	thruOut     *OutputDriver
}

// NewInputDriver wraps port with the default ignore mask and a ring of
// DefaultQueueCapacity.
func NewInputDriver(port Port, portID int) *InputDriver {
	d := &InputDriver{
		port:        port,
		portID:      portID,
		ignoreMask:  DefaultIgnoreMask,
		ring:        make([]RawMessage, DefaultQueueCapacity),
		capacity:    DefaultQueueCapacity,
		thruChannel: -1,
	}
	port.SetInputCallback(d.onBytes)
	return d
}

// SetIgnoreMask replaces the dropped-category mask.
func (d *InputDriver) SetIgnoreMask(mask IgnoreMask) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ignoreMask = mask
}

// SetThru enables or disables forwarding accepted messages to out,
// rechannelized to channel (or left alone if channel is -1, "omni").
func (d *InputDriver) SetThru(enabled bool, channel int, out *OutputDriver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.thruEnabled = enabled
	d.thruChannel = channel
	d.thruOut = out
}

// onBytes is the backend callback: decode, apply the ignore mask, thru,
// or enqueue. Runs on whatever thread the backend chooses.
func (d *InputDriver) onBytes(timestampMs int64, data []byte) {
	msg, ok := decodeShortMessage(data)
	if !ok {
		return
	}

	d.mu.Lock()
	mask := d.ignoreMask
	if shouldIgnore(msg, mask) {
		d.mu.Unlock()
		return
	}

	if d.thruEnabled && (d.thruChannel == -1 || !msg.IsChannelMessage() || int(msg.Channel()) == d.thruChannel) {
		out := d.thruOut
		d.mu.Unlock()
		if out != nil {
			out.midiThru(msg, d.thruChannel)
		}
		return
	}

	d.pushLocked(RawMessage{Msg: msg, TimestampMs: timestampMs, PortID: d.portID})
	d.mu.Unlock()
}

// pushLocked must be called with d.mu held.
func (d *InputDriver) pushLocked(raw RawMessage) {
	idx := (d.head + d.size) % d.capacity
	if d.size == d.capacity {
		d.head = (d.head + 1) % d.capacity // drop the oldest
		idx = (d.head + d.capacity - 1) % d.capacity
	} else {
		d.size++
	}
	d.ring[idx] = raw
}

// Input pops the oldest queued message, FIFO. ok is false when empty.
func (d *InputDriver) Input() (RawMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.size == 0 {
		return RawMessage{}, false
	}
	raw := d.ring[d.head]
	d.head = (d.head + 1) % d.capacity
	d.size--
	return raw, true
}

// Peek returns up to n queued messages without consuming them, oldest
// first.
func (d *InputDriver) Peek(n int) []RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n > d.size {
		n = d.size
	}
	out := make([]RawMessage, n)
	for i := 0; i < n; i++ {
		out[i] = d.ring[(d.head+i)%d.capacity]
	}
	return out
}

// Len reports the number of queued, unconsumed messages.
func (d *InputDriver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// Lock/Unlock expose the driver's mutex so a consumer can perform a
// compound peek-then-pop without a message arriving in between.
func (d *InputDriver) Lock()   { d.mu.Lock() }
func (d *InputDriver) Unlock() { d.mu.Unlock() }

func shouldIgnore(msg midi.Message, mask IgnoreMask) bool {
	switch {
	case msg.IsSysEx():
		return mask&IgnoreSysEx != 0
	case msg.Status == midi.StatusMTCQuarterFrame:
		return mask&IgnoreMTC != 0
	case msg.Status == midi.StatusActiveSensing:
		return mask&IgnoreActiveSensing != 0
	default:
		return false
	}
}

// decodeShortMessage parses a single short message or SysEx frame off
// the wire. Running status is not applied here: backends deliver
// complete, already-destatused messages per the Port contract.
func decodeShortMessage(data []byte) (midi.Message, bool) {
	if len(data) == 0 {
		return midi.Message{}, false
	}
	status := data[0]
	if status == midi.StatusSysEx {
		return midi.NewSysEx(append([]byte(nil), data...)), true
	}
	if status >= midi.StatusNoteOff && status < midi.StatusSysEx {
		m := midi.Message{Status: status}
		if len(data) > 1 {
			m.Data1 = data[1]
		}
		if len(data) > 2 {
			m.Data2 = data[2]
		}
		return m, true
	}
	m := midi.Message{Status: status}
	if len(data) > 1 {
		m.Data1 = data[1]
	}
	if len(data) > 2 {
		m.Data2 = data[2]
	}
	return m, true
}
