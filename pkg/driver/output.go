package driver

import (
	"sync"
	"time"

	"github.com/nicmidi-go/midiseq/pkg/logger"
	"github.com/nicmidi-go/midiseq/pkg/midi"
)

// MaxRetries is the number of times Output retries a busy port before
// dropping the message.
const MaxRetries = 100

// RetryInterval is how long Output sleeps between retries.
const RetryInterval = time.Millisecond

// ErrorHandler is notified when Output permanently fails to deliver a
// message, or when Open/Close fail. Errors are otherwise swallowed so
// the tick thread never blocks on a bad port.
type ErrorHandler func(err error)

// OutputDriver wraps a Port with reference-counted open/close, an
// optional out-processor, retry-then-drop delivery, and note-matrix
// tracking for all_notes_off.
type OutputDriver struct {
	port Port

	mu       sync.Mutex
	openRefs int

	processor func(midi.Message) (midi.Message, bool)
	onError   ErrorHandler

	trackNotes bool
	matrix     *NoteMatrix
}

// NewOutputDriver wraps port. If trackNotes is true, all_notes_off sends
// explicit Note-Off/pedal-release messages derived from the note matrix
// instead of a bare CC 123.
func NewOutputDriver(port Port, trackNotes bool) *OutputDriver {
	return &OutputDriver{
		port:       port,
		trackNotes: trackNotes,
		matrix:     NewNoteMatrix(),
	}
}

// SetProcessor installs an out-processor run before every Output call.
// Returning ok=false drops the message before it reaches the port.
func (d *OutputDriver) SetProcessor(p func(midi.Message) (midi.Message, bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processor = p
}

// SetErrorHandler installs the callback used to report open/close/send
// failures.
func (d *OutputDriver) SetErrorHandler(h ErrorHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = h
}

func (d *OutputDriver) reportError(err error) {
	if d.onError != nil {
		d.onError(err)
	}
	logger.GetLogger().Error("driver error", "err", err)
}

// Open increments the reference count, opening the underlying port on
// the first call.
func (d *OutputDriver) Open(id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openRefs > 0 {
		d.openRefs++
		return nil
	}
	if err := d.port.OpenPort(id); err != nil {
		d.reportError(err)
		return err
	}
	d.openRefs = 1
	return nil
}

// Close decrements the reference count, closing the underlying port
// only when it reaches zero.
func (d *OutputDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openRefs == 0 {
		return nil
	}
	d.openRefs--
	if d.openRefs > 0 {
		return nil
	}
	if err := d.port.ClosePort(); err != nil {
		d.reportError(err)
		return err
	}
	return nil
}

// IsOpen reports whether the reference count is above zero.
func (d *OutputDriver) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openRefs > 0
}

// Output runs msg through the out-processor (if any), serializes it, and
// hands it to the port, retrying up to MaxRetries times on ErrPortBusy
// before dropping the message and reporting an error.
func (d *OutputDriver) Output(msg midi.Message) {
	d.mu.Lock()
	processor := d.processor
	trackNotes := d.trackNotes
	d.mu.Unlock()

	if processor != nil {
		var ok bool
		msg, ok = processor(msg)
		if !ok {
			return
		}
	}

	data := serialize(msg)
	if data == nil {
		return
	}

	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		err = d.port.Send(data)
		if err != ErrPortBusy {
			break
		}
		time.Sleep(RetryInterval)
	}
	if err != nil {
		d.reportError(err)
		return
	}

	if trackNotes && msg.IsChannelMessage() {
		d.mu.Lock()
		d.matrix.Observe(msg)
		d.mu.Unlock()
	}
}

// AllNotesOff silences one channel. With note tracking enabled, it sends
// an explicit Note-Off for every note the matrix reports sounding plus a
// damper-off (CC 64=0) if the pedal is held; otherwise it sends a single
// CC 123 (all notes off).
func (d *OutputDriver) AllNotesOff(channel byte) {
	d.mu.Lock()
	trackNotes := d.trackNotes
	d.mu.Unlock()

	if !trackNotes {
		d.Output(midi.NewControlChange(channel, 123, 0))
		return
	}

	d.mu.Lock()
	notes := d.matrix.SoundingNotes(channel)
	pedalHeld := d.matrix.PedalHeld(channel)
	d.mu.Unlock()

	for _, note := range notes {
		d.Output(midi.NewNoteOffMode(channel, note, 0, midi.NoteOffAsStatusNoteOff))
	}
	if pedalHeld {
		d.Output(midi.NewControlChange(channel, 64, 0))
	}

	d.mu.Lock()
	d.matrix.ClearChannel(channel)
	d.mu.Unlock()
}

// AllNotesOffAll applies AllNotesOff to all 16 channels.
func (d *OutputDriver) AllNotesOffAll() {
	for ch := byte(0); ch < 16; ch++ {
		d.AllNotesOff(ch)
	}
}

// Matrix exposes the underlying note matrix for inspection in tests.
func (d *OutputDriver) Matrix() *NoteMatrix {
	return d.matrix
}

// serialize renders a channel or system message as wire bytes. Meta
// events and internal sentinels have no wire form and are dropped.
func serialize(msg midi.Message) []byte {
	switch {
	case msg.IsMeta(), msg.IsNoOp(), msg.IsBeatMarker():
		return nil
	case msg.IsSysEx():
		return append([]byte(nil), msg.SysEx...)
	case msg.IsChannelMessage():
		n := msg.Length()
		data := make([]byte, 1, 1+n)
		data[0] = msg.Status
		if n >= 1 {
			data = append(data, msg.Data1)
		}
		if n >= 2 {
			data = append(data, msg.Data2)
		}
		return data
	default:
		n := msg.Length()
		data := make([]byte, 1, 1+max(n, 0))
		data[0] = msg.Status
		if n >= 1 {
			data = append(data, msg.Data1)
		}
		if n >= 2 {
			data = append(data, msg.Data2)
		}
		return data
	}
}
