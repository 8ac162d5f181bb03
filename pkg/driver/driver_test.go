package driver

import (
	"sync"
	"testing"

	"github.com/nicmidi-go/midiseq/pkg/midi"
)

// fakePort is an in-memory Port used by the driver tests. busyCount
// controls how many initial Send calls report ErrPortBusy before
// succeeding.
type fakePort struct {
	mu         sync.Mutex
	open       bool
	openCalls  int
	closeCalls int
	sent       [][]byte
	busyCount  int
	inputFn    func(timestampMs int64, data []byte)
}

func (p *fakePort) OpenPort(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	p.openCalls++
	return nil
}

func (p *fakePort) ClosePort() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.closeCalls++
	return nil
}

func (p *fakePort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *fakePort) PortName(id int) (string, error) { return "fake", nil }

func (p *fakePort) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busyCount > 0 {
		p.busyCount--
		return ErrPortBusy
	}
	cp := append([]byte(nil), data...)
	p.sent = append(p.sent, cp)
	return nil
}

func (p *fakePort) SetInputCallback(fn func(timestampMs int64, data []byte)) {
	p.inputFn = fn
}

func (p *fakePort) PortCount() (int, error) { return 1, nil }

func TestOutputOpenCloseRefCounting(t *testing.T) {
	port := &fakePort{}
	d := NewOutputDriver(port, false)

	_ = d.Open(0)
	_ = d.Open(0)
	if port.openCalls != 1 {
		t.Errorf("expected 1 underlying open call, got %d", port.openCalls)
	}

	_ = d.Close()
	if !d.IsOpen() || port.closeCalls != 0 {
		t.Error("expected port to stay open after one of two closes")
	}
	_ = d.Close()
	if d.IsOpen() || port.closeCalls != 1 {
		t.Error("expected port closed after matching close count")
	}
}

func TestOutputRetriesThenSucceeds(t *testing.T) {
	port := &fakePort{busyCount: 3}
	d := NewOutputDriver(port, false)
	_ = d.Open(0)

	d.Output(midi.NewNoteOn(0, 60, 100))
	if len(port.sent) != 1 {
		t.Fatalf("expected message delivered after retries, got %d sent", len(port.sent))
	}
}

func TestOutputDropsAndReportsAfterMaxRetries(t *testing.T) {
	port := &fakePort{busyCount: MaxRetries + 1}
	d := NewOutputDriver(port, false)
	_ = d.Open(0)

	var reported error
	d.SetErrorHandler(func(err error) { reported = err })
	d.Output(midi.NewNoteOn(0, 60, 100))

	if len(port.sent) != 0 {
		t.Errorf("expected message dropped, got %d sent", len(port.sent))
	}
	if reported != ErrPortBusy {
		t.Errorf("expected ErrPortBusy reported, got %v", reported)
	}
}

func TestAllNotesOffUntrackedSendsCC123(t *testing.T) {
	port := &fakePort{}
	d := NewOutputDriver(port, false)
	_ = d.Open(0)

	d.AllNotesOff(2)
	if len(port.sent) != 1 || port.sent[0][0] != midi.StatusControlChange|2 || port.sent[0][1] != 123 {
		t.Errorf("expected a single CC123 on channel 2, got %v", port.sent)
	}
}

func TestAllNotesOffTrackedEmptiesMatrix(t *testing.T) {
	port := &fakePort{}
	d := NewOutputDriver(port, true)
	_ = d.Open(0)

	d.Output(midi.NewNoteOn(1, 60, 100))
	d.Output(midi.NewNoteOn(1, 64, 100))
	d.Output(midi.NewControlChange(1, 64, 127)) // pedal down

	if d.Matrix().Total() != 2 || !d.Matrix().PedalHeld(1) {
		t.Fatalf("expected 2 sounding notes and pedal held before AllNotesOff")
	}

	d.AllNotesOff(1)

	if d.Matrix().Total() != 0 {
		t.Errorf("expected matrix total 0, got %d", d.Matrix().Total())
	}
	if d.Matrix().AnyPedalHeld() {
		t.Error("expected no pedal held after AllNotesOff")
	}

	sawNoteOff60, sawNoteOff64, sawDamperOff := false, false, false
	for _, data := range port.sent {
		if len(data) >= 2 && data[0] == midi.StatusNoteOff|1 && data[1] == 60 {
			sawNoteOff60 = true
		}
		if len(data) >= 2 && data[0] == midi.StatusNoteOff|1 && data[1] == 64 {
			sawNoteOff64 = true
		}
		if len(data) >= 3 && data[0] == midi.StatusControlChange|1 && data[1] == 64 && data[2] == 0 {
			sawDamperOff = true
		}
	}
	if !sawNoteOff60 || !sawNoteOff64 || !sawDamperOff {
		t.Errorf("expected explicit note-offs and damper-off, got %v", port.sent)
	}
}

func TestInputDriverDropsIgnoredCategories(t *testing.T) {
	port := &fakePort{}
	d := NewInputDriver(port, 0)

	port.inputFn(0, []byte{midi.StatusSysEx, 0x01, midi.StatusSysExContinuation})
	port.inputFn(0, []byte{midi.StatusActiveSensing})

	if d.Len() != 0 {
		t.Errorf("expected ignored messages dropped, queue has %d", d.Len())
	}

	port.inputFn(0, []byte{midi.StatusNoteOn | 0, 60, 100})
	if d.Len() != 1 {
		t.Fatalf("expected 1 queued message, got %d", d.Len())
	}
}

func TestInputDriverRingDropsOldestWhenFull(t *testing.T) {
	port := &fakePort{}
	d := NewInputDriver(port, 0)
	d.capacity = 2
	d.ring = make([]RawMessage, 2)

	port.inputFn(1, []byte{midi.StatusNoteOn, 1, 100})
	port.inputFn(2, []byte{midi.StatusNoteOn, 2, 100})
	port.inputFn(3, []byte{midi.StatusNoteOn, 3, 100}) // drops note 1

	if d.Len() != 2 {
		t.Fatalf("expected queue capped at 2, got %d", d.Len())
	}
	first, _ := d.Input()
	if first.Msg.Data1 != 2 {
		t.Errorf("expected oldest surviving entry to be note 2, got %d", first.Msg.Data1)
	}
}

func TestInputDriverThruRechannelizes(t *testing.T) {
	inPort := &fakePort{}
	d := NewInputDriver(inPort, 0)

	outPort := &fakePort{}
	out := NewOutputDriver(outPort, false)
	_ = out.Open(0)
	d.SetThru(true, 5, out)

	// only messages on the thru channel (or any channel, with -1) are
	// forwarded; messages on other channels are queued instead.
	inPort.inputFn(0, []byte{midi.StatusNoteOn | 5, 60, 100})

	if d.Len() != 0 {
		t.Error("expected thru message not queued")
	}
	if len(outPort.sent) != 1 || outPort.sent[0][0] != midi.StatusNoteOn|5 {
		t.Errorf("expected note forwarded on thru channel 5, got %v", outPort.sent)
	}
}

func TestNoteMatrixObserveAndClear(t *testing.T) {
	m := NewNoteMatrix()
	m.Observe(midi.NewNoteOn(0, 60, 100))
	m.Observe(midi.NewNoteOn(0, 60, 100)) // double-triggered note
	if m.SoundingCount(0, 60) != 2 {
		t.Fatalf("expected outstanding count 2, got %d", m.SoundingCount(0, 60))
	}
	m.Observe(midi.NewNoteOff(0, 60, 0))
	if m.SoundingCount(0, 60) != 1 {
		t.Fatalf("expected outstanding count 1 after one note-off, got %d", m.SoundingCount(0, 60))
	}
	m.ClearAll()
	if m.Total() != 0 {
		t.Errorf("expected total 0 after ClearAll, got %d", m.Total())
	}
}
