// Package notifier defines the event envelope the sequencer uses to tell
// a host application (GUI, console, test harness) that something
// changed, plus a couple of concrete, non-blocking implementations.
package notifier

import (
	"fmt"
	"log/slog"
)

// Group identifies the broad category of an Event.
type Group int

const (
	GroupAll Group = iota
	GroupConductor
	GroupTransport
	GroupTrack
	GroupRecorder
	GroupUser
)

func (g Group) String() string {
	switch g {
	case GroupAll:
		return "ALL"
	case GroupConductor:
		return "CONDUCTOR"
	case GroupTransport:
		return "TRANSPORT"
	case GroupTrack:
		return "TRACK"
	case GroupRecorder:
		return "RECORDER"
	case GroupUser:
		return "USER"
	default:
		return "UNKNOWN"
	}
}

// Item enumerates the specific change within a group.
type Item int

const (
	ItemRefresh Item = iota // GroupAll

	ItemTempo // GroupConductor
	ItemTimeSig
	ItemKeySig
	ItemMarker

	ItemTransportStart // GroupTransport
	ItemTransportStop
	ItemMeasure
	ItemBeat
	ItemCountIn

	ItemTrackName // GroupTrack (Subgroup carries the track index)
	ItemTrackProgram
	ItemTrackNote
	ItemTrackVolume
	ItemTrackPan
	ItemTrackChorus
	ItemTrackReverb

	ItemRecorderReset // GroupRecorder
	ItemRecorderStart
	ItemRecorderStop

	ItemUser // GroupUser (Subgroup/Item meaning is caller-defined)
)

// Event packs (group, subgroup, item). For GroupTrack, Subgroup is the
// track index; otherwise it is 0 unless the group documents otherwise.
type Event struct {
	Group    Group
	Subgroup int
	Item     Item
}

func (e Event) String() string {
	return fmt.Sprintf("%s[%d] %d", e.Group, e.Subgroup, e.Item)
}

// Notifier is the capability the sequencer holds to report state
// changes. Notify is called from the tick thread and must never block;
// implementations that need to do real work should queue internally.
type Notifier interface {
	Notify(e Event)
}

// NoOpNotifier discards every event.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(Event) {}

// ConsoleNotifier logs each event through the given logger at debug
// level. Used by the cmd/midiseq demo and by tests that want a visible
// trace without a GUI loop.
type ConsoleNotifier struct {
	Logger *slog.Logger
}

func (c ConsoleNotifier) Notify(e Event) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("notify", "group", e.Group, "subgroup", e.Subgroup, "item", e.Item)
}

// ChannelNotifier forwards events onto a buffered channel, dropping the
// event rather than blocking when the channel is full. Suitable for a
// GUI event loop that wants to drain events on its own thread.
type ChannelNotifier struct {
	Events chan Event
}

// NewChannelNotifier returns a ChannelNotifier with the given buffer
// capacity.
func NewChannelNotifier(capacity int) *ChannelNotifier {
	return &ChannelNotifier{Events: make(chan Event, capacity)}
}

func (c *ChannelNotifier) Notify(e Event) {
	select {
	case c.Events <- e:
	default:
	}
}
