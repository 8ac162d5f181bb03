package notifier

import "testing"

func TestEventString(t *testing.T) {
	e := Event{Group: GroupTrack, Subgroup: 3, Item: ItemTrackNote}
	got := e.String()
	if got == "" {
		t.Fatal("expected non-empty string")
	}
}

func TestNoOpNotifierNeverPanics(t *testing.T) {
	var n NoOpNotifier
	n.Notify(Event{Group: GroupAll})
}

func TestChannelNotifierDropsWhenFull(t *testing.T) {
	n := NewChannelNotifier(1)
	n.Notify(Event{Group: GroupTransport, Item: ItemTransportStart})
	n.Notify(Event{Group: GroupTransport, Item: ItemTransportStop}) // must not block

	select {
	case got := <-n.Events:
		if got.Item != ItemTransportStart {
			t.Errorf("expected first queued event, got %v", got)
		}
	default:
		t.Fatal("expected one buffered event")
	}

	select {
	case <-n.Events:
		t.Fatal("expected second event to have been dropped")
	default:
	}
}

func TestConsoleNotifierDoesNotPanicWithNilLogger(t *testing.T) {
	var c ConsoleNotifier
	c.Notify(Event{Group: GroupConductor, Item: ItemTempo})
}
