package driver

import "github.com/nicmidi-go/midiseq/pkg/midi"

// midiThru rechannelizes msg per the thru channel (−1 meaning omni, pass
// through unchanged) and sends it via Output.
func (d *OutputDriver) midiThru(msg midi.Message, thruChannel int) {
	if thruChannel >= 0 && msg.IsChannelMessage() {
		msg.Status = (msg.Status & 0xF0) | byte(thruChannel&0x0F)
	}
	d.Output(msg)
}
