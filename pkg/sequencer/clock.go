package sequencer

import "github.com/nicmidi-go/midiseq/pkg/midi"

// DefaultTempoScale is the "normal speed" tempo_scale percentage.
const DefaultTempoScale = 100

// ticksToMs converts a tick delta to milliseconds at the given tempo,
// tempo_scale (percent, 100=normal), and ticks-per-beat (§4.7.3).
func ticksToMs(deltaTicks midi.ClockTime, bpm float64, tempoScalePercent int, clocksPerBeat int) float64 {
	if bpm <= 0 {
		bpm = 120
	}
	if tempoScalePercent <= 0 {
		tempoScalePercent = DefaultTempoScale
	}
	scale := float64(tempoScalePercent) / 100.0
	return float64(deltaTicks) * 60000.0 / (bpm * scale * float64(clocksPerBeat))
}

// msToTicks is the inverse of ticksToMs, truncating toward zero.
func msToTicks(deltaMs float64, bpm float64, tempoScalePercent int, clocksPerBeat int) midi.ClockTime {
	if bpm <= 0 {
		bpm = 120
	}
	if tempoScalePercent <= 0 {
		tempoScalePercent = DefaultTempoScale
	}
	scale := float64(tempoScalePercent) / 100.0
	ticks := deltaMs * bpm * scale * float64(clocksPerBeat) / 60000.0
	if ticks < 0 {
		ticks = 0
	}
	return midi.ClockTime(ticks)
}
