package smfcodec

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/nicmidi-go/midiseq/pkg/midi"
)

// ErrFormat2NotWritten is returned by Save when asked to write format 2;
// the reader accepts format-2 files but the model only ever produces
// format 0 or format 1 on output.
var ErrFormat2NotWritten = errors.New("smfcodec: format 2 files are not written")

// Save serializes mt as a Standard MIDI File. Format0 collapses every
// track into a single MTrk chunk, preserving the largest end time
// across tracks. Format1 writes one chunk per track; if stripEmpty is
// set, tracks holding nothing but End-of-Track are omitted.
func Save(w io.Writer, mt *midi.MultiTrack, format Format, stripEmpty bool) error {
	if format == Format2 {
		return ErrFormat2NotWritten
	}

	var tracks []*midi.Track
	if format == Format0 {
		tracks = []*midi.Track{collapseFormat0(mt)}
	} else {
		for i := 0; i < mt.NumTracks(); i++ {
			tr := mt.Track(i)
			if stripEmpty && tr.Len() <= 1 {
				continue
			}
			tracks = append(tracks, tr)
		}
		if len(tracks) == 0 {
			tracks = []*midi.Track{midi.NewTrack(0)}
		}
	}

	var header [6]byte
	binary.BigEndian.PutUint16(header[0:2], uint16(format))
	binary.BigEndian.PutUint16(header[2:4], uint16(len(tracks)))
	binary.BigEndian.PutUint16(header[4:6], uint16(mt.ClocksPerBeat()))
	if err := writeChunk(w, "MThd", header[:]); err != nil {
		return err
	}

	for _, tr := range tracks {
		if err := writeChunk(w, "MTrk", encodeTrack(tr)); err != nil {
			return err
		}
	}
	return nil
}

// writeChunk writes a chunk's type and big-endian length followed by
// its payload. The payload is already fully built in memory, so the
// length is known up front rather than patched after a seek.
func writeChunk(w io.Writer, chunkType string, payload []byte) error {
	if _, err := io.WriteString(w, chunkType); err != nil {
		return err
	}
	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := w.Write(lengthBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// collapseFormat0 merges every track's events into iterator order
// (non-decreasing time, ties broken by ascending track index),
// discarding internal sentinels and per-track End-of-Track events, then
// appends a single End-of-Track at the largest end time across tracks.
func collapseFormat0(mt *midi.MultiTrack) *midi.Track {
	var maxEnd midi.ClockTime
	for i := 0; i < mt.NumTracks(); i++ {
		if end := mt.Track(i).EndTime(); end > maxEnd {
			maxEnd = end
		}
	}

	var events []midi.TimedMessage
	it := midi.NewMultiTrackIterator(mt)
	for {
		_, e, ok := it.CurEvent()
		if !ok {
			break
		}
		if !e.IsEndOfTrack() && !e.IsNoOp() && !e.IsBeatMarker() {
			events = append(events, e)
		}
		it.Advance()
	}
	events = append(events, midi.NewTimedMessage(midi.NewEndOfTrack(), maxEnd))
	return midi.NewTrackFromEvents(events)
}

// encodeTrack renders a track's musical events (sentinels excluded) as
// an MTrk payload, applying running status to consecutive channel
// events of identical status and resetting it on meta, SysEx, or any
// other status byte.
func encodeTrack(tr *midi.Track) []byte {
	var real []midi.TimedMessage
	for i := 0; i < tr.Len(); i++ {
		e := tr.Event(i)
		if e.IsNoOp() || e.IsBeatMarker() {
			continue
		}
		real = append(real, e)
	}

	var buf []byte
	var lastTime midi.ClockTime
	var runningStatus byte
	for _, e := range real {
		buf = writeVarLen(buf, uint32(e.Time.SubTime(lastTime)))
		lastTime = e.Time

		switch {
		case e.IsMeta():
			buf = append(buf, midi.StatusMeta, e.MetaType())
			buf = writeVarLen(buf, uint32(len(e.SysEx)))
			buf = append(buf, e.SysEx...)
			runningStatus = 0

		case e.IsSysEx():
			raw := e.SysEx
			statusByte, data := raw[0], raw[1:]
			buf = append(buf, statusByte)
			buf = writeVarLen(buf, uint32(len(data)))
			buf = append(buf, data...)
			runningStatus = 0

		case e.IsChannelMessage():
			if e.Status != runningStatus {
				buf = append(buf, e.Status)
				runningStatus = e.Status
			}
			buf = append(buf, e.Data1)
			if channelMessageLength(e.Status) == 2 {
				buf = append(buf, e.Data2)
			}

		default:
			buf = append(buf, e.Status)
			n := systemDataBytes(e.Status)
			if n >= 1 {
				buf = append(buf, e.Data1)
			}
			if n == 2 {
				buf = append(buf, e.Data2)
			}
			runningStatus = 0
		}
	}
	return buf
}
