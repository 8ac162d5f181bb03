package midi

// TrackType classifies the content of a track, mirroring the descriptive
// categories used to decide how a track should be treated by a GUI or by
// format-0 collapsing (§3.3).
type TrackType int

const (
	// TrackEmpty holds nothing but End-of-Track.
	TrackEmpty TrackType = iota
	// TrackMain holds only non-channel, non-SysEx content (tempo, time
	// signature, key signature, track name, text): the conductor track
	// of a format-1 file.
	TrackMain
	// TrackText holds only text-family meta events (and End-of-Track).
	TrackText
	// TrackChan holds channel messages on exactly one channel, no SysEx.
	TrackChan
	// TrackIrregChan holds channel messages on exactly one channel
	// together with meta events that TrackMain would not allow alone.
	TrackIrregChan
	// TrackMixedChan holds channel messages spanning more than one
	// channel.
	TrackMixedChan
	// TrackSysEx holds only SysEx events (plus meta/End-of-Track).
	TrackSysEx
	// TrackResetSysEx holds only SysEx events, all of which appear at
	// time 0 (a reset block played once at the top of the file).
	TrackResetSysEx
	// TrackBothSysEx holds both channel messages and SysEx events.
	TrackBothSysEx
	// TrackUnknown is anything not matched by the patterns above.
	TrackUnknown
)

func (t TrackType) String() string {
	switch t {
	case TrackEmpty:
		return "Empty"
	case TrackMain:
		return "Main"
	case TrackText:
		return "Text"
	case TrackChan:
		return "Chan"
	case TrackIrregChan:
		return "IrregChan"
	case TrackMixedChan:
		return "MixedChan"
	case TrackSysEx:
		return "SysEx"
	case TrackResetSysEx:
		return "ResetSysEx"
	case TrackBothSysEx:
		return "BothSysEx"
	default:
		return "Unknown"
	}
}

// Type classifies the track's content. Channel returns the single
// channel used when Type is TrackChan or TrackIrregChan; it is
// meaningless otherwise.
func (tr *Track) Type() (TrackType, byte) {
	hasChannel := false
	hasSysEx := false
	hasOtherMeta := false
	hasTextMeta := false
	hasConductorMeta := false
	mixedChannels := false
	allSysExAtZero := true
	var channel byte
	channelSet := false

	for i := 0; i < tr.Len()-1; i++ {
		e := tr.Event(i)
		switch {
		case e.IsChannelMessage():
			hasChannel = true
			if !channelSet {
				channel = e.Channel()
				channelSet = true
			} else if e.Channel() != channel {
				mixedChannels = true
			}
		case e.IsSysEx():
			hasSysEx = true
			if e.Time != 0 {
				allSysExAtZero = false
			}
		case e.IsTextMeta():
			hasTextMeta = true
		case e.IsTempo(), e.IsTimeSig(), e.IsKeySig(), e.IsSMPTEOffset():
			// conductor-track content: keeps a track out of TrackText but
			// is allowed in TrackMain and alongside channel messages
			hasConductorMeta = true
		default:
			hasOtherMeta = true
		}
	}

	switch {
	case !hasChannel && !hasSysEx && !hasTextMeta && !hasOtherMeta && tr.Len() == 1:
		return TrackEmpty, 0
	case hasChannel && hasSysEx:
		return TrackBothSysEx, 0
	case hasSysEx:
		if allSysExAtZero {
			return TrackResetSysEx, 0
		}
		return TrackSysEx, 0
	case hasChannel && mixedChannels:
		return TrackMixedChan, 0
	case hasChannel && hasOtherMeta:
		return TrackIrregChan, channel
	case hasChannel:
		return TrackChan, channel
	case hasTextMeta && !hasOtherMeta && !hasConductorMeta:
		return TrackText, 0
	case !hasOtherMeta:
		return TrackMain, 0
	default:
		return TrackUnknown, 0
	}
}
