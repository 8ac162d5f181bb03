package smfcodec

import (
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// TextEncoding selects how text-family meta event payloads (TRACK_NAME,
// TEXT, LYRIC, ...) are interpreted on read.
type TextEncoding int

const (
	// TextUTF8 treats the payload as already UTF-8 (or byte-compatible
	// ASCII), the default.
	TextUTF8 TextEncoding = iota
	// TextShiftJIS transcodes the payload from Shift_JIS, as produced by
	// many Japanese-authored karaoke and GM files.
	TextShiftJIS
)

// DecodeText converts a meta event's raw payload to a UTF-8 string per
// encoding.
func DecodeText(payload []byte, encoding TextEncoding) string {
	if encoding == TextUTF8 {
		return string(payload)
	}
	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), payload)
	if err != nil {
		return string(payload)
	}
	return string(decoded)
}

// EncodeText converts a UTF-8 string to the byte payload that should be
// stored in a meta event per encoding.
func EncodeText(text string, encoding TextEncoding) []byte {
	if encoding == TextUTF8 {
		return []byte(text)
	}
	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(text))
	if err != nil {
		return []byte(text)
	}
	return encoded
}
