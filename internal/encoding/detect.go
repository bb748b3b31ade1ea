// Package encoding detects the byte encoding of raw register extracts and
// decodes them to UTF-8. Detection never fails: when no signal is present
// it falls back to a tolerant default with confidence 0.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"github.com/regdata/register-pipeline/internal/types"
)

// Encoding names as they appear in reports.
const (
	NameUTF8        = "utf-8"
	NameUTF8BOM     = "utf-8-sig"
	NameUTF16LE     = "utf-16le"
	NameUTF16BE     = "utf-16be"
	NameWindows1252 = "windows-1252"
	NameISO88591    = "iso-8859-1"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Detect sniffs the encoding of raw bytes. The checks run in order of
// signal strength: byte-order marks, UTF-8 validity over the whole input,
// then a Windows-1252 fallback for inputs with high bytes that do not form
// valid UTF-8 sequences.
func Detect(data []byte) types.EncodingInfo {
	if len(data) == 0 {
		return types.EncodingInfo{
			Detected:   NameUTF8,
			Confidence: 0,
			Notes:      "empty input, defaulting to utf-8",
		}
	}

	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return types.EncodingInfo{Detected: NameUTF8BOM, Confidence: 1, Notes: "UTF-8 byte-order mark"}
	case bytes.HasPrefix(data, bomUTF16LE):
		return types.EncodingInfo{Detected: NameUTF16LE, Confidence: 1, Notes: "UTF-16 LE byte-order mark"}
	case bytes.HasPrefix(data, bomUTF16BE):
		return types.EncodingInfo{Detected: NameUTF16BE, Confidence: 1, Notes: "UTF-16 BE byte-order mark"}
	}

	if utf8.Valid(data) {
		if isASCII(data) {
			// ASCII decodes identically under every supported encoding.
			return types.EncodingInfo{Detected: NameUTF8, Confidence: 0.8, Notes: "ASCII-only content, utf-8 compatible"}
		}
		return types.EncodingInfo{Detected: NameUTF8, Confidence: 0.95, Notes: "valid UTF-8 with multi-byte sequences"}
	}

	// High bytes that are not valid UTF-8: almost always a Windows-1252
	// export from a spreadsheet tool.
	return types.EncodingInfo{Detected: NameWindows1252, Confidence: 0.5, Notes: "invalid UTF-8 sequences, assuming windows-1252"}
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
