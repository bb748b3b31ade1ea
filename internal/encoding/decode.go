package encoding

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/regdata/register-pipeline/internal/types"
)

// decoderFor maps a detected encoding name to an x/text decoder.
// UTF-8 input is passed through the UTF-8 decoder so ill-formed sequences
// degrade to U+FFFD instead of aborting the read; the deterministic cleaner
// handles those markers downstream.
func decoderFor(name string) (encoding.Encoding, error) {
	switch name {
	case NameUTF8:
		return unicode.UTF8, nil
	case NameUTF8BOM:
		return unicode.UTF8BOM, nil
	case NameUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case NameUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case NameWindows1252:
		return charmap.Windows1252, nil
	case NameISO88591:
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// Decode converts raw bytes to UTF-8 according to info. Unknown encodings
// fall back to Windows-1252, which can represent any byte sequence.
func Decode(data []byte, info types.EncodingInfo) ([]byte, error) {
	enc, err := decoderFor(info.Detected)
	if err != nil {
		enc = charmap.Windows1252
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s input: %w", info.Detected, err)
	}
	// Strip a residual BOM rune so the first header cell parses clean.
	out = bytes.TrimPrefix(out, []byte("\uFEFF"))
	return out, nil
}

// ReadFile reads a file, detects its encoding and returns UTF-8 bytes plus
// the detection result.
func ReadFile(path string) ([]byte, types.EncodingInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.EncodingInfo{}, fmt.Errorf("reading %s: %w", path, err)
	}
	info := Detect(raw)
	decoded, err := Decode(raw, info)
	if err != nil {
		return nil, info, err
	}
	return decoded, info, nil
}
