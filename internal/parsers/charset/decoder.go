// Package charset decodes the text encodings found in Croatian retail price
// files. Chains publish a mix of UTF-8, Windows-1250 and ISO-8859-2; the
// files never declare their encoding, so it has to be sniffed.
package charset

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding identifies a supported text encoding.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingISO88592    Encoding = "iso-8859-2"
)

// DetectEncoding sniffs the encoding of a byte buffer. Valid UTF-8 (with or
// without BOM) is reported as UTF-8; anything else is assumed Windows-1250,
// the dominant legacy encoding in these files.
func DetectEncoding(data []byte) Encoding {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return EncodingUTF8
	}
	if utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1250
}

// Decode converts a byte buffer to a UTF-8 string. Data that is already
// valid UTF-8 is passed through regardless of the requested encoding; this
// guards against double-decoding files whose publisher switched to UTF-8
// without notice.
func Decode(data []byte, enc Encoding) (string, error) {
	data = stripBOM(data)

	if utf8.Valid(data) {
		return string(data), nil
	}

	var cm *charmap.Charmap
	switch enc {
	case EncodingISO88592:
		cm = charmap.ISO8859_2
	default:
		cm = charmap.Windows1250
	}

	decoded, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
