package packet

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// textEncoding is the charset used for strings on the wire. Set once at
// startup before any session is opened.
var textEncoding encoding.Encoding = unicode.UTF8

// SetTextEncoding selects the wire charset by WHATWG label ("utf-8", "big5",
// "shift_jis", ...).
func SetTextEncoding(label string) error {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return fmt.Errorf("text encoding %q: %w", label, err)
	}
	textEncoding = enc
	return nil
}

// decodeText converts wire bytes to a UTF-8 string.
// Pure ASCII passes through unchanged.
func decodeText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if isASCII(raw) || textEncoding == unicode.UTF8 {
		return string(raw)
	}
	decoded, err := textEncoding.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw) // fallback to raw bytes
	}
	return string(decoded)
}

func encodeText(s string) []byte {
	if s == "" || isASCII([]byte(s)) || textEncoding == unicode.UTF8 {
		return []byte(s)
	}
	encoded, err := textEncoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return encoded
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
