package format

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// utf16Decoder decodes raw little-endian UTF-16, ignoring any byte order
// mark.
var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// ReadUTF16NulString reads a NUL-terminated UTF-16LE string starting at
// offset off in b. The scan is bounded at MaxSymbolNameBytes so a corrupt
// buffer lacking a terminator cannot make this loop unbounded.
func ReadUTF16NulString(b []byte, off int) (string, error) {
	if off < 0 || off > len(b) {
		return "", fmt.Errorf("format: symbol name offset %d: %w", off, ErrTruncated)
	}

	end := off
	for {
		if end-off >= MaxSymbolNameBytes {
			return "", fmt.Errorf("format: symbol name at %d exceeds %d bytes without a NUL terminator", off, MaxSymbolNameBytes)
		}
		if end+2 > len(b) {
			return "", fmt.Errorf("format: symbol name at %d: %w", off, ErrTruncated)
		}
		if b[end] == 0 && b[end+1] == 0 {
			break
		}
		end += 2
	}

	raw, err := utf16Decoder.Bytes(b[off:end])
	if err != nil {
		return "", fmt.Errorf("format: decode UTF-16LE symbol name at %d: %w", off, err)
	}
	return string(raw), nil
}
