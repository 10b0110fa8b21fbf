package format

import (
	"fmt"

	"github.com/fox-it/go-clfs/internal/buf"
)

// Cursor is a bounds-checked sequential reader over a byte slice: a short
// or corrupt buffer surfaces as ErrTruncated from its reads rather than a
// panic.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor returns a Cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.data) - c.pos }

// Seek repositions the cursor to an absolute offset within data.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.data) {
		return fmt.Errorf("format: seek to %d: %w", off, ErrTruncated)
	}
	c.pos = off
	return nil
}

func (c *Cursor) take(n int) ([]byte, error) {
	s, ok := buf.Slice(c.data, c.pos, n)
	if !ok {
		return nil, fmt.Errorf("format: read %d bytes at %d: %w", n, c.pos, ErrTruncated)
	}
	c.pos += n
	return s, nil
}

// Bytes reads and returns the next n bytes as a zero-copy slice.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(n)
}

// U16 reads the next little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	s, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return ReadU16(s, 0), nil
}

// U32 reads the next little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	s, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return ReadU32(s, 0), nil
}

// U64 reads the next little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	s, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return ReadU64(s, 0), nil
}

// Skip advances the cursor by n bytes without returning them.
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}

// FieldAt is a random-access counterpart to Cursor: it validates that
// b[off:off+n] is in bounds and returns the slice, without tracking any
// running position. Struct decoders that read a fixed-offset table (rather
// than a sequential stream) use this directly.
func FieldAt(b []byte, off, n int) ([]byte, error) {
	s, ok := buf.Slice(b, off, n)
	if !ok {
		return nil, fmt.Errorf("format: field at offset %d (len %d): %w", off, n, ErrTruncated)
	}
	return s, nil
}
