package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic value.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
)
