package clfs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBLF indicates a BLF's control record failed magic validation.
	ErrInvalidBLF = errors.New("clfs: invalid BLF, possibly corrupt or empty")
	// ErrInvalidRecordBlock indicates a log block, or a record header or
	// record data inside one, could not be read or is malformed.
	ErrInvalidRecordBlock = errors.New("clfs: invalid record block, possibly corrupt or empty")
	// ErrInvalidSymbolTable indicates a symbol table, a HashSym it points at,
	// or that symbol's name could not be read. A HashSym whose own NodeId
	// type is wrong is reported as ErrInvalidContext.
	ErrInvalidSymbolTable = errors.New("clfs: invalid symbol table entry")
	// ErrInvalidContext indicates a client/container/security context had an
	// unexpected NodeId type for its position in the symbol table.
	ErrInvalidContext = errors.New("clfs: invalid context")
)

// ParseError wraps one of the sentinel errors above with the absolute file
// offset at which the failure occurred, so a caller can report exactly
// where a BLF or container broke.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("clfs: at offset 0x%X: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(offset int64, err error) error {
	return &ParseError{Offset: offset, Err: err}
}
