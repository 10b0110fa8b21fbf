package clfs

import "github.com/fox-it/go-clfs/internal/format"

// LSN is a CLFS_LSN: a 64-bit Logical Sequence Number that is interpreted
// either as a raw physical byte offset, or as a (RecordIndex, ContainerId)
// pair packed into the same 8 bytes — the union CLFS_LSN itself doesn't say
// which, so callers pick the view that matches the field they read it from.
type LSN uint64

// lsnAt reads an 8-byte LSN at off within a fixed-up block buffer.
func lsnAt(b []byte, off int) LSN {
	return LSN(format.ReadU64(b, off))
}

// PhysicalOffset returns the LSN as a raw 64-bit byte offset.
func (l LSN) PhysicalOffset() uint64 { return uint64(l) }

// RecordIndex returns the low 32 bits, interpreted as CLFS_RECORD_INDEX.
func (l LSN) RecordIndex() uint32 { return uint32(l) }

// ContainerID returns the high 32 bits, interpreted as CLFS_CONTAINER_ID.
func (l LSN) ContainerID() uint32 { return uint32(l >> 32) }

// IsZero reports whether the LSN is the sentinel zero value used to mark
// "no predecessor" in prev-LSN chains.
func (l LSN) IsZero() bool { return l == 0 }
