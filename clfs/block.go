package clfs

import (
	"fmt"
	"io"

	"github.com/fox-it/go-clfs/internal/format"
)

// LogBlock is a zero-copy view over one fixed-up CLFS log block: the fixed
// header plus up to 16 record offsets, immediately followed by the sector
// payload the header's record offsets index into.
//
// CLFS protects each sector of a block against a torn write by stashing the
// sector's real trailing two bytes in a "fixup" array near the end of the
// header, and overwriting the trailing two bytes on disk with a generation
// marker. Reading a block therefore means reversing that substitution
// before any record inside it can be trusted.
type LogBlock struct {
	Data   []byte // fixed-up block bytes, header + sectors
	Offset int64  // absolute file offset this block was read from
}

// ReadLogBlockAt reads and fixes up the log block at absolute offset off in r.
func ReadLogBlockAt(r io.ReaderAt, off int64) (LogBlock, error) {
	hdr := make([]byte, format.LogBlockHeaderSize)
	if _, err := r.ReadAt(hdr, off); err != nil {
		return LogBlock{}, fmt.Errorf("%w: read header at 0x%X: %v", ErrInvalidRecordBlock, off, err)
	}

	totalSectors := int(format.ReadU16(hdr, format.LogBlockHeaderOffsetTotalSectors))
	if totalSectors == 0 {
		return LogBlock{}, fmt.Errorf("%w: block at 0x%X has zero sectors", ErrInvalidRecordBlock, off)
	}
	fixupOffset := int(format.ReadU32(hdr, format.LogBlockHeaderOffsetFixupOffset))

	size := totalSectors * format.SectorSize
	data := make([]byte, size)
	if _, err := r.ReadAt(data, off); err != nil {
		return LogBlock{}, fmt.Errorf("%w: read %d bytes at 0x%X: %v", ErrInvalidRecordBlock, size, off, err)
	}

	if err := applyFixup(data, fixupOffset, totalSectors); err != nil {
		return LogBlock{}, fmt.Errorf("%w: %v", ErrInvalidRecordBlock, err)
	}

	return LogBlock{Data: data, Offset: off}, nil
}

// applyFixup restores the real trailing two bytes of each sector, which the
// on-disk format parks in a small array starting at fixupOffset so torn
// writes can be detected before they're mistaken for valid data.
func applyFixup(data []byte, fixupOffset, totalSectors int) error {
	fixup, err := format.FieldAt(data, fixupOffset, totalSectors*2)
	if err != nil {
		return fmt.Errorf("fixup array at %d: %w", fixupOffset, err)
	}
	for i := 0; i < totalSectors; i++ {
		ptr := (i+1)*format.SectorSize - 2
		if ptr+2 > len(data) {
			return fmt.Errorf("fixup target sector %d exceeds block: %w", i, format.ErrTruncated)
		}
		copy(data[ptr:ptr+2], fixup[i*2:i*2+2])
	}
	return nil
}

// MajorVersion returns the log block's major version byte.
func (b LogBlock) MajorVersion() uint8 { return b.Data[format.LogBlockHeaderOffsetMajorVersion] }

// TotalSectors returns the number of 512-byte sectors occupied by this block.
func (b LogBlock) TotalSectors() uint16 {
	return format.ReadU16(b.Data, format.LogBlockHeaderOffsetTotalSectors)
}

// ValidSectors returns the number of sectors actually written with data.
func (b LogBlock) ValidSectors() uint16 {
	return format.ReadU16(b.Data, format.LogBlockHeaderOffsetValidSectors)
}

// Flags returns the block's CLFS_LOG_BLOCK_FLAGS value.
func (b LogBlock) Flags() format.LogBlockFlags {
	return format.LogBlockFlags(format.ReadU32(b.Data, format.LogBlockHeaderOffsetFlags))
}

// CurrentLsn returns the LSN identifying this block.
func (b LogBlock) CurrentLsn() LSN {
	return lsnAt(b.Data, format.LogBlockHeaderOffsetCurrentLsn)
}

// NextLsn returns the LSN of the block that logically follows this one.
func (b LogBlock) NextLsn() LSN {
	return lsnAt(b.Data, format.LogBlockHeaderOffsetNextLsn)
}

// RecordOffset returns the i'th entry of the block's 16-slot record offset
// table (an offset relative to the start of this block, or 0 if unused).
func (b LogBlock) RecordOffset(i int) uint32 {
	if i < 0 || i >= format.LogBlockHeaderNumRecordOffsets {
		return 0
	}
	off := format.LogBlockHeaderOffsetRecordOffsets + i*4
	return format.ReadU32(b.Data, off)
}

// FirstRecordOffset returns RecordOffset(0), the slot every block decoder in
// this package seeds its first record read from.
func (b LogBlock) FirstRecordOffset() uint32 { return b.RecordOffset(0) }

// Payload returns the block bytes at and beyond off, relative to the start
// of the block, bounds-checked against the fixed-up buffer.
func (b LogBlock) Payload(off uint32) []byte {
	if int(off) > len(b.Data) {
		return nil
	}
	return b.Data[off:]
}
