package clfs

import (
	"fmt"
	"io"

	"github.com/fox-it/go-clfs/internal/format"
)

// ControlRecord describes where every other block making up a BLF is
// stored: each entry in its block table carries an image size and an
// offset relative to the start of the file. The record also carries the
// CLFS magic value used to validate the file as a whole.
type ControlRecord struct {
	block LogBlock
	rec   int // offset of CLFS_CONTROL_RECORD relative to block.Data
}

// ReadControlRecordAt reads the log block at offset and decodes the control
// record starting at that block's first record offset.
func ReadControlRecordAt(r io.ReaderAt, offset int64) (ControlRecord, error) {
	block, err := ReadLogBlockAt(r, offset)
	if err != nil {
		return ControlRecord{}, parseErr(offset, err)
	}

	rec := int(block.FirstRecordOffset())
	if _, err := format.FieldAt(block.Data, rec, format.ControlRecordFixedSize); err != nil {
		return ControlRecord{}, parseErr(offset, fmt.Errorf("%w: control record header: %v", ErrInvalidRecordBlock, err))
	}

	cr := ControlRecord{block: block, rec: rec}

	n := int(cr.BlockCount())
	need := format.ControlRecordFixedSize + n*format.MetadataBlockEntrySize
	if _, err := format.FieldAt(block.Data, rec, need); err != nil {
		return ControlRecord{}, parseErr(offset, fmt.Errorf("%w: %d block table entries: %v", ErrInvalidRecordBlock, n, err))
	}

	return cr, nil
}

// Valid reports whether the record's magic field matches the CLFS control
// record magic. A BLF with an invalid control record is not a CLFS file.
func (c ControlRecord) Valid() bool {
	return c.u64(format.ControlRecordOffsetMagic) == format.ControlRecordMagic
}

// DumpCount returns the embedded metadata record header's dump count.
func (c ControlRecord) DumpCount() uint64 {
	return c.u64(format.MetadataRecordHeaderOffsetDumpCount)
}

// Version returns the control record format version byte.
func (c ControlRecord) Version() uint8 {
	return c.block.Data[c.rec+format.ControlRecordOffsetVersion]
}

// ExtendState returns the CLFS_EXTEND_STATE value (SUPPLEMENT: exposed for
// forensic completeness; not consumed by any decoding logic here).
func (c ControlRecord) ExtendState() format.ExtendState {
	return format.ExtendState(c.u32(format.ControlRecordOffsetExtendState))
}

// ExtendBlock returns the control record's ExtendBlock field.
func (c ControlRecord) ExtendBlock() uint16 { return c.u16(format.ControlRecordOffsetExtendBlock) }

// FlushBlock returns the control record's FlushBlock field.
func (c ControlRecord) FlushBlock() uint16 { return c.u16(format.ControlRecordOffsetFlushBlock) }

// NewBlockSectors returns the sector count used when extending the log.
func (c ControlRecord) NewBlockSectors() uint32 {
	return c.u32(format.ControlRecordOffsetNewBlockSectors)
}

// ExtendStartSectors returns the ExtendStartSectors field.
func (c ControlRecord) ExtendStartSectors() uint32 {
	return c.u32(format.ControlRecordOffsetExtendStartSectors)
}

// ExtendSectors returns the ExtendSectors field.
func (c ControlRecord) ExtendSectors() uint32 { return c.u32(format.ControlRecordOffsetExtendSectors) }

// TruncateState returns the embedded truncate context's state field
// (SUPPLEMENT: CLFS_TRUNCATE_CONTEXT, dropped by the distilled spec).
func (c ControlRecord) TruncateState() format.TruncateState {
	off := c.rec + format.ControlRecordOffsetTruncateContext + format.TruncateContextOffsetTruncateState
	return format.TruncateState(format.ReadU32(c.block.Data, off))
}

// TruncateInvalidSector returns the truncate context's InvalidSector field.
func (c ControlRecord) TruncateInvalidSector() uint64 {
	off := c.rec + format.ControlRecordOffsetTruncateContext + format.TruncateContextOffsetInvalidSector
	return format.ReadU64(c.block.Data, off)
}

// BlockCount returns the number of entries in the control record's block
// table (the Blocks field, read before RgBlocks can be sliced).
func (c ControlRecord) BlockCount() uint32 { return c.u32(format.ControlRecordOffsetBlocks) }

// Blocks returns the control record's metadata block table.
func (c ControlRecord) Blocks() []MetadataBlockEntry {
	n := int(c.BlockCount())
	entries := make([]MetadataBlockEntry, n)
	base := c.rec + format.ControlRecordFixedSize
	for i := 0; i < n; i++ {
		entries[i] = MetadataBlockEntry{
			raw: c.block.Data[base+i*format.MetadataBlockEntrySize : base+(i+1)*format.MetadataBlockEntrySize],
		}
	}
	return entries
}

func (c ControlRecord) u16(relOff int) uint16 { return format.ReadU16(c.block.Data, c.rec+relOff) }
func (c ControlRecord) u32(relOff int) uint32 { return format.ReadU32(c.block.Data, c.rec+relOff) }
func (c ControlRecord) u64(relOff int) uint64 { return format.ReadU64(c.block.Data, c.rec+relOff) }

// MetadataBlockEntry is one entry of a control record's block table: the
// image offset and size of one of the BLF's other metadata blocks, plus
// its type (Control/General/Scratch, each with an odd-valued shadow twin).
type MetadataBlockEntry struct {
	raw []byte
}

// Offset returns the entry's absolute file offset.
func (e MetadataBlockEntry) Offset() uint32 {
	return format.ReadU32(e.raw, format.MetadataBlockEntryOffsetOffset)
}

// Type returns the entry's metadata block type.
func (e MetadataBlockEntry) Type() format.MetadataBlockType {
	return format.MetadataBlockType(format.ReadU32(e.raw, format.MetadataBlockEntryOffsetType))
}
