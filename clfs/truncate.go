package clfs

import (
	"fmt"
	"io"

	"github.com/fox-it/go-clfs/internal/format"
)

// TruncateRecord is the record stored in a BLF's scratch/scratch-shadow
// blocks describing an in-progress truncation. The full client-change
// chain that would follow it is left undecoded (spec Non-goal); this type
// only exposes the fixed header and the offset where that chain begins.
type TruncateRecord struct {
	block LogBlock
	rec   int
}

// ReadTruncateRecordAt reads the log block at offset and decodes the
// truncate record header starting at that block's first record offset.
func ReadTruncateRecordAt(r io.ReaderAt, offset int64) (TruncateRecord, error) {
	block, err := ReadLogBlockAt(r, offset)
	if err != nil {
		return TruncateRecord{}, parseErr(offset, err)
	}

	rec := int(block.FirstRecordOffset())
	if _, err := format.FieldAt(block.Data, rec, format.TruncateRecordFixedSize); err != nil {
		return TruncateRecord{}, parseErr(offset, fmt.Errorf("%w: truncate record header: %v", ErrInvalidRecordBlock, err))
	}

	return TruncateRecord{block: block, rec: rec}, nil
}

// ClientChangeOffset returns the record's ClientChangeOffset field.
func (t TruncateRecord) ClientChangeOffset() uint32 {
	return format.ReadU32(t.block.Data, t.rec+format.TruncateRecordOffsetClientChangeOffset)
}

// OwnerPageOffset returns the record's OwnerPageOffset field.
func (t TruncateRecord) OwnerPageOffset() uint32 {
	return format.ReadU32(t.block.Data, t.rec+format.TruncateRecordOffsetOwnerPageOffset)
}

// ClientChangeChainOffset returns the block-relative offset where the
// client-change chain begins: the fixed 16-byte header's end when
// ClientChangeOffset is unset, otherwise the recorded offset itself.
func (t TruncateRecord) ClientChangeChainOffset() int {
	if off := t.ClientChangeOffset(); off != 0 {
		return t.rec + int(off)
	}
	return t.rec + format.TruncateRecordDefaultAdvance
}
