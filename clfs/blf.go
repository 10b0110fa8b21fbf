package clfs

import (
	"io"
	"os"

	"github.com/fox-it/go-clfs/internal/format"
)

// BLF is an opened Base Log File: the root control record plus lazy,
// restartable iterators over the control/base/truncate records named in
// its block table.
type BLF struct {
	r    io.ReaderAt
	f    *os.File // non-nil when opened via Open; closed by Close
	root ControlRecord
}

// Open opens the BLF at path and parses its root control record.
func Open(path string) (*BLF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	blf, err := NewBLF(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	blf.f = f
	return blf, nil
}

// NewBLF wraps an already-open reader (a file, an in-memory section
// reader, a test fixture) and parses its root control record.
func NewBLF(r io.ReaderAt) (*BLF, error) {
	root, err := ReadControlRecordAt(r, 0)
	if err != nil {
		return nil, err
	}
	if !root.Valid() {
		return nil, ErrInvalidBLF
	}
	return &BLF{r: r, root: root}, nil
}

// Close releases the underlying file, if this BLF was opened via Open.
func (b *BLF) Close() error {
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

// Root returns the BLF's root control record.
func (b *BLF) Root() ControlRecord { return b.root }

func (b *BLF) blocksOfType(types ...format.MetadataBlockType) []MetadataBlockEntry {
	want := make(map[format.MetadataBlockType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []MetadataBlockEntry
	for _, e := range b.root.Blocks() {
		if want[e.Type()] {
			out = append(out, e)
		}
	}
	return out
}

// ControlRecordIterator yields the BLF's control and control-shadow
// records, lazily decoding one block per Next call.
type ControlRecordIterator struct {
	blf     *BLF
	entries []MetadataBlockEntry
	i       int
}

// ControlRecords returns an iterator over the control/control-shadow blocks.
func (b *BLF) ControlRecords() *ControlRecordIterator {
	return &ControlRecordIterator{
		blf:     b,
		entries: b.blocksOfType(format.MetaBlockControl, format.MetaBlockControlShadow),
	}
}

// Next returns the next control record, or io.EOF when exhausted.
func (it *ControlRecordIterator) Next() (ControlRecord, error) {
	if it.i >= len(it.entries) {
		return ControlRecord{}, io.EOF
	}
	e := it.entries[it.i]
	it.i++
	return ReadControlRecordAt(it.blf.r, int64(e.Offset()))
}

// BaseRecordIterator yields the BLF's general and general-shadow records.
type BaseRecordIterator struct {
	blf     *BLF
	entries []MetadataBlockEntry
	i       int
}

// BaseRecords returns an iterator over the general/general-shadow blocks,
// which hold the container and client registrations for the log.
func (b *BLF) BaseRecords() *BaseRecordIterator {
	return &BaseRecordIterator{
		blf:     b,
		entries: b.blocksOfType(format.MetaBlockGeneral, format.MetaBlockGeneralShadow),
	}
}

// Next returns the next base record, or io.EOF when exhausted.
func (it *BaseRecordIterator) Next() (BaseRecord, error) {
	if it.i >= len(it.entries) {
		return BaseRecord{}, io.EOF
	}
	e := it.entries[it.i]
	it.i++
	return ReadBaseRecordAt(it.blf.r, int64(e.Offset()), e.Type())
}

// TruncateRecordIterator yields the BLF's scratch and scratch-shadow records.
type TruncateRecordIterator struct {
	blf     *BLF
	entries []MetadataBlockEntry
	i       int
}

// TruncateRecords returns an iterator over the scratch/scratch-shadow
// blocks. In practice these are rarely present on disk.
func (b *BLF) TruncateRecords() *TruncateRecordIterator {
	return &TruncateRecordIterator{
		blf:     b,
		entries: b.blocksOfType(format.MetaBlockScratch, format.MetaBlockScratchShadow),
	}
}

// Next returns the next truncate record, or io.EOF when exhausted.
func (it *TruncateRecordIterator) Next() (TruncateRecord, error) {
	if it.i >= len(it.entries) {
		return TruncateRecord{}, io.EOF
	}
	e := it.entries[it.i]
	it.i++
	return ReadTruncateRecordAt(it.blf.r, int64(e.Offset()))
}
