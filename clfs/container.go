package clfs

import (
	"fmt"
	"io"
	"os"

	"github.com/fox-it/go-clfs/internal/format"
)

// maxContainerIterations bounds the walk below against a cyclic or
// corrupt LsnPrevious chain (spec design note: the chain is treated as
// opaque, so this is a safety backstop rather than cycle detection).
const maxContainerIterations = 1 << 20

// Record is one client data record recovered from a container file:
// Offset within the container, its decoded payload, and any leading
// block-local data accumulated before the record's Start header.
type Record struct {
	Offset    int64
	Data      []byte
	BlockData []byte
}

// recordHeader is a zero-copy view over one container RECORD_HEADER.
type recordHeader struct {
	raw []byte
}

func (h recordHeader) recordType() format.RecordType {
	return format.RecordType(format.ReadU32(h.raw, format.RecordHeaderOffsetType))
}

func (h recordHeader) dataSize() uint32 { return format.ReadU32(h.raw, format.RecordHeaderOffsetDataSize) }

func (h recordHeader) offsetField() uint16 {
	return format.ReadU16(h.raw, format.RecordHeaderOffsetOffset)
}

func (h recordHeader) lsnPrevious() uint64 {
	return format.ReadU64(h.raw, format.RecordHeaderOffsetLsnPrevious)
}

// ContainerWalker walks the linked record headers of a container file,
// following LsnPrevious backwards to recover the records that were
// actually written by CLFS clients.
type ContainerWalker struct {
	r io.ReaderAt
	f *os.File // non-nil when opened via OpenContainer; closed by Close

	logBlockOffset  int64
	block           LogBlock
	cur             *format.Cursor
	curRecordOffset int // position of curHeader when its block was (re)opened
	curHeader       recordHeader

	done       bool
	iterations int
}

// NewContainerWalker opens the container log block at offset and prepares
// to walk its records.
func NewContainerWalker(r io.ReaderAt, offset int64) (*ContainerWalker, error) {
	w := &ContainerWalker{r: r, logBlockOffset: offset}
	if err := w.openBlock(offset); err != nil {
		return nil, parseErr(offset, err)
	}
	return w, nil
}

// OpenContainer opens the container file at path and returns a walker
// starting at offset, closing the file automatically once the walk is
// exhausted or abandoned via Close. It is the path-based counterpart to
// NewContainerWalker, mirroring Open/NewBLF's dual entry points.
func OpenContainer(path string, offset int64) (*ContainerWalker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	w, err := NewContainerWalker(f, offset)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.f = f
	return w, nil
}

// Close releases the underlying file, if this walker was opened via
// OpenContainer.
func (w *ContainerWalker) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *ContainerWalker) openBlock(offset int64) error {
	block, err := ReadLogBlockAt(w.r, offset)
	if err != nil {
		return err
	}
	w.block = block
	w.cur = format.NewCursor(block.Data)
	w.curRecordOffset = int(block.FirstRecordOffset())
	if err := w.cur.Seek(w.curRecordOffset); err != nil {
		return fmt.Errorf("%w: first record offset: %v", ErrInvalidRecordBlock, err)
	}

	hdr, err := w.readHeader()
	if err != nil {
		return err
	}
	w.curHeader = hdr
	return nil
}

func (w *ContainerWalker) readHeader() (recordHeader, error) {
	pos := w.cur.Pos()
	raw, err := w.cur.Bytes(format.RecordHeaderSize)
	if err != nil {
		return recordHeader{}, fmt.Errorf("%w: record header at %d: %v", ErrInvalidRecordBlock, pos, err)
	}
	return recordHeader{raw: raw}, nil
}

func (w *ContainerWalker) readBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative record length %d", ErrInvalidRecordBlock, n)
	}
	pos := w.cur.Pos()
	raw, err := w.cur.Bytes(n)
	if err != nil {
		return nil, fmt.Errorf("%w: record data at %d: %v", ErrInvalidRecordBlock, pos, err)
	}
	return raw, nil
}

// Next returns the next record, or io.EOF once the chain reaches a header
// with a zero LsnPrevious (end of log sequence).
func (w *ContainerWalker) Next() (Record, error) {
	if w.done {
		return Record{}, io.EOF
	}
	defer func() {
		if w.done {
			_ = w.Close()
		}
	}()

	for {
		w.iterations++
		if w.iterations > maxContainerIterations {
			w.done = true
			return Record{}, fmt.Errorf("clfs: container walk exceeded %d iterations", maxContainerIterations)
		}

		t := w.curHeader.recordType()

		var blockData []byte
		if t.Has(format.RecordData) {
			n := int(w.curHeader.dataSize()) - int(w.curHeader.offsetField())
			bd, err := w.readBytes(n)
			if err != nil {
				w.done = true
				return Record{}, err
			}
			blockData = bd
		}

		if t.Has(format.RecordStart) {
			nextHeader, err := w.readHeader()
			if err != nil {
				w.done = true
				return Record{}, err
			}

			n := int(nextHeader.dataSize()) - int(nextHeader.offsetField())
			data, err := w.readBytes(n)
			if err != nil {
				w.done = true
				return Record{}, err
			}

			rec := Record{
				Offset:    w.logBlockOffset + int64(w.curRecordOffset),
				Data:      data,
				BlockData: blockData,
			}

			if nextHeader.lsnPrevious() == 0 {
				w.done = true
				return rec, nil
			}

			// The new block offset takes effect only once a Last-flagged
			// header is reached; until then the walk keeps reading
			// sequentially through the currently open block.
			w.logBlockOffset = int64(nextHeader.lsnPrevious()) - 1
			w.curHeader = nextHeader
			return rec, nil
		}

		if t.Has(format.RecordLast) {
			if err := w.openBlock(w.logBlockOffset); err != nil {
				w.done = true
				return Record{}, err
			}
			continue
		}

		// A header with neither Start nor Last (and optionally Data) never
		// advances the read position; without a bound this would spin
		// forever on a record stream that doesn't end in Start or Last.
		w.done = true
		return Record{}, fmt.Errorf("%w: record header has neither Start nor Last bit set", ErrInvalidRecordBlock)
	}
}
