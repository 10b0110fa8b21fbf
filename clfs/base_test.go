package clfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fox-it/go-clfs/internal/format"
)

// writeUTF16NulString encodes s as UTF-16LE plus a trailing NUL code unit at
// off, returning the number of bytes written (including the terminator).
func writeUTF16NulString(data []byte, off int, s string) int {
	i := off
	for _, r := range s {
		format.PutU16(data, i, uint16(r))
		i += 2
	}
	format.PutU16(data, i, 0)
	i += 2
	return i - off
}

// baseRecordBuilder assembles a base record block with a caller-chosen tail
// layout (symbol table entries, hash symbols, contexts, names) appended
// after the fixed header.
type baseRecordBuilder struct {
	recOff int
	tail   int // next free relative offset, starts after the fixed header
	data   []byte
}

func newBaseRecordBuilder(recOff, capacity int) *baseRecordBuilder {
	return &baseRecordBuilder{
		recOff: recOff,
		tail:   format.BaseRecordFixedHeaderSize,
		data:   make([]byte, capacity),
	}
}

// putClientSymbol writes a HashSym + ClientContext + name triple at the
// builder's tail, wires slot `slot` of the client symbol table to it, and
// returns the context's relative offset (for field overrides).
func (b *baseRecordBuilder) putClientSymbol(slot int, name string) int {
	symOff := b.tail
	format.PutU32(b.data, b.recOff+symOff+format.HashSymOffsetNodeID+format.NodeIDOffsetType, uint32(format.NodeSymbol))
	b.tail += format.HashSymSize

	nameOff := b.tail
	format.PutU32(b.data, b.recOff+symOff+format.HashSymOffsetSymbolName, uint32(nameOff))
	n := writeUTF16NulString(b.data, b.recOff+nameOff, name)
	b.tail += n

	ctxOff := b.tail
	format.PutU16(b.data, b.recOff+symOff+format.HashSymOffsetOffset, uint16(ctxOff))
	format.PutU32(b.data, b.recOff+ctxOff+format.NodeIDOffsetType, uint32(format.NodeClientContext))
	b.tail += format.ClientContextSize

	tableOff := b.recOff + format.BaseRecordOffsetClientSymbolTable + slot*8
	format.PutU64(b.data, tableOff, uint64(symOff))
	return ctxOff
}

// putContainerSymbol writes a HashSym + ContainerContext + name triple at
// the builder's tail and wires slot `slot` of the container symbol table to
// it, returning the context's relative offset (for field overrides).
func (b *baseRecordBuilder) putContainerSymbol(slot int, name string) int {
	symOff := b.tail
	format.PutU32(b.data, b.recOff+symOff+format.HashSymOffsetNodeID+format.NodeIDOffsetType, uint32(format.NodeSymbol))
	b.tail += format.HashSymSize

	nameOff := b.tail
	format.PutU32(b.data, b.recOff+symOff+format.HashSymOffsetSymbolName, uint32(nameOff))
	n := writeUTF16NulString(b.data, b.recOff+nameOff, name)
	b.tail += n

	ctxOff := b.tail
	format.PutU16(b.data, b.recOff+symOff+format.HashSymOffsetOffset, uint16(ctxOff))
	format.PutU32(b.data, b.recOff+ctxOff+format.NodeIDOffsetType, uint32(format.NodeContainerContext))
	b.tail += format.ContainerContextSize

	tableOff := b.recOff + format.BaseRecordOffsetContainerSymbolTable + slot*8
	format.PutU64(b.data, tableOff, uint64(symOff))
	return ctxOff
}

// putSymbolWithBadNodeType writes a HashSym whose own NodeId.Type is not
// SYMBOL, wired into slot `slot` of the client symbol table.
func (b *baseRecordBuilder) putSymbolWithBadNodeType(slot int) {
	symOff := b.tail
	format.PutU32(b.data, b.recOff+symOff+format.HashSymOffsetNodeID+format.NodeIDOffsetType, uint32(format.NodeClientContext))
	b.tail += format.HashSymSize

	tableOff := b.recOff + format.BaseRecordOffsetClientSymbolTable + slot*8
	format.PutU64(b.data, tableOff, uint64(symOff))
}

// putMismatchedSymbol wires a client-symbol-table slot to a HashSym whose
// context NodeId.Type is CONTAINER_CONTEXT instead of CLIENT_CONTEXT.
func (b *baseRecordBuilder) putMismatchedSymbol(slot int, name string) {
	symOff := b.tail
	format.PutU32(b.data, b.recOff+symOff+format.HashSymOffsetNodeID+format.NodeIDOffsetType, uint32(format.NodeSymbol))
	b.tail += format.HashSymSize

	nameOff := b.tail
	format.PutU32(b.data, b.recOff+symOff+format.HashSymOffsetSymbolName, uint32(nameOff))
	n := writeUTF16NulString(b.data, b.recOff+nameOff, name)
	b.tail += n

	ctxOff := b.tail
	format.PutU16(b.data, b.recOff+symOff+format.HashSymOffsetOffset, uint16(ctxOff))
	format.PutU32(b.data, b.recOff+ctxOff+format.NodeIDOffsetType, uint32(format.NodeContainerContext))
	b.tail += format.ContainerContextSize

	tableOff := b.recOff + format.BaseRecordOffsetClientSymbolTable + slot*8
	format.PutU64(b.data, tableOff, uint64(symOff))
}

func (b *baseRecordBuilder) finish() []byte {
	need := b.recOff + b.tail
	totalSectors := (need + format.SectorSize - 1) / format.SectorSize
	size := totalSectors * format.SectorSize
	if size > len(b.data) {
		grown := make([]byte, size)
		copy(grown, b.data)
		b.data = grown
	} else {
		b.data = b.data[:size]
	}

	format.PutU16(b.data, format.LogBlockHeaderOffsetTotalSectors, uint16(totalSectors))
	format.PutU16(b.data, format.LogBlockHeaderOffsetValidSectors, uint16(totalSectors))
	format.PutU32(b.data, format.LogBlockHeaderOffsetRecordOffsets, uint32(b.recOff))
	fixupOffset := format.LogBlockHeaderSize
	format.PutU32(b.data, format.LogBlockHeaderOffsetFixupOffset, uint32(fixupOffset))

	planNoopFixup(b.data, fixupOffset, totalSectors)
	return b.data
}

func TestBaseRecord_Streams_SparseSymbolTable(t *testing.T) {
	const recOff = 0x70
	bld := newBaseRecordBuilder(recOff, 4096)
	bld.putClientSymbol(0, "Stream0")
	bld.putClientSymbol(3, "Stream3")
	data := bld.finish()

	rec, err := ReadBaseRecordAt(testReaderAt{data: data}, 0, format.MetaBlockGeneral)
	require.NoError(t, err)

	streams, err := rec.Streams()
	require.NoError(t, err)
	require.Len(t, streams, 2)
	require.Equal(t, "Stream0", streams[0].Name)
	require.Equal(t, "Stream3", streams[1].Name)
}

func TestBaseRecord_Streams_FlushThresholdAndState(t *testing.T) {
	const recOff = 0x70
	bld := newBaseRecordBuilder(recOff, 4096)
	ctxOff := bld.putClientSymbol(0, "Stream0")
	format.PutU32(bld.data, recOff+ctxOff+format.ClientContextOffsetFlushThreshold, 0x1000)
	format.PutU32(bld.data, recOff+ctxOff+format.ClientContextOffsetState, uint32(format.LogStateActive))
	data := bld.finish()

	rec, err := ReadBaseRecordAt(testReaderAt{data: data}, 0, format.MetaBlockGeneral)
	require.NoError(t, err)

	streams, err := rec.Streams()
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Equal(t, uint32(0x1000), streams[0].FlushThreshold)
	require.Equal(t, format.LogStateActive, streams[0].State)
}

func TestBaseRecord_Containers_ExposesQueueAndLinkFields(t *testing.T) {
	const recOff = 0x70
	bld := newBaseRecordBuilder(recOff, 4096)
	ctxOff := bld.putContainerSymbol(0, "Container0")
	format.PutU32(bld.data, recOff+ctxOff+format.ContainerContextOffsetQueueID, 7)
	bld.data[recOff+ctxOff+format.ContainerContextOffsetState] = 2
	bld.data[recOff+ctxOff+format.ContainerContextOffsetCurrentUsn] = 1
	format.PutU32(bld.data, recOff+ctxOff+format.ContainerContextOffsetPreviousOffset, 0x100)
	format.PutU32(bld.data, recOff+ctxOff+format.ContainerContextOffsetNextOffset, 0x200)
	data := bld.finish()

	rec, err := ReadBaseRecordAt(testReaderAt{data: data}, 0, format.MetaBlockGeneral)
	require.NoError(t, err)

	containers, err := rec.Containers()
	require.NoError(t, err)
	require.Len(t, containers, 1)
	require.Equal(t, uint32(7), containers[0].QueueID)
	require.Equal(t, uint8(2), containers[0].State)
	require.Equal(t, uint8(1), containers[0].CurrentUsn)
	require.Equal(t, uint32(0x100), containers[0].PreviousOffset)
	require.Equal(t, uint32(0x200), containers[0].NextOffset)
}

func TestBaseRecord_Streams_SymbolNodeTypeMismatch(t *testing.T) {
	const recOff = 0x70
	bld := newBaseRecordBuilder(recOff, 4096)
	bld.putSymbolWithBadNodeType(0)
	data := bld.finish()

	rec, err := ReadBaseRecordAt(testReaderAt{data: data}, 0, format.MetaBlockGeneral)
	require.NoError(t, err)

	_, err = rec.Streams()
	require.ErrorIs(t, err, ErrInvalidContext)
}

func TestBaseRecord_Streams_ContextTypeMismatch(t *testing.T) {
	const recOff = 0x70
	bld := newBaseRecordBuilder(recOff, 4096)
	bld.putMismatchedSymbol(0, "Bad")
	data := bld.finish()

	rec, err := ReadBaseRecordAt(testReaderAt{data: data}, 0, format.MetaBlockGeneral)
	require.NoError(t, err)

	_, err = rec.Streams()
	require.ErrorIs(t, err, ErrInvalidContext)
}

func TestBaseRecord_Streams_Empty(t *testing.T) {
	const recOff = 0x70
	bld := newBaseRecordBuilder(recOff, 4096)
	data := bld.finish()

	rec, err := ReadBaseRecordAt(testReaderAt{data: data}, 0, format.MetaBlockGeneral)
	require.NoError(t, err)

	streams, err := rec.Streams()
	require.NoError(t, err)
	require.Empty(t, streams)

	containers, err := rec.Containers()
	require.NoError(t, err)
	require.Empty(t, containers)
}
