package clfs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fox-it/go-clfs/internal/format"
)

// buildGeneralBlock constructs a block holding a base record with every
// symbol table slot zeroed (no streams, no containers, no error).
func buildGeneralBlock(recOff int) []byte {
	need := recOff + format.BaseRecordFixedHeaderSize
	totalSectors := (need + format.SectorSize - 1) / format.SectorSize
	data := make([]byte, totalSectors*format.SectorSize)

	format.PutU16(data, format.LogBlockHeaderOffsetTotalSectors, uint16(totalSectors))
	format.PutU16(data, format.LogBlockHeaderOffsetValidSectors, uint16(totalSectors))
	format.PutU32(data, format.LogBlockHeaderOffsetRecordOffsets, uint32(recOff))
	fixupOffset := format.LogBlockHeaderSize
	format.PutU32(data, format.LogBlockHeaderOffsetFixupOffset, uint32(fixupOffset))

	planNoopFixup(data, fixupOffset, totalSectors)
	return data
}

// buildScratchBlock constructs a block holding a minimal truncate record.
func buildScratchBlock(recOff int) []byte {
	need := recOff + format.TruncateRecordFixedSize
	totalSectors := (need + format.SectorSize - 1) / format.SectorSize
	data := make([]byte, totalSectors*format.SectorSize)

	format.PutU16(data, format.LogBlockHeaderOffsetTotalSectors, uint16(totalSectors))
	format.PutU16(data, format.LogBlockHeaderOffsetValidSectors, uint16(totalSectors))
	format.PutU32(data, format.LogBlockHeaderOffsetRecordOffsets, uint32(recOff))
	fixupOffset := format.LogBlockHeaderSize
	format.PutU32(data, format.LogBlockHeaderOffsetFixupOffset, uint32(fixupOffset))

	planNoopFixup(data, fixupOffset, totalSectors)
	return data
}

// buildBLFFile assembles a root control block (with entries pointing at
// itself, a general block, and a scratch block) followed by those blocks.
func buildBLFFile(t *testing.T) []byte {
	t.Helper()

	const recOff = 0x70
	generalBlock := buildGeneralBlock(recOff)
	scratchBlock := buildScratchBlock(recOff)

	rootNeed := recOff + format.ControlRecordFixedSize + 3*format.MetadataBlockEntrySize
	rootSectors := (rootNeed + format.SectorSize - 1) / format.SectorSize
	root := make([]byte, rootSectors*format.SectorSize)

	format.PutU16(root, format.LogBlockHeaderOffsetTotalSectors, uint16(rootSectors))
	format.PutU16(root, format.LogBlockHeaderOffsetValidSectors, uint16(rootSectors))
	format.PutU32(root, format.LogBlockHeaderOffsetRecordOffsets, uint32(recOff))
	fixupOffset := format.LogBlockHeaderSize
	format.PutU32(root, format.LogBlockHeaderOffsetFixupOffset, uint32(fixupOffset))

	format.PutU64(root, recOff+format.ControlRecordOffsetMagic, format.ControlRecordMagic)
	format.PutU32(root, recOff+format.ControlRecordOffsetBlocks, 3)

	generalOffset := int64(len(root))
	scratchOffset := generalOffset + int64(len(generalBlock))

	entriesOff := recOff + format.ControlRecordFixedSize
	writeEntry := func(i int, typ format.MetadataBlockType, off int64) {
		base := entriesOff + i*format.MetadataBlockEntrySize
		format.PutU32(root, base+format.MetadataBlockEntryOffsetOffset, uint32(off))
		format.PutU32(root, base+format.MetadataBlockEntryOffsetType, uint32(typ))
	}
	writeEntry(0, format.MetaBlockControl, 0)
	writeEntry(1, format.MetaBlockGeneral, generalOffset)
	writeEntry(2, format.MetaBlockScratch, scratchOffset)

	planNoopFixup(root, fixupOffset, rootSectors)

	file := append([]byte{}, root...)
	file = append(file, generalBlock...)
	file = append(file, scratchBlock...)
	return file
}

func TestBLF_IteratorsFilterByType(t *testing.T) {
	data := buildBLFFile(t)
	blf, err := NewBLF(testReaderAt{data: data})
	require.NoError(t, err)

	cit := blf.ControlRecords()
	n := 0
	for {
		cr, err := cit.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.True(t, cr.Valid())
		n++
	}
	require.Equal(t, 1, n)

	bit := blf.BaseRecords()
	rec, err := bit.Next()
	require.NoError(t, err)
	streams, err := rec.Streams()
	require.NoError(t, err)
	require.Empty(t, streams)
	_, err = bit.Next()
	require.ErrorIs(t, err, io.EOF)

	tit := blf.TruncateRecords()
	_, err = tit.Next()
	require.NoError(t, err)
	_, err = tit.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestBLF_IteratorsAreIdempotent(t *testing.T) {
	data := buildBLFFile(t)
	blf, err := NewBLF(testReaderAt{data: data})
	require.NoError(t, err)

	first := blf.BaseRecords()
	_, err = first.Next()
	require.NoError(t, err)

	second := blf.BaseRecords()
	_, err = second.Next()
	require.NoError(t, err)
}
