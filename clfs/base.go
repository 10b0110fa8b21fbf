package clfs

import (
	"fmt"
	"io"

	"github.com/fox-it/go-clfs/internal/format"
)

// Stream describes one client (log writer) registered in a base record's
// client symbol table.
type Stream struct {
	Name            string
	ID              uint8
	FileAttributes  uint16
	FlushThreshold  uint32
	State           format.LogState
	Type            format.MetadataBlockType
	LsnArchiveTail  LSN
	LsnBase         LSN
	LsnLast         LSN
	LsnFlush        LSN
	LsnPhysicalBase LSN
	// Offset is LsnPhysicalBase.RecordIndex() - 1: the container-relative
	// record offset this stream's client context was last flushed to.
	Offset int64
}

// Container describes one log container registered in a base record's
// container symbol table.
type Container struct {
	Name           string
	Size           uint64
	ID             uint32
	QueueID        uint32
	State          uint8
	CurrentUsn     uint8
	PreviousOffset uint32
	NextOffset     uint32
	Type           format.MetadataBlockType
}

// BaseRecord holds the container and client registrations for one
// general/general-shadow block: which files back which streams, and which
// client is currently writing to which container.
type BaseRecord struct {
	block     LogBlock
	rec       int
	blockType format.MetadataBlockType
}

// ReadBaseRecordAt reads the log block at offset and decodes the base
// record header starting at that block's first record offset.
func ReadBaseRecordAt(r io.ReaderAt, offset int64, blockType format.MetadataBlockType) (BaseRecord, error) {
	block, err := ReadLogBlockAt(r, offset)
	if err != nil {
		return BaseRecord{}, parseErr(offset, err)
	}

	rec := int(block.FirstRecordOffset())
	if _, err := format.FieldAt(block.Data, rec, format.BaseRecordFixedHeaderSize); err != nil {
		return BaseRecord{}, parseErr(offset, fmt.Errorf("%w: base record header: %v", ErrInvalidRecordBlock, err))
	}

	return BaseRecord{block: block, rec: rec, blockType: blockType}, nil
}

// Streams walks the client symbol table and returns one Stream per
// occupied slot, in table order. The 11-slot table is a dense array, not a
// hash table, despite its ClfsHashSym-derived name: every non-zero slot is
// visited, none are skipped as "buckets".
func (b BaseRecord) Streams() ([]Stream, error) {
	offsets, err := b.symbolTable(format.BaseRecordOffsetClientSymbolTable)
	if err != nil {
		return nil, err
	}

	var streams []Stream
	for _, symOff := range offsets {
		sym, name, err := b.resolveSymbol(symOff)
		if err != nil {
			return nil, err
		}

		ctxOff := b.rec + int(sym.contextOffset())
		if _, err := format.FieldAt(b.block.Data, ctxOff, format.ClientContextSize); err != nil {
			return nil, parseErr(b.block.Offset, fmt.Errorf("%w: client context at %d: %v", ErrInvalidContext, ctxOff, err))
		}
		if t := format.NodeType(format.ReadU32(b.block.Data, ctxOff+format.NodeIDOffsetType)); t != format.NodeClientContext {
			return nil, parseErr(b.block.Offset, fmt.Errorf("%w: client context NodeId.Type %s", ErrInvalidContext, t))
		}

		lsnPhysicalBase := lsnAt(b.block.Data, ctxOff+format.ClientContextOffsetLsnPhysicalBase)
		streams = append(streams, Stream{
			Name:           name,
			ID:             b.block.Data[ctxOff+format.ClientContextOffsetClientID],
			FileAttributes: format.ReadU16(b.block.Data, ctxOff+format.ClientContextOffsetFileAttributes),
			FlushThreshold: format.ReadU32(b.block.Data, ctxOff+format.ClientContextOffsetFlushThreshold),
			State:          format.LogState(format.ReadU32(b.block.Data, ctxOff+format.ClientContextOffsetState)),
			Type:           b.blockType,
			LsnArchiveTail: lsnAt(b.block.Data, ctxOff+format.ClientContextOffsetLsnArchiveTail),
			LsnBase:        lsnAt(b.block.Data, ctxOff+format.ClientContextOffsetLsnBase),
			LsnLast:        lsnAt(b.block.Data, ctxOff+format.ClientContextOffsetLsnLast),
			LsnFlush:       lsnAt(b.block.Data, ctxOff+format.ClientContextOffsetLsnFlush),
			LsnPhysicalBase: lsnPhysicalBase,
			// Preserved as-is: the upstream parser this is grounded on computes
			// RecordIndex()-1 without further justification.
			Offset: int64(lsnPhysicalBase.RecordIndex()) - 1,
		})
	}
	return streams, nil
}

// Containers walks the container symbol table and returns one Container
// per occupied slot, in table order.
func (b BaseRecord) Containers() ([]Container, error) {
	offsets, err := b.symbolTable(format.BaseRecordOffsetContainerSymbolTable)
	if err != nil {
		return nil, err
	}

	var containers []Container
	for _, symOff := range offsets {
		sym, name, err := b.resolveSymbol(symOff)
		if err != nil {
			return nil, err
		}

		ctxOff := b.rec + int(sym.contextOffset())
		if _, err := format.FieldAt(b.block.Data, ctxOff, format.ContainerContextSize); err != nil {
			return nil, parseErr(b.block.Offset, fmt.Errorf("%w: container context at %d: %v", ErrInvalidContext, ctxOff, err))
		}
		if t := format.NodeType(format.ReadU32(b.block.Data, ctxOff+format.NodeIDOffsetType)); t != format.NodeContainerContext {
			return nil, parseErr(b.block.Offset, fmt.Errorf("%w: container context NodeId.Type %s", ErrInvalidContext, t))
		}

		containers = append(containers, Container{
			Name:           name,
			Size:           format.ReadU64(b.block.Data, ctxOff+format.ContainerContextOffsetContainer),
			ID:             format.ReadU32(b.block.Data, ctxOff+format.ContainerContextOffsetContainerID),
			QueueID:        format.ReadU32(b.block.Data, ctxOff+format.ContainerContextOffsetQueueID),
			State:          b.block.Data[ctxOff+format.ContainerContextOffsetState],
			CurrentUsn:     b.block.Data[ctxOff+format.ContainerContextOffsetCurrentUsn],
			PreviousOffset: format.ReadU32(b.block.Data, ctxOff+format.ContainerContextOffsetPreviousOffset),
			NextOffset:     format.ReadU32(b.block.Data, ctxOff+format.ContainerContextOffsetNextOffset),
			Type:           b.blockType,
		})
	}
	return containers, nil
}

// ValidateSecurityContexts walks the shared security symbol table and
// verifies each occupied slot's NodeId, without surfacing any payload: the
// shared security context is an in-memory CLFS structure and its
// descriptor bytes carry no on-disk semantics this parser exposes.
func (b BaseRecord) ValidateSecurityContexts() error {
	offsets, err := b.symbolTable(format.BaseRecordOffsetSecuritySymbolTable)
	if err != nil {
		return err
	}

	for _, symOff := range offsets {
		sym, _, err := b.resolveSymbol(symOff)
		if err != nil {
			return err
		}

		ctxOff := b.rec + int(sym.contextOffset())
		if _, err := format.FieldAt(b.block.Data, ctxOff, format.SharedSecurityContextFixedSize); err != nil {
			return parseErr(b.block.Offset, fmt.Errorf("%w: security context at %d: %v", ErrInvalidContext, ctxOff, err))
		}
		if t := format.NodeType(format.ReadU32(b.block.Data, ctxOff+format.NodeIDOffsetType)); t != format.NodeSharedSecurityContext {
			return parseErr(b.block.Offset, fmt.Errorf("%w: security context NodeId.Type %s", ErrInvalidContext, t))
		}
	}
	return nil
}

// symbolTable reads the 11 raw offsets of the symbol table at tableOff
// (relative to the base record start), skipping unused (zero) slots.
func (b BaseRecord) symbolTable(tableOff int) ([]uint64, error) {
	if _, err := format.FieldAt(b.block.Data, b.rec+tableOff, format.SymbolTableSize); err != nil {
		return nil, parseErr(b.block.Offset, fmt.Errorf("%w: symbol table at %d: %v", ErrInvalidSymbolTable, tableOff, err))
	}

	var offsets []uint64
	for i := 0; i < format.SymbolTableEntries; i++ {
		v := format.ReadU64(b.block.Data, b.rec+tableOff+i*8)
		if v != 0 {
			offsets = append(offsets, v)
		}
	}
	return offsets, nil
}

// hashSym is a zero-copy view over one CLFS_HASH_SYM preceding a symbol.
type hashSym struct {
	raw []byte
}

func (s hashSym) nodeType() format.NodeType {
	return format.NodeType(format.ReadU32(s.raw, format.HashSymOffsetNodeID+format.NodeIDOffsetType))
}

func (s hashSym) symbolNameOffset() uint32 {
	return format.ReadU32(s.raw, format.HashSymOffsetSymbolName)
}

func (s hashSym) contextOffset() uint16 {
	return format.ReadU16(s.raw, format.HashSymOffsetOffset)
}

// resolveSymbol reads the ClfsHashSym at symOff (relative to the base
// record start) and its NUL-terminated UTF-16LE name, validating the
// symbol's own NodeId along the way.
func (b BaseRecord) resolveSymbol(symOff uint64) (hashSym, string, error) {
	off := b.rec + int(symOff)
	raw, err := format.FieldAt(b.block.Data, off, format.HashSymSize)
	if err != nil {
		return hashSym{}, "", parseErr(b.block.Offset, fmt.Errorf("%w: symbol at %d: %v", ErrInvalidSymbolTable, off, err))
	}

	sym := hashSym{raw: raw}
	if sym.nodeType() != format.NodeSymbol {
		return hashSym{}, "", parseErr(b.block.Offset, fmt.Errorf("%w: symbol NodeId.Type %s", ErrInvalidContext, sym.nodeType()))
	}

	name, err := format.ReadUTF16NulString(b.block.Data, b.rec+int(sym.symbolNameOffset()))
	if err != nil {
		return hashSym{}, "", parseErr(b.block.Offset, fmt.Errorf("%w: symbol name: %v", ErrInvalidSymbolTable, err))
	}

	return sym, name, nil
}
