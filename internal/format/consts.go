// Package format houses low-level decoders for the Windows Common Log File
// System (CLFS) on-disk structures. The goal is to keep the parsing focused,
// allocation-free where possible, and independent from the public API so the
// clfs package can orchestrate the data in a more ergonomic form.
package format

// SectorSize is the fixed CLFS sector size in bytes. Every log block is a
// whole number of sectors.
const SectorSize = 512

// ControlRecordMagic is the constant value stored in a control record's
// Magic field. A BLF is considered valid only if this value matches exactly.
const ControlRecordMagic uint64 = 0xC1F5C1F500005F1C

// NodeType identifies the kind of structure a CLFS_NODE_ID refers to.
type NodeType uint32

// CLFS node type constants, taken from clfslsn.h.
const (
	NodeFCB                   NodeType = 0xC1FDF001
	NodeVCB                   NodeType = 0xC1FDF002
	NodeCCB                   NodeType = 0xC1FDF003
	NodeREQ                   NodeType = 0xC1FDF004
	NodeCCA                   NodeType = 0xC1FDF005
	NodeSymbol                NodeType = 0xC1FDF006
	NodeClientContext         NodeType = 0xC1FDF007
	NodeContainerContext      NodeType = 0xC1FDF008
	NodeDeviceExtension       NodeType = 0xC1FDF009
	NodeMarshalingArea        NodeType = 0xC1FDF00A
	NodeArchiveContext        NodeType = 0xC1FDF00C
	NodeSharedSecurityContext NodeType = 0xC1FDF00D
	NodeScanContext           NodeType = 0xC1FDF00E
	NodeLogReadIOCB           NodeType = 0xC1FDF00F
	NodeLogWriteIOCB          NodeType = 0xC1FDF010
)

// String renders the node type using its symbolic name when known.
func (t NodeType) String() string {
	switch t {
	case NodeFCB:
		return "FCB"
	case NodeVCB:
		return "VCB"
	case NodeCCB:
		return "CCB"
	case NodeREQ:
		return "REQ"
	case NodeCCA:
		return "CCA"
	case NodeSymbol:
		return "SYMBOL"
	case NodeClientContext:
		return "CLIENT_CONTEXT"
	case NodeContainerContext:
		return "CONTAINER_CONTEXT"
	case NodeDeviceExtension:
		return "DEVICE_EXTENSION"
	case NodeMarshalingArea:
		return "MARSHALING_AREA"
	case NodeArchiveContext:
		return "ARCHIVE_CONTEXT"
	case NodeSharedSecurityContext:
		return "SHARED_SECURITY_CONTEXT"
	case NodeScanContext:
		return "SCAN_CONTEXT"
	case NodeLogReadIOCB:
		return "LOG_READ_IOCB"
	case NodeLogWriteIOCB:
		return "LOG_WRITE_IOCB"
	default:
		return "UNKNOWN"
	}
}

// MetadataBlockType classifies an entry in the control record's block table.
// Odd values are shadow copies carrying the previous transaction's state.
type MetadataBlockType uint32

const (
	MetaBlockControl       MetadataBlockType = 0
	MetaBlockControlShadow MetadataBlockType = 1
	MetaBlockGeneral       MetadataBlockType = 2
	MetaBlockGeneralShadow MetadataBlockType = 3
	MetaBlockScratch       MetadataBlockType = 4
	MetaBlockScratchShadow MetadataBlockType = 5
)

// IsShadow reports whether the block type is a shadow (odd-valued) copy.
func (t MetadataBlockType) IsShadow() bool { return t%2 == 1 }

func (t MetadataBlockType) String() string {
	switch t {
	case MetaBlockControl:
		return "Control"
	case MetaBlockControlShadow:
		return "ControlShadow"
	case MetaBlockGeneral:
		return "General"
	case MetaBlockGeneralShadow:
		return "GeneralShadow"
	case MetaBlockScratch:
		return "Scratch"
	case MetaBlockScratchShadow:
		return "ScratchShadow"
	default:
		return "Unknown"
	}
}

// LogBlockFlags is the flags field of a log block header.
type LogBlockFlags uint32

const (
	BlockFlagReset           LogBlockFlags = 0x00000000
	BlockFlagEncoded         LogBlockFlags = 0x00000001
	BlockFlagDecoded         LogBlockFlags = 0x00000002
	BlockFlagLatched         LogBlockFlags = 0x00000004
	BlockFlagTruncateDiscard LogBlockFlags = 0x00000008
)

// RecordType is a bitmask describing the role of a container record header.
type RecordType uint32

const (
	RecordNull         RecordType = 0x00000000
	RecordData         RecordType = 0x00000001
	RecordRestart      RecordType = 0x00000002
	RecordStart        RecordType = 0x00000004
	RecordEnd          RecordType = 0x00000008
	RecordContinuation RecordType = 0x00000010
	RecordLast         RecordType = 0x00000020
)

// Has reports whether bit is set in the record type bitmask.
func (t RecordType) Has(bit RecordType) bool { return t&bit != 0 }

// ExtendState is the CLFS_EXTEND_STATE value carried opaquely in the control
// record.
type ExtendState uint32

const (
	ExtendStateNone          ExtendState = 0x00000000
	ExtendStateExtendingFsd  ExtendState = 0x00000001
	ExtendStateFlushingBlock ExtendState = 0x00000002
)

// TruncateState is the CLFS_TRUNCATE_STATE value carried opaquely in the
// control record's truncate context.
type TruncateState uint32

const (
	TruncateStateNone                  TruncateState = 0x00000000
	TruncateStateModifyingStream       TruncateState = 0x00000001
	TruncateStateSavingOwner           TruncateState = 0x00000002
	TruncateStateModifyingOwner        TruncateState = 0x00000003
	TruncateStateSavingDiscardBlock    TruncateState = 0x00000004
	TruncateStateModifyingDiscardBlock TruncateState = 0x00000005
)

// LogState is the CLFS_LOG_STATE value carried on a client context.
type LogState uint32

const (
	LogStateUninitialized  LogState = 0x00000001
	LogStateInitialized    LogState = 0x00000002
	LogStateActive         LogState = 0x00000004
	LogStatePendingDelete  LogState = 0x00000008
	LogStatePendingArchive LogState = 0x00000010
	LogStateShutdown       LogState = 0x00000020
	LogStateMultiplexed    LogState = 0x00000040
	LogStateSecure         LogState = 0x00000080
)

// Field offsets and sizes for CLFS_LOG_BLOCK_HEADER.
const (
	LogBlockHeaderOffsetMajorVersion  = 0x00
	LogBlockHeaderOffsetMinorVersion  = 0x01
	LogBlockHeaderOffsetFixup         = 0x02
	LogBlockHeaderOffsetClientID      = 0x03
	LogBlockHeaderOffsetTotalSectors  = 0x04
	LogBlockHeaderOffsetValidSectors  = 0x06
	LogBlockHeaderOffsetReserved1     = 0x08
	LogBlockHeaderOffsetChecksum      = 0x0C
	LogBlockHeaderOffsetFlags         = 0x10
	LogBlockHeaderOffsetReserved2     = 0x14
	LogBlockHeaderOffsetCurrentLsn    = 0x18
	LogBlockHeaderOffsetNextLsn       = 0x20
	LogBlockHeaderOffsetRecordOffsets = 0x28 // 16 x uint32
	LogBlockHeaderNumRecordOffsets    = 16
	LogBlockHeaderOffsetFixupOffset   = 0x68
	LogBlockHeaderSize                = 0x6C
)

// Field offsets for CLFS_METADATA_RECORD_HEADER (just DumpCount).
const (
	MetadataRecordHeaderOffsetDumpCount = 0x00
	MetadataRecordHeaderSize            = 0x08
)

// Field offsets for CLFS_CONTROL_RECORD, following the embedded
// CLFS_METADATA_RECORD_HEADER.
const (
	ControlRecordOffsetMagic             = MetadataRecordHeaderSize + 0x00
	ControlRecordOffsetVersion            = MetadataRecordHeaderSize + 0x08
	ControlRecordOffsetReserved1          = MetadataRecordHeaderSize + 0x09
	ControlRecordOffsetReserved2          = MetadataRecordHeaderSize + 0x0A
	ControlRecordOffsetReserved3          = MetadataRecordHeaderSize + 0x0B
	ControlRecordOffsetExtendState        = MetadataRecordHeaderSize + 0x0C
	ControlRecordOffsetExtendBlock        = MetadataRecordHeaderSize + 0x10
	ControlRecordOffsetFlushBlock         = MetadataRecordHeaderSize + 0x12
	ControlRecordOffsetNewBlockSectors    = MetadataRecordHeaderSize + 0x14
	ControlRecordOffsetExtendStartSectors = MetadataRecordHeaderSize + 0x18
	ControlRecordOffsetExtendSectors      = MetadataRecordHeaderSize + 0x1C
	ControlRecordOffsetTruncateContext    = MetadataRecordHeaderSize + 0x20
	TruncateContextSize                   = 0x20
	ControlRecordOffsetBlocks             = ControlRecordOffsetTruncateContext + TruncateContextSize
	ControlRecordOffsetReserved4          = ControlRecordOffsetBlocks + 0x04
	ControlRecordFixedSize                = ControlRecordOffsetReserved4 + 0x04
)

// Field offsets inside CLFS_TRUNCATE_CONTEXT, relative to its own start.
const (
	TruncateContextOffsetTruncateState   = 0x00
	TruncateContextOffsetClients         = 0x04
	TruncateContextOffsetClient          = 0x05
	TruncateContextOffsetTruncateField   = 0x06
	TruncateContextOffsetLsnOwnerPage    = 0x08
	TruncateContextOffsetLsnLastOwnerPage = 0x10
	TruncateContextOffsetInvalidSector   = 0x18
)

// MetadataBlockEntry field offsets. On disk each entry carries an 8-byte
// union alias (unused by this parser) ahead of the offset/type/padding
// fields the original source actually reads, per
// original_source/dissect/clfs/c_clfs.py's CLFS_METADATA_BLOCK.
const (
	MetadataBlockEntryOffsetAlias  = 0x00
	MetadataBlockEntryAliasSize    = 0x08
	MetadataBlockEntryOffsetOffset = MetadataBlockEntryOffsetAlias + MetadataBlockEntryAliasSize + 0x04
	MetadataBlockEntryOffsetType   = MetadataBlockEntryOffsetOffset + 0x04
	MetadataBlockEntrySize         = MetadataBlockEntryOffsetType + 0x08
)

// Field offsets for CLFS_BASE_RECORD_HEADER, following the embedded
// CLFS_METADATA_RECORD_HEADER.
const (
	BaseRecordOffsetIdLog                 = MetadataRecordHeaderSize + 0x00
	IdLogSize                             = 16
	BaseRecordOffsetClientSymbolTable     = BaseRecordOffsetIdLog + IdLogSize
	SymbolTableEntries                    = 11
	SymbolTableSize                       = SymbolTableEntries * 8
	BaseRecordOffsetContainerSymbolTable  = BaseRecordOffsetClientSymbolTable + SymbolTableSize
	BaseRecordOffsetSecuritySymbolTable   = BaseRecordOffsetContainerSymbolTable + SymbolTableSize
	BaseRecordFixedHeaderSize             = BaseRecordOffsetSecuritySymbolTable + SymbolTableSize
)

// Field offsets for CLFS_NODE_ID.
const (
	NodeIDOffsetType = 0x00
	NodeIDOffsetNode = 0x04
	NodeIDSize       = 0x08
)

// Field offsets for CLFS_HASH_SYM.
const (
	HashSymOffsetNodeID     = 0x00
	HashSymOffsetUlHash     = NodeIDSize + 0x00
	HashSymOffsetCbHash     = NodeIDSize + 0x04
	HashSymOffsetBelow      = NodeIDSize + 0x08
	HashSymOffsetAbove      = NodeIDSize + 0x10
	HashSymOffsetSymbolName = NodeIDSize + 0x18
	HashSymOffsetOffset     = NodeIDSize + 0x1C
	HashSymOffsetDeleted    = NodeIDSize + 0x1E
	HashSymSize             = NodeIDSize + 0x20
)

// Field offsets for CLFS_CLIENT_CONTEXT.
const (
	ClientContextOffsetNodeID         = 0x00
	ClientContextOffsetClientID       = NodeIDSize + 0x00
	ClientContextOffsetUnknown1       = NodeIDSize + 0x01
	ClientContextOffsetFileAttributes = NodeIDSize + 0x02
	ClientContextOffsetFlushThreshold = NodeIDSize + 0x04
	ClientContextOffsetUnknown2       = NodeIDSize + 0x08
	Unknown2Size                      = 5 * 8
	ClientContextOffsetLsnArchiveTail = ClientContextOffsetUnknown2 + Unknown2Size
	ClientContextOffsetLsnBase        = ClientContextOffsetLsnArchiveTail + 8
	ClientContextOffsetLsnFlush       = ClientContextOffsetLsnBase + 8
	ClientContextOffsetLsnLast        = ClientContextOffsetLsnFlush + 8
	ClientContextOffsetLsnPhysicalBase = ClientContextOffsetLsnLast + 8
	ClientContextOffsetLsnUnused1     = ClientContextOffsetLsnPhysicalBase + 8
	ClientContextOffsetLsnUnused2     = ClientContextOffsetLsnUnused1 + 8
	ClientContextOffsetState         = ClientContextOffsetLsnUnused2 + 8
	ClientContextOffsetSecurityContext = ClientContextOffsetState + 4
	ClientContextSize                = ClientContextOffsetSecurityContext + 8
)

// Field offsets for CLFS_CONTAINER_CONTEXT.
const (
	ContainerContextOffsetNodeID         = 0x00
	ContainerContextOffsetContainer      = NodeIDSize + 0x00
	ContainerContextOffsetContainerID    = NodeIDSize + 0x08
	ContainerContextOffsetQueueID        = NodeIDSize + 0x0C
	ContainerContextOffsetAlignment      = NodeIDSize + 0x10
	ContainerContextOffsetCurrentUsn     = NodeIDSize + 0x18
	ContainerContextOffsetState          = NodeIDSize + 0x19
	ContainerContextOffsetPreviousOffset = NodeIDSize + 0x1A
	ContainerContextOffsetNextOffset     = NodeIDSize + 0x1E
	ContainerContextSize                 = NodeIDSize + 0x22
)

// Field offsets for CLFS_SHARED_SECURITY_CONTEXT, decoded only far enough to
// validate NodeId.Type; the descriptor payload is a non-goal (spec.md §1).
const (
	SharedSecurityContextOffsetNodeID = 0x00
	SharedSecurityContextFixedSize    = NodeIDSize + 0x10
)

// Field offsets for CLFS_TRUNCATE_RECORD_HEADER, following the embedded
// CLFS_METADATA_RECORD_HEADER.
const (
	TruncateRecordOffsetClientChangeOffset = MetadataRecordHeaderSize + 0x00
	TruncateRecordOffsetOwnerPageOffset    = MetadataRecordHeaderSize + 0x04
	TruncateRecordFixedSize                = MetadataRecordHeaderSize + 0x08
	// TruncateRecordDefaultAdvance is the distance to the client-change
	// chain when ClientChangeOffset is unset (spec.md §4.5).
	TruncateRecordDefaultAdvance = 0x10
)

// Field offsets for the container RECORD_HEADER. Note the reserved
// "Unknown" DWORD between DataSize and RecordFlags, present on-disk in the
// original structure though unused by any parser logic here.
const (
	RecordHeaderOffsetLsnVirtual  = 0x00
	RecordHeaderOffsetLsnUndoNext = 0x08
	RecordHeaderOffsetLsnPrevious = 0x10
	RecordHeaderOffsetDataSize    = 0x18
	RecordHeaderOffsetUnknown     = 0x1C
	RecordHeaderOffsetRecordFlags = 0x20
	RecordHeaderOffsetOffset      = 0x22
	RecordHeaderOffsetType        = 0x24
	RecordHeaderSize              = 0x28
)

// MaxSymbolNameBytes bounds the NUL-terminated UTF-16LE symbol/string reads
// against corrupt input that never terminates (spec.md §9).
const MaxSymbolNameBytes = 1024
