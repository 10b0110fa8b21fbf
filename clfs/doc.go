// Package clfs provides read-only, zero-copy parsing of the Windows Common
// Log File System (CLFS) Base Log File (BLF) format and its container
// files.
//
// # Overview
//
// A BLF describes where its own metadata blocks live via a control record,
// points at the clients (streams) and containers registered against it via
// base records, and optionally records an in-progress truncation via a
// truncate record. The actual client data lives in separate container
// files, each a chain of fixed-up log blocks linked by LSN.
//
// # Opening a BLF
//
//	b, err := clfs.Open("/path/to/Something.blf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	it := b.BaseRecords()
//	for {
//	    rec, err := it.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    streams, _ := rec.Streams()
//	    containers, _ := rec.Containers()
//	    _ = streams
//	    _ = containers
//	}
//
// # Reading a container
//
//	w, err := clfs.OpenContainer("/path/to/container-file", recordOffset)
//	for {
//	    rec, err := w.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    // rec.Data is the client's record payload
//	}
//
// # Zero-Copy Design
//
// Every decoded type in this package is a thin view over the bytes of a
// fixed-up log block; no structure is deep-copied during a walk, only the
// per-record payload slices a caller actually reads.
package clfs
