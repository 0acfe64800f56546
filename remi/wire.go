package remi

// FilesetWire is the wire form of a Fileset, as described in spec §6:
// (class, provider_id, root, metadata, files, directories, xfer_size).
// It is deliberately a plain data type with no behavior: the fileset
// package owns the logic, this package only owns the shape that crosses
// an RPC boundary.
type FilesetWire struct {
	Class       string
	ProviderID  uint16
	Root        string
	Metadata    map[string]string
	Files       []string
	Directories []string
	XferSize    uint64
}

// StartRequest is the request body of remi_migrate_start.
type StartRequest struct {
	Fileset FilesetWire
	Sizes   []uint64
	// Modes carries one transport mode per file, but the sender always
	// fills every element with the single Mode passed to Migrate: a
	// migration call transfers all of its files via MMAP or all via
	// CHUNKED, never a mix. The per-file shape matches spec §6's aligned
	// "mode vector" wire form and leaves room for a future per-file
	// transport choice, but nothing in this repo exercises a mixed-mode
	// Start request today.
	Modes []uint32
	// Checksums holds one Merkle root per file, in the same order as
	// Fileset.Files, when the sender opted into content verification. A
	// nil/empty slice means "not provided" and the receiver falls back to
	// the length-only check described in spec §4.3.
	Checksums [][]byte
	// Perms holds the source Unix permission bits of each file, in the
	// same order as Fileset.Files, so the receiver can recreate them
	// rather than defaulting to some fixed mode (spec §8 property 2).
	Perms []uint32
}

// StartResponse is the response body of remi_migrate_start.
type StartResponse struct {
	Err        Error
	UserStatus int32
	OpID       OpID
}

// MMAPRequest is the request body of remi_migrate_mmap.
type MMAPRequest struct {
	OpID       OpID
	RemoteBulk BulkDescriptor
}

// MMAPResponse is the response body of remi_migrate_mmap.
type MMAPResponse struct {
	Err Error
}

// WriteRequest is the request body of remi_migrate_write.
type WriteRequest struct {
	OpID      OpID
	FileIndex uint32
	Offset    uint64
	Bytes     []byte
}

// WriteResponse is the response body of remi_migrate_write.
type WriteResponse struct {
	Err Error
}

// EndRequest is the request body of remi_migrate_end.
type EndRequest struct {
	OpID OpID
}

// EndResponse is the response body of remi_migrate_end.
type EndResponse struct {
	Err        Error
	UserStatus int32
}

// BulkDescriptor is an opaque, transport-specific description of a
// registered memory region (the Go analog of a Mercury bulk handle). Its
// contents are meaningless outside of the transport binding that produced
// it; remi only ever passes it through.
type BulkDescriptor struct {
	// Opaque is the transport-specific payload (e.g. an RDMA memory key
	// plus segment lengths). The loopback transport stores a uint64 token
	// here, indexing the pushing peer's table of pushed buffers, since there
	// is no real network to register memory with.
	Opaque interface{}
}
