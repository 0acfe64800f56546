package remi

import (
	"bytes"
	"hash"
	"io"

	"github.com/NebulousLabs/merkletree"
	"github.com/dchest/blake2b"
)

// ChecksumSegmentSize is the leaf size used when hashing a file into a
// Merkle root for the optional content-verification manifest (see
// SPEC_FULL.md §3, "Checksum manifest"). 64 KiB balances proof-tree size
// against hash overhead for the file sizes remi moves, versus the 64-byte
// leaves Sia uses for its much smaller sector segments.
const ChecksumSegmentSize = 64 << 10

// newHash returns the blake2b 256-bit hasher used for every Merkle root in
// remi, matching the teacher's crypto.NewHash: blake2b is the only hash
// algorithm this library supports.
func newHash() hash.Hash {
	return blake2b.New256()
}

// FileChecksum computes the Merkle root of r's contents, chunked into
// ChecksumSegmentSize leaves. An empty reader yields a nil root.
func FileChecksum(r io.Reader) ([]byte, error) {
	root, err := merkletree.ReaderRoot(r, newHash(), ChecksumSegmentSize)
	if err != nil && err != io.EOF {
		return nil, ErrIO
	}
	return root, nil
}

// VerifyChecksum recomputes the Merkle root of data and compares it
// against want. A nil/empty want always verifies (no manifest supplied).
func VerifyChecksum(data []byte, want []byte) bool {
	if len(want) == 0 {
		return true
	}
	got, err := FileChecksum(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return bytes.Equal(got, want)
}
