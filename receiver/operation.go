package receiver

import (
	"os"
	"sync"

	"github.com/mochi-hpc/go-remi/fileset"
	"github.com/mochi-hpc/go-remi/remi"
)

// fileState is the receiver's bookkeeping for one destination file: its
// open handle, absolute path, expected size, transfer mode, and optional
// expected checksum.
type fileState struct {
	path     string
	file     *os.File
	size     uint64
	mode     remi.Mode
	checksum []byte
}

// operation is the receiver-side state of one in-flight migration, keyed by
// its OpID in the provider's operationTable. CHUNKED writes ack immediately
// and complete asynchronously; wg tracks outstanding writes so END can wait
// for them, and stickyErr records the first write failure so it can be
// surfaced at END even though the WRITE RPC that caused it already
// returned success.
type operation struct {
	id         remi.OpID
	fs         *fileset.Fileset
	handlers   ClassHandlers
	files      []*fileState
	localRoot  string

	mu        sync.Mutex
	wg        sync.WaitGroup
	stickyErr remi.Error
}

// fail records err as the operation's sticky error if one is not already
// set; the first failure wins, matching the original library's behavior of
// reporting the earliest problem encountered.
func (op *operation) fail(err remi.Error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.stickyErr == remi.Success {
		op.stickyErr = err
	}
}

func (op *operation) getErr() remi.Error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.stickyErr
}

// fileByIndex returns the fileState for index, or nil if out of range.
func (op *operation) fileByIndex(index uint32) *fileState {
	if int(index) >= len(op.files) {
		return nil
	}
	return op.files[index]
}

// closeFiles closes every open destination file, attempting all of them
// even after a failure, and returns the first close error encountered.
func (op *operation) closeFiles() error {
	var firstErr error
	for _, fst := range op.files {
		if fst.file == nil {
			continue
		}
		if err := fst.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
