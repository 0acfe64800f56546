// Package ioprovider abstracts the file I/O performed while serving a
// migration, mirroring the original remi_provider_register call's optional
// ABT-IO / Argobots async I/O argument. A nil Provider means synchronous
// os.File positional I/O; Pool offers a bounded worker-pool-backed
// implementation for callers who want reads and writes to be serviced off
// the RPC-handling goroutines.
package ioprovider

import (
	"context"
	"os"
)

// Provider performs positional reads and writes against an open file. It is
// the seam the receiver's WRITE and MMAP handlers call through instead of
// touching *os.File directly, so a caller can route I/O through a worker
// pool, an async I/O library binding, or a test double.
type Provider interface {
	ReadAt(ctx context.Context, f *os.File, p []byte, off int64) (int, error)
	WriteAt(ctx context.Context, f *os.File, p []byte, off int64) (int, error)
}

// Sync is the zero-value-safe default Provider: it performs the read or
// write inline, synchronously, on the caller's goroutine.
type Sync struct{}

func (Sync) ReadAt(ctx context.Context, f *os.File, p []byte, off int64) (int, error) {
	return f.ReadAt(p, off)
}

func (Sync) WriteAt(ctx context.Context, f *os.File, p []byte, off int64) (int, error) {
	return f.WriteAt(p, off)
}

// resolve returns p if non-nil, otherwise the package default Sync
// provider. Callers that accept a possibly-nil Provider use this instead of
// repeating the nil check.
func resolve(p Provider) Provider {
	if p == nil {
		return Sync{}
	}
	return p
}
