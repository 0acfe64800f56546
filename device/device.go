// Package device implements the mount-prefix-keyed device registry used to
// decide, per destination path, whether writes must be serialized (spinning
// HDDs) or may proceed concurrently (SSD, memory-backed filesystems). It
// mirrors the storage-folder bookkeeping in Sia's contractmanager package,
// trimmed to the single concern remi needs.
package device

import (
	"sort"
	"strings"
	"sync"

	"github.com/NebulousLabs/demotemutex"
	"github.com/mochi-hpc/go-remi/remi"
)

// entry is one registered mount prefix.
type entry struct {
	prefix string
	kind   remi.DeviceKind
	// writeMu serializes writes landing under this prefix when kind is
	// DeviceHDD; for other kinds it is never locked, since concurrent
	// writes to SSD or memory-backed storage don't pay a seek penalty.
	writeMu sync.Mutex
}

// Registry looks up the device kind backing a destination path by longest
// mount-prefix match, and hands out a serialization lock for HDD-backed
// prefixes. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu      demotemutex.DemoteMutex
	entries []*entry
}

// NewRegistry returns a registry with a single default entry at the root
// mount point "", classified as memory, matching the original library's
// default classification of any un-registered device kind.
func NewRegistry() *Registry {
	return &Registry{
		entries: []*entry{{prefix: remi.DefaultDeviceMountPoint, kind: remi.DeviceMemory}},
	}
}

// SetDevice registers mountPoint as backed by kind. It rejects a mount
// point that nests under, or contains, an already-registered mount point
// other than the default root entry, since overlapping classifications
// would make the longest-prefix-match lookup ambiguous.
func (r *Registry) SetDevice(mountPoint string, kind remi.DeviceKind) error {
	r.mu.Lock()
	for _, e := range r.entries {
		if e.prefix == remi.DefaultDeviceMountPoint {
			continue
		}
		if e.prefix == mountPoint {
			continue // re-registering the same prefix is allowed, handled below
		}
		if strings.HasPrefix(mountPoint, e.prefix) || strings.HasPrefix(e.prefix, mountPoint) {
			r.mu.Unlock()
			return remi.ErrInvalidArg
		}
	}
	for _, e := range r.entries {
		if e.prefix == mountPoint {
			e.kind = kind
			r.mu.Unlock()
			return nil
		}
	}
	r.entries = append(r.entries, &entry{prefix: mountPoint, kind: kind})
	sort.Slice(r.entries, func(i, j int) bool {
		return len(r.entries[i].prefix) > len(r.entries[j].prefix)
	})
	// Readers only need the updated entries slice, not exclusive access
	// for the remainder of the call, so demote rather than holding a
	// write lock through unrelated concurrent lookups.
	r.mu.Demote()
	r.mu.DemotedUnlock()
	return nil
}

// Lookup returns the device kind registered for the longest mount prefix
// matching path, falling back to DeviceMemory when nothing more specific
// matches.
func (r *Registry) Lookup(path string) remi.DeviceKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.prefix == remi.DefaultDeviceMountPoint {
			continue
		}
		if strings.HasPrefix(path, e.prefix) {
			return e.kind
		}
	}
	return remi.DeviceMemory
}

// WriteLock blocks until it is safe to write to path, serializing against
// other writers only when path's device is HDD-backed. The returned
// function releases whatever lock (if any) was taken and must always be
// called.
func (r *Registry) WriteLock(path string) (unlock func()) {
	r.mu.RLock()
	var hit *entry
	for _, e := range r.entries {
		if e.prefix != remi.DefaultDeviceMountPoint && strings.HasPrefix(path, e.prefix) {
			hit = e
			break
		}
	}
	r.mu.RUnlock()
	if hit == nil || hit.kind != remi.DeviceHDD {
		return func() {}
	}
	hit.writeMu.Lock()
	return hit.writeMu.Unlock
}
