// Package fileset implements the typed container that a sender fills in
// and hands to the migration engine: a class name, a root directory, a set
// of explicitly registered files and directories, free-form metadata, and
// the chunk size used for CHUNKED transfers.
package fileset

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mochi-hpc/go-remi/remi"
)

// Fileset is owned by whichever goroutine created it. It is safe to read
// concurrently with its own accessor methods, but callers must not mutate
// it from two goroutines at once; the one exception is the sender engine's
// transient root/files/directories swap used while a migration RPC
// sequence is in flight (see SwapForTransfer).
type Fileset struct {
	mu sync.Mutex

	class       string
	root        string
	providerID  uint16
	files       map[string]struct{}
	directories map[string]struct{}
	metadata    map[string]string
	xferSize    uint64
}

// New creates an empty fileset rooted at root, which must be an absolute
// path. The root is canonicalized to always end in "/".
func New(class, root string) (*Fileset, error) {
	if class == "" {
		return nil, remi.ErrInvalidArg
	}
	if !filepath.IsAbs(root) {
		return nil, remi.ErrInvalidArg
	}
	return &Fileset{
		class:       class,
		root:        canonicalRoot(root),
		files:       make(map[string]struct{}),
		directories: make(map[string]struct{}),
		metadata:    make(map[string]string),
		xferSize:    remi.DefaultXferSize,
	}, nil
}

func canonicalRoot(root string) string {
	if strings.HasSuffix(root, "/") {
		return root
	}
	return root + "/"
}

// Class returns the fileset's migration class.
func (fs *Fileset) Class() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.class
}

// Root returns the fileset's root directory, always ending in "/".
func (fs *Fileset) Root() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.root
}

// SetRoot replaces the fileset's root directory. root must be absolute.
func (fs *Fileset) SetRoot(root string) error {
	if !filepath.IsAbs(root) {
		return remi.ErrInvalidArg
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.root = canonicalRoot(root)
	return nil
}

// ProviderID returns the provider id that scopes this fileset's class
// lookup on the receiver. remi.AnyProviderID means "any provider".
func (fs *Fileset) ProviderID() uint16 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.providerID
}

// SetProviderID sets the provider id.
func (fs *Fileset) SetProviderID(id uint16) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.providerID = id
}

// XferSize returns the maximum number of bytes carried by a single
// CHUNKED WRITE RPC.
func (fs *Fileset) XferSize() uint64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.xferSize
}

// SetXferSize sets the maximum number of bytes carried by a single
// CHUNKED WRITE RPC. n must be positive.
func (fs *Fileset) SetXferSize(n uint64) error {
	if n == 0 {
		return remi.ErrInvalidArg
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.xferSize = n
	return nil
}

// RegisterFile adds a file path, relative to the fileset root, to the
// explicit file index. The file need not exist yet; it must exist by the
// time the fileset is migrated.
func (fs *Fileset) RegisterFile(path string) error {
	rel, err := relPath(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[rel] = struct{}{}
	return nil
}

// DeregisterFile removes path from the explicit file index. It returns
// remi.ErrUnknownFile if path was never registered via RegisterFile
// (registering it only as part of a directory does not count).
func (fs *Fileset) DeregisterFile(path string) error {
	rel, err := relPath(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[rel]; !ok {
		return remi.ErrUnknownFile
	}
	delete(fs.files, rel)
	return nil
}

// RegisterDirectory adds a directory path, relative to the fileset root,
// to the directory index. Its contents are expanded at Walkthrough time.
func (fs *Fileset) RegisterDirectory(path string) error {
	rel, err := relPath(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.directories[rel] = struct{}{}
	return nil
}

// DeregisterDirectory removes path from the directory index.
func (fs *Fileset) DeregisterDirectory(path string) error {
	rel, err := relPath(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.directories[rel]; !ok {
		return remi.ErrUnknownFile
	}
	delete(fs.directories, rel)
	return nil
}

// ForeachFile calls cb on every explicitly registered file, in
// lexicographic order. It does not include files discovered by expanding
// registered directories; use Walkthrough for the expanded list.
func (fs *Fileset) ForeachFile(cb func(path string)) {
	fs.mu.Lock()
	paths := sortedKeys(fs.files)
	fs.mu.Unlock()
	for _, p := range paths {
		cb(p)
	}
}

// ForeachDirectory calls cb on every registered directory, in
// lexicographic order.
func (fs *Fileset) ForeachDirectory(cb func(path string)) {
	fs.mu.Lock()
	paths := sortedKeys(fs.directories)
	fs.mu.Unlock()
	for _, p := range paths {
		cb(p)
	}
}

// RegisterMetadata sets key to value, overwriting any previous value.
func (fs *Fileset) RegisterMetadata(key, value string) error {
	if key == "" {
		return remi.ErrInvalidArg
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.metadata[key] = value
	return nil
}

// DeregisterMetadata removes key. It returns remi.ErrUnknownMeta if key is
// not present.
func (fs *Fileset) DeregisterMetadata(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.metadata[key]; !ok {
		return remi.ErrUnknownMeta
	}
	delete(fs.metadata, key)
	return nil
}

// GetMetadata returns the value associated with key, and whether it was
// present.
func (fs *Fileset) GetMetadata(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.metadata[key]
	return v, ok
}

// ForeachMetadata calls cb on every key/value pair, in lexicographic order
// of key.
func (fs *Fileset) ForeachMetadata(cb func(key, value string)) {
	fs.mu.Lock()
	keys := sortedKeys(fs.metadata)
	values := make(map[string]string, len(fs.metadata))
	for k, v := range fs.metadata {
		values[k] = v
	}
	fs.mu.Unlock()
	for _, k := range keys {
		cb(k, values[k])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// relPath validates and normalizes a path supplied to Register{File,
// Directory}: it must be non-empty and must not escape the fileset via a
// leading slash.
func relPath(path string) (string, error) {
	if path == "" {
		return "", remi.ErrInvalidArg
	}
	return strings.TrimPrefix(path, "/"), nil
}
