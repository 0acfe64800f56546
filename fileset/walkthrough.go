package fileset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mochi-hpc/go-remi/remi"
)

// Walkthrough produces the deterministic expanded file list used by the
// sender: the union of explicitly registered files with a recursive scan
// of every registered directory. Entries whose name begins with "." are
// skipped, only regular files are yielded, and the result is sorted
// lexicographically.
//
// Explicitly registered files that do not exist are included anyway (the
// sender will fail to open them later); a file that disappears mid-scan
// under a registered directory is a fail-fast error, since the scan only
// yields entries it has just observed to exist.
func (fs *Fileset) Walkthrough() ([]string, error) {
	fs.mu.Lock()
	root := fs.root
	explicit := sortedKeys(fs.files)
	dirs := sortedKeys(fs.directories)
	fs.mu.Unlock()

	union := make(map[string]struct{}, len(explicit))
	for _, f := range explicit {
		union[f] = struct{}{}
	}
	for _, d := range dirs {
		found, err := scanDirectory(root, d)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			union[f] = struct{}{}
		}
	}

	out := make([]string, 0, len(union))
	for f := range union {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// scanDirectory recursively lists regular files under root+dir, skipping
// dot-prefixed entries (files or directories), and returns their paths
// relative to root.
func scanDirectory(root, dir string) ([]string, error) {
	var out []string
	base := filepath.Join(root, dir)
	var walk func(abs, rel string) error
	walk = func(abs, rel string) error {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return remi.ErrIO
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			childAbs := filepath.Join(abs, entry.Name())
			childRel := filepath.Join(rel, entry.Name())
			info, err := entry.Info()
			if err != nil {
				// The entry existed when ReadDir listed it but vanished
				// before we could stat it: scan-time fail-fast.
				return remi.ErrIO
			}
			switch {
			case info.IsDir():
				if err := walk(childAbs, childRel); err != nil {
					return err
				}
			case info.Mode().IsRegular():
				out = append(out, childRel)
			}
		}
		return nil
	}
	if err := walk(base, dir); err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeSize sums the on-disk size of every file in the walkthrough, and
// optionally adds len(key)+len(value)+2 for each metadata entry.
func (fs *Fileset) ComputeSize(includeMetadata bool) (uint64, error) {
	files, err := fs.Walkthrough()
	if err != nil {
		return 0, err
	}
	fs.mu.Lock()
	root := fs.root
	fs.mu.Unlock()

	var total uint64
	for _, f := range files {
		info, err := os.Stat(filepath.Join(root, f))
		if err != nil {
			continue // explicit-but-missing files contribute zero, per spec
		}
		total += uint64(info.Size())
	}
	if includeMetadata {
		fs.mu.Lock()
		for k, v := range fs.metadata {
			total += uint64(len(k) + len(v) + 2)
		}
		fs.mu.Unlock()
	}
	return total, nil
}

// SwapForTransfer replaces root/files/directories with a transient view
// suitable for handing the fileset to the transport layer during a
// migration: root becomes remoteRoot, files becomes the already-expanded
// list, and directories becomes empty (the receiver only ever sees a flat
// file list). It returns a function that restores the fileset to its
// original state; callers must invoke it exactly once, typically via
// defer, before the migration call returns.
func (fs *Fileset) SwapForTransfer(remoteRoot string, expandedFiles []string) (restore func()) {
	fs.mu.Lock()
	origRoot := fs.root
	origFiles := fs.files
	origDirs := fs.directories

	newFiles := make(map[string]struct{}, len(expandedFiles))
	for _, f := range expandedFiles {
		newFiles[f] = struct{}{}
	}
	fs.root = canonicalRoot(remoteRoot)
	fs.files = newFiles
	fs.directories = make(map[string]struct{})
	fs.mu.Unlock()

	return func() {
		fs.mu.Lock()
		fs.root = origRoot
		fs.files = origFiles
		fs.directories = origDirs
		fs.mu.Unlock()
	}
}
