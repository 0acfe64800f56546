package fileset

import (
	"github.com/mochi-hpc/go-remi/remi"
)

// ToWire produces the serializable projection of the fileset sent over
// START: class, provider id, root, metadata, the explicit file and
// directory sets (not expanded — the sender already expands before
// building the transient transfer fileset), and the transfer chunk size.
func (fs *Fileset) ToWire() remi.FilesetWire {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	w := remi.FilesetWire{
		Class:       fs.class,
		ProviderID:  fs.providerID,
		Root:        fs.root,
		XferSize:    fs.xferSize,
		Metadata:    make(map[string]string, len(fs.metadata)),
		Files:       sortedKeys(fs.files),
		Directories: sortedKeys(fs.directories),
	}
	for k, v := range fs.metadata {
		w.Metadata[k] = v
	}
	return w
}

// FromWire reconstructs a Fileset from its wire projection, as done by the
// receiver when handling START. Unlike New, it does not require Root to be
// an absolute local path: on the wire, Root is the sender's remote-root
// hint (see SwapForTransfer), not a path the receiver ever opens directly
// — the receiver stages files under its own provider root instead.
func FromWire(w remi.FilesetWire) (*Fileset, error) {
	if w.Class == "" {
		return nil, remi.ErrInvalidArg
	}
	fs := &Fileset{
		class:       w.Class,
		root:        canonicalRoot(w.Root),
		files:       make(map[string]struct{}),
		directories: make(map[string]struct{}),
		metadata:    make(map[string]string),
		xferSize:    remi.DefaultXferSize,
	}
	fs.providerID = w.ProviderID
	if w.XferSize != 0 {
		fs.xferSize = w.XferSize
	}
	for _, f := range w.Files {
		fs.files[f] = struct{}{}
	}
	for _, d := range w.Directories {
		fs.directories[d] = struct{}{}
	}
	for k, v := range w.Metadata {
		fs.metadata[k] = v
	}
	return fs, nil
}
