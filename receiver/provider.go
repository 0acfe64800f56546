// Package receiver implements the server side of a migration: it accepts
// the four RPCs described in spec §4.3 (START, MMAP, WRITE, END), tracks
// one operation per in-flight migration, and dispatches to user-registered
// per-class callbacks before and after the data lands.
package receiver

import (
	"context"
	"os"
	"path/filepath"

	nlerrors "github.com/NebulousLabs/errors"
	"github.com/NebulousLabs/threadgroup"

	"github.com/mochi-hpc/go-remi/device"
	"github.com/mochi-hpc/go-remi/fileset"
	"github.com/mochi-hpc/go-remi/ioprovider"
	"github.com/mochi-hpc/go-remi/persist"
	"github.com/mochi-hpc/go-remi/remi"
	"github.com/mochi-hpc/go-remi/transport"
)

// Provider is a migration receiver bound to a local staging root. It
// implements transport.Handler and can be registered with any
// transport.Provider, including the loopback binding.
type Provider struct {
	tg threadgroup.ThreadGroup

	root    string
	classes *classRegistry
	ops     *operationTable
	devices *device.Registry
	io      ioprovider.Provider
	log     *persist.Logger
}

// New returns a Provider that stages incoming files under root. io may be
// nil, in which case writes happen synchronously via ioprovider.Sync. log
// may be nil, in which case the provider does not log.
func New(root string, io ioprovider.Provider, log *persist.Logger) *Provider {
	return &Provider{
		root:    root,
		classes: newClassRegistry(),
		ops:     newOperationTable(),
		devices: device.NewRegistry(),
		io:      resolveIO(io),
		log:     log,
	}
}

func resolveIO(p ioprovider.Provider) ioprovider.Provider {
	if p == nil {
		return ioprovider.Sync{}
	}
	return p
}

// Devices exposes the provider's device registry so callers can classify
// mount points before migrations start arriving.
func (p *Provider) Devices() *device.Registry {
	return p.devices
}

// RegisterClass registers handlers for (class, providerID). providerID may
// be remi.AnyProviderID to accept migrations for any provider id.
func (p *Provider) RegisterClass(class string, providerID uint16, h ClassHandlers) error {
	return p.classes.Register(class, providerID, h)
}

// DeregisterClass removes a previously registered class.
func (p *Provider) DeregisterClass(class string, providerID uint16) error {
	return p.classes.Deregister(class, providerID)
}

// Shutdown stops the provider's background goroutines, waiting for any
// in-flight asynchronous writes to finish, then destroys every remaining
// registered migration class (spec §4.3's Callback registration: "On
// receiver shutdown all registered entries are destroyed in this
// fashion").
func (p *Provider) Shutdown(ctx context.Context) error {
	err := p.tg.Stop()
	p.classes.destroyAll()
	return err
}

func (p *Provider) debugf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Debugf(format, args...)
	}
}

// dropOperation removes op from the table and closes its destination files.
// Every fatal path in HandleMMAP uses this so a failed migration never
// leaks the operation entry or its open descriptors, per spec §4.3 MMAP
// step 5 ("on any sync failure respond IO and drop the operation") — applied
// here to every MMAP failure, not only the sync failure, since none of them
// leave the operation in a state END will ever be called to clean up (the
// sender does not issue END after a failed MMAP RPC).
func (p *Provider) dropOperation(op *operation) {
	p.ops.remove(op.id)
	op.closeFiles()
}

// HandleStart implements transport.Handler. It resolves the requested
// migration class, runs the Before callback, opens (creating as needed)
// every destination file, and hands back a fresh operation id.
func (p *Provider) HandleStart(ctx context.Context, req *remi.StartRequest) (*remi.StartResponse, error) {
	if err := p.tg.Add(); err != nil {
		return &remi.StartResponse{Err: remi.ErrTransport}, nil
	}
	defer p.tg.Done()

	fs, err := fileset.FromWire(req.Fileset)
	if err != nil {
		return &remi.StartResponse{Err: remi.FromError(err)}, nil
	}

	handlers, ok := p.classes.lookup(fs.Class(), fs.ProviderID())
	if !ok {
		return &remi.StartResponse{Err: remi.ErrUnknownClass}, nil
	}

	if handlers.Before != nil {
		if status := handlers.Before(fs); status != 0 {
			return &remi.StartResponse{Err: remi.ErrUser, UserStatus: status}, nil
		}
	}

	files := req.Fileset.Files
	if len(req.Sizes) != len(files) || len(req.Modes) != len(files) {
		return &remi.StartResponse{Err: remi.ErrInvalidArg}, nil
	}

	op := &operation{
		id:        remi.NewOpID(),
		fs:        fs,
		handlers:  handlers,
		localRoot: filepath.Join(p.root, fs.Class()),
	}

	// Spec §8 property 3: migrating onto a destination that already holds
	// any one of the target files must refuse the whole migration without
	// creating or modifying anything else, so every target is checked for
	// existence before any file is opened.
	for _, rel := range files {
		abs := filepath.Join(op.localRoot, rel)
		if _, statErr := os.Stat(abs); statErr == nil {
			return &remi.StartResponse{Err: remi.ErrFileExists}, nil
		}
	}

	for i, rel := range files {
		abs := filepath.Join(op.localRoot, rel)
		if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
			op.closeFiles()
			return &remi.StartResponse{Err: remi.ErrIO}, nil
		}
		perm := os.FileMode(0644)
		if i < len(req.Perms) && req.Perms[i] != 0 {
			perm = os.FileMode(req.Perms[i])
		}
		f, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_RDWR, perm)
		if err != nil {
			op.closeFiles()
			for _, created := range op.files {
				os.Remove(created.path)
			}
			if os.IsExist(err) {
				return &remi.StartResponse{Err: remi.ErrFileExists}, nil
			}
			return &remi.StartResponse{Err: remi.ErrIO}, nil
		}
		var checksum []byte
		if i < len(req.Checksums) {
			checksum = req.Checksums[i]
		}
		op.files = append(op.files, &fileState{
			path:     abs,
			file:     f,
			size:     req.Sizes[i],
			mode:     remi.Mode(req.Modes[i]),
			checksum: checksum,
		})
	}

	p.ops.insert(op)
	p.debugf("started migration %s class=%s files=%d", op.id, fs.Class(), len(op.files))
	return &remi.StartResponse{Err: remi.Success, OpID: op.id}, nil
}

// HandleMMAP implements transport.Handler. It pulls the sender's bulk
// region in one shot and scatters it across the destination files at their
// expected offsets and sizes, verifying any supplied checksum before
// declaring a file complete.
func (p *Provider) HandleMMAP(ctx context.Context, req *remi.MMAPRequest, pull transport.BulkPuller) (*remi.MMAPResponse, error) {
	op, ok := p.ops.get(req.OpID)
	if !ok {
		return &remi.MMAPResponse{Err: remi.ErrInvalidOpID}, nil
	}

	data, err := pull.PullBulk(ctx, req.RemoteBulk)
	if err != nil {
		p.dropOperation(op)
		return &remi.MMAPResponse{Err: remi.ErrTransport}, nil
	}

	// Spec §4.3 MMAP step 4: transferred bytes must equal the sum of file
	// sizes exactly, not merely fit within it — a bulk region holding more
	// bytes than declared (trailing garbage) must also be rejected.
	var total int
	for _, fst := range op.files {
		total += int(fst.size)
	}
	if len(data) != total {
		p.dropOperation(op)
		return &remi.MMAPResponse{Err: remi.ErrMigration}, nil
	}

	var offset int
	for _, fst := range op.files {
		end := offset + int(fst.size)
		chunk := data[offset:end]
		if !remi.VerifyChecksum(chunk, fst.checksum) {
			p.dropOperation(op)
			return &remi.MMAPResponse{Err: remi.ErrMigration}, nil
		}
		unlock := p.devices.WriteLock(fst.path)
		_, werr := p.io.WriteAt(ctx, fst.file, chunk, 0)
		unlock()
		if werr != nil {
			p.dropOperation(op)
			return &remi.MMAPResponse{Err: remi.ErrIO}, nil
		}
		offset = end
	}

	// Spec §4.3 MMAP step 5: msync(MS_SYNC) every segment before responding
	// SUCCESS; a sync failure drops the operation and responds IO.
	for _, fst := range op.files {
		if err := fst.file.Sync(); err != nil {
			p.dropOperation(op)
			return &remi.MMAPResponse{Err: remi.ErrIO}, nil
		}
	}

	return &remi.MMAPResponse{Err: remi.Success}, nil
}

// HandleWrite implements transport.Handler for a CHUNKED transfer. It
// acknowledges the write immediately and performs the actual positional
// write on a tracked background goroutine; any failure becomes the
// operation's sticky error, surfaced when HandleEnd is called.
func (p *Provider) HandleWrite(ctx context.Context, req *remi.WriteRequest) (*remi.WriteResponse, error) {
	op, ok := p.ops.get(req.OpID)
	if !ok {
		return &remi.WriteResponse{Err: remi.ErrInvalidOpID}, nil
	}
	fst := op.fileByIndex(req.FileIndex)
	if fst == nil {
		return &remi.WriteResponse{Err: remi.ErrIO}, nil
	}
	if req.Offset+uint64(len(req.Bytes)) > fst.size {
		return &remi.WriteResponse{Err: remi.ErrIO}, nil
	}

	if err := p.tg.Add(); err != nil {
		return &remi.WriteResponse{Err: remi.ErrTransport}, nil
	}
	op.wg.Add(1)
	data := append([]byte(nil), req.Bytes...)
	go func() {
		defer p.tg.Done()
		defer op.wg.Done()
		unlock := p.devices.WriteLock(fst.path)
		defer unlock()
		if _, err := p.io.WriteAt(context.Background(), fst.file, data, int64(req.Offset)); err != nil {
			op.fail(remi.ErrIO)
		}
	}()

	return &remi.WriteResponse{Err: remi.Success}, nil
}

// HandleEnd implements transport.Handler. It waits for any outstanding
// asynchronous writes, closes every destination file, surfaces the
// operation's sticky error if one was recorded, otherwise runs the After
// callback, and forgets the operation.
func (p *Provider) HandleEnd(ctx context.Context, req *remi.EndRequest) (*remi.EndResponse, error) {
	op, ok := p.ops.get(req.OpID)
	if !ok {
		return &remi.EndResponse{Err: remi.ErrInvalidOpID}, nil
	}
	op.wg.Wait()

	sticky := op.getErr()
	if sticky != remi.Success {
		op.closeFiles()
		p.ops.remove(req.OpID)
		return &remi.EndResponse{Err: sticky}, nil
	}

	// Spec §4.3 END steps 2-3: descriptors must be closed before the After
	// callback runs, so a callback that expects finished files (rename,
	// independent checksum, handoff to another process) never observes one
	// still open.
	if err := op.closeFiles(); err != nil {
		p.debugf("error closing files for %s: %s", op.id, nlerrors.Compose(err).Error())
		p.ops.remove(req.OpID)
		return &remi.EndResponse{Err: remi.ErrIO}, nil
	}

	var userStatus int32
	if op.handlers.After != nil {
		userStatus = op.handlers.After(op.fs)
	}
	p.ops.remove(req.OpID)
	p.debugf("completed migration %s userStatus=%d", op.id, userStatus)
	return &remi.EndResponse{Err: remi.Success, UserStatus: userStatus}, nil
}
