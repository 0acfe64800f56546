package sender

import (
	"context"
	"os"
	"path/filepath"

	nlerrors "github.com/NebulousLabs/errors"

	"github.com/mochi-hpc/go-remi/fileset"
	"github.com/mochi-hpc/go-remi/remi"
)

// openFile pairs a file expanded from a walkthrough with its open handle
// and observed size, for the duration of one Migrate call.
type openFile struct {
	rel  string
	f    *os.File
	size uint64
	perm uint32
}

// Migrate drives one end-to-end migration of fs to the provider behind h,
// following spec §4.2: expand the fileset, open and stat every file, swap
// the fileset's transient view to the remote root, run START, transfer
// data via the requested mode, run END, and (only on success, when
// requested) remove the source files.
func (c *Client) Migrate(ctx context.Context, h *ProviderHandle, fs *fileset.Fileset, remoteRoot string, mode remi.Mode, policy remi.SourcePolicy) (userStatus int32, err error) {
	files, err := fs.Walkthrough()
	if err != nil {
		return 0, err
	}

	localRoot := fs.Root()
	opened := make([]openFile, 0, len(files))
	cleanup := func() error {
		var closeErr error
		for _, of := range opened {
			closeErr = nlerrors.Compose(closeErr, of.f.Close())
		}
		return closeErr
	}
	for _, rel := range files {
		f, ferr := os.Open(filepath.Join(localRoot, rel))
		if ferr != nil {
			cleanup()
			return 0, remi.ErrIO
		}
		info, serr := f.Stat()
		if serr != nil {
			f.Close()
			cleanup()
			return 0, remi.ErrIO
		}
		opened = append(opened, openFile{rel: rel, f: f, size: uint64(info.Size()), perm: uint32(info.Mode().Perm())})
	}
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			err = remi.ErrIO
		}
	}()

	var checksums [][]byte
	if c.ComputeChecksums {
		checksums = make([][]byte, len(opened))
		for i, of := range opened {
			sum, serr := remi.FileChecksum(of.f)
			if serr != nil {
				return 0, serr
			}
			if _, serr := of.f.Seek(0, 0); serr != nil {
				return 0, remi.ErrIO
			}
			checksums[i] = sum
		}
	}

	restore := fs.SwapForTransfer(remoteRoot, files)
	defer restore()

	sizes := make([]uint64, len(opened))
	modes := make([]uint32, len(opened))
	perms := make([]uint32, len(opened))
	for i, of := range opened {
		sizes[i] = of.size
		modes[i] = uint32(mode)
		perms[i] = of.perm
	}

	startReq := remi.StartRequest{
		Fileset:   fs.ToWire(),
		Sizes:     sizes,
		Modes:     modes,
		Checksums: checksums,
		Perms:     perms,
	}
	var startResp remi.StartResponse
	if err := h.peer.Call(ctx, remi.RPCMigrateStart, &startReq, &startResp); err != nil {
		return 0, remi.ErrTransport
	}
	if startResp.Err != remi.Success {
		return startResp.UserStatus, startResp.Err
	}
	opID := startResp.OpID

	if mode == remi.ModeMMAP {
		if err := c.migrateMMAP(ctx, h, opID, opened); err != nil {
			return 0, err
		}
	} else {
		if err := c.migrateChunked(ctx, h, opID, fs.XferSize(), opened); err != nil {
			return 0, err
		}
	}

	endReq := remi.EndRequest{OpID: opID}
	var endResp remi.EndResponse
	if err := h.peer.Call(ctx, remi.RPCMigrateEnd, &endReq, &endResp); err != nil {
		return 0, remi.ErrTransport
	}
	if endResp.Err != remi.Success {
		return endResp.UserStatus, endResp.Err
	}

	if policy == remi.RemoveSource {
		for _, of := range opened {
			of.f.Close()
			os.Remove(filepath.Join(localRoot, of.rel))
		}
		opened = nil
	}

	return endResp.UserStatus, nil
}

func (c *Client) migrateMMAP(ctx context.Context, h *ProviderHandle, opID remi.OpID, opened []openFile) error {
	var buf []byte
	for _, of := range opened {
		chunk := make([]byte, of.size)
		if _, err := of.f.ReadAt(chunk, 0); err != nil {
			return remi.ErrIO
		}
		buf = append(buf, chunk...)
	}
	desc, err := h.peer.PushBulk(ctx, buf)
	if err != nil {
		return remi.ErrTransport
	}
	req := remi.MMAPRequest{OpID: opID, RemoteBulk: desc}
	var resp remi.MMAPResponse
	if err := h.peer.Call(ctx, remi.RPCMigrateMMAP, &req, &resp); err != nil {
		return remi.ErrTransport
	}
	if resp.Err != remi.Success {
		return resp.Err
	}
	return nil
}

func (c *Client) migrateChunked(ctx context.Context, h *ProviderHandle, opID remi.OpID, xferSize uint64, opened []openFile) error {
	if xferSize == 0 {
		xferSize = remi.DefaultXferSize
	}
	for idx, of := range opened {
		var offset uint64
		for offset < of.size {
			n := xferSize
			if remaining := of.size - offset; remaining < n {
				n = remaining
			}
			buf := make([]byte, n)
			if _, err := of.f.ReadAt(buf, int64(offset)); err != nil {
				return remi.ErrIO
			}
			req := remi.WriteRequest{OpID: opID, FileIndex: uint32(idx), Offset: offset, Bytes: buf}
			var resp remi.WriteResponse
			if err := h.peer.Call(ctx, remi.RPCMigrateWrite, &req, &resp); err != nil {
				return remi.ErrTransport
			}
			if resp.Err != remi.Success {
				return resp.Err
			}
			offset += n
		}
	}
	return nil
}
