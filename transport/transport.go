// Package transport declares the abstraction remi uses to reach a remote
// migration provider. The real protocol implementations (original remi rides
// on Mercury/Margo) are out of scope here; this package only fixes the shape
// a binding must satisfy, in the spirit of Sia's modules.Host/modules.Renter
// interfaces, and ships an in-process loopback binding for tests and
// single-process demos.
package transport

import (
	"context"

	"github.com/mochi-hpc/go-remi/remi"
)

// Peer is the sender-side view of a connection to a remote provider. A Peer
// is obtained from a Dialer and is safe for concurrent use by multiple
// migrations once Identify has completed.
type Peer interface {
	// Identify performs the handshake with the remote provider and returns
	// the identity string it reports; sender.Client rejects a peer whose
	// identity is not remi.ProviderIdentity.
	Identify(ctx context.Context) (identity string, err error)

	// Call invokes the named RPC (one of remi.RPCMigrateStart,
	// remi.RPCMigrateMMAP, remi.RPCMigrateWrite, remi.RPCMigrateEnd)
	// sending req and decoding the reply into resp. req and resp must be
	// pointers to the wire request/response types declared in package remi.
	Call(ctx context.Context, rpc string, req, resp interface{}) error

	// PushBulk registers data as a remotely-pullable memory region (the
	// sender side of an MMAP transfer) and returns a descriptor the
	// receiver can use in a PullBulk call on its own Provider side.
	PushBulk(ctx context.Context, data []byte) (remi.BulkDescriptor, error)

	// Close releases any resources held for this peer. It does not need to
	// be called before process exit, only to release a peer early.
	Close() error
}

// Dialer produces a Peer for a given remote address. Address format is
// binding-specific; the loopback binding uses it as the key into its
// process-wide registry.
type Dialer interface {
	Dial(ctx context.Context, address string) (Peer, error)
}

// Handler is implemented by the receiver package and invoked by a Provider
// for each incoming RPC.
type Handler interface {
	HandleStart(ctx context.Context, req *remi.StartRequest) (*remi.StartResponse, error)
	HandleMMAP(ctx context.Context, req *remi.MMAPRequest, pull BulkPuller) (*remi.MMAPResponse, error)
	HandleWrite(ctx context.Context, req *remi.WriteRequest) (*remi.WriteResponse, error)
	HandleEnd(ctx context.Context, req *remi.EndRequest) (*remi.EndResponse, error)
}

// BulkPuller pulls the bytes described by a remote bulk descriptor, as
// produced by a Peer's PushBulk. A receiver's MMAP handler uses it to fetch
// the sender's file contents in one shot rather than a stream of WRITE RPCs.
type BulkPuller interface {
	PullBulk(ctx context.Context, remote remi.BulkDescriptor) ([]byte, error)
}

// Provider is the receiver-side binding: it exposes itself at an address
// and dispatches incoming RPCs to a Handler.
type Provider interface {
	// Register starts serving h at address and returns the address actually
	// bound (useful when address requests an ephemeral port).
	Register(ctx context.Context, address string, h Handler) (string, error)

	// Shutdown stops accepting new RPCs and waits for in-flight ones to
	// finish, bounded by ctx.
	Shutdown(ctx context.Context) error
}
