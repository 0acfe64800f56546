// Package sender implements the client side of a migration: establishing a
// handle to a remote provider, walking a fileset, and driving the
// START/MMAP-or-CHUNKED/END RPC sequence described in spec §4.2.
package sender

import (
	"context"
	"sync"

	"github.com/mochi-hpc/go-remi/remi"
	"github.com/mochi-hpc/go-remi/transport"
)

// Client is the entry point for issuing migrations. It owns a Dialer and
// caches ProviderHandles by address so repeated migrations to the same
// destination reuse one Peer.
type Client struct {
	dialer transport.Dialer

	// ComputeChecksums enables the optional Merkle-root manifest described
	// in SPEC_FULL.md §3: when true, Migrate hashes every file before
	// START and, for a ModeMMAP migration, the receiver verifies the bytes
	// it lands against the manifest. ModeChunked transfers are not
	// verified against it.
	ComputeChecksums bool

	mu      sync.Mutex
	handles map[string]*ProviderHandle
}

// NewClient returns a Client that dials peers with dialer.
func NewClient(dialer transport.Dialer) *Client {
	return &Client{
		dialer:  dialer,
		handles: make(map[string]*ProviderHandle),
	}
}

// ProviderHandle is a reference-counted connection to one remote provider,
// obtained via Client.Lookup. Multiple migrations to the same address share
// the underlying Peer.
type ProviderHandle struct {
	address  string
	identity string
	peer     transport.Peer

	mu       sync.Mutex
	refCount int
}

// Lookup returns the (possibly cached) handle for address, performing the
// Identify handshake the first time address is seen.
func (c *Client) Lookup(ctx context.Context, address string) (*ProviderHandle, error) {
	c.mu.Lock()
	if h, ok := c.handles[address]; ok {
		h.mu.Lock()
		h.refCount++
		h.mu.Unlock()
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	peer, err := c.dialer.Dial(ctx, address)
	if err != nil {
		return nil, remi.ErrTransport
	}
	identity, err := peer.Identify(ctx)
	if err != nil {
		peer.Close()
		return nil, remi.ErrTransport
	}
	if identity != remi.ProviderIdentity {
		peer.Close()
		return nil, remi.ErrUnknownProvider
	}

	h := &ProviderHandle{address: address, identity: identity, peer: peer, refCount: 1}
	c.mu.Lock()
	if existing, ok := c.handles[address]; ok {
		// Lost a race against a concurrent Lookup; use the winner instead.
		existing.mu.Lock()
		existing.refCount++
		existing.mu.Unlock()
		c.mu.Unlock()
		peer.Close()
		return existing, nil
	}
	c.handles[address] = h
	c.mu.Unlock()
	return h, nil
}

// IncRef increments h's reference count. Pair with a matching Release.
func (h *ProviderHandle) IncRef() {
	h.mu.Lock()
	h.refCount++
	h.mu.Unlock()
}

// Release drops a reference to h, closing its underlying Peer once the
// count reaches zero.
func (c *Client) Release(h *ProviderHandle) error {
	h.mu.Lock()
	h.refCount--
	closeNow := h.refCount <= 0
	h.mu.Unlock()
	if !closeNow {
		return nil
	}
	c.mu.Lock()
	if c.handles[h.address] == h {
		delete(c.handles, h.address)
	}
	c.mu.Unlock()
	return h.peer.Close()
}

// Identity returns the identity string returned by the handle's Identify
// handshake.
func (h *ProviderHandle) Identity() string {
	return h.identity
}
