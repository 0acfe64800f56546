// Package loopback is an in-process transport.Provider/Peer pair: calls are
// dispatched through a Go function call instead of a socket. It exists so
// the sender and receiver engines can be exercised, and demoed, within a
// single process without depending on a real RPC substrate.
package loopback

import (
	"context"
	"fmt"
	"sync"

	"github.com/mochi-hpc/go-remi/remi"
	"github.com/mochi-hpc/go-remi/transport"
)

// registry maps an address to the Handler registered there. A process-wide
// map is sufficient: loopback addresses are only ever meaningful within the
// process that created them.
var (
	registryMu sync.Mutex
	registry   = map[string]transport.Handler{}
)

// Provider implements transport.Provider by publishing its Handler into the
// package-level registry under the requested address.
type Provider struct {
	address string
}

// NewProvider returns an unregistered loopback provider.
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Register(ctx context.Context, address string, h transport.Handler) (string, error) {
	if address == "" {
		address = fmt.Sprintf("loopback-%s", remi.NewOpID())
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[address]; exists {
		return "", remi.ErrInvalidArg
	}
	registry[address] = h
	p.address = address
	return address, nil
}

// Shutdown removes p's address from the registry, so later Dial calls to it
// fail. Peers dialed earlier keep calling the handler, and in-flight calls
// are not waited for.
func (p *Provider) Shutdown(ctx context.Context) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, p.address)
	return nil
}

// Dialer implements transport.Dialer against the loopback registry.
type Dialer struct{}

func (Dialer) Dial(ctx context.Context, address string) (transport.Peer, error) {
	registryMu.Lock()
	h, ok := registry[address]
	registryMu.Unlock()
	if !ok {
		return nil, remi.ErrTransport
	}
	return &peer{address: address, handler: h}, nil
}

// peer implements transport.Peer by calling directly into the registered
// Handler and keeping pushed bulk buffers in a local map keyed by an opaque
// token, since there is no real memory-registration mechanism to piggyback
// on.
type peer struct {
	address string
	handler transport.Handler

	mu      sync.Mutex
	pushed  map[uint64][]byte
	nextTok uint64
}

// Identify returns the fixed remi provider identity string; a loopback peer
// only ever talks to a remi receiver.Provider, so the handshake always
// succeeds.
func (p *peer) Identify(ctx context.Context) (string, error) {
	return remi.ProviderIdentity, nil
}

func (p *peer) Call(ctx context.Context, rpc string, req, resp interface{}) error {
	switch rpc {
	case remi.RPCMigrateStart:
		r, ok1 := req.(*remi.StartRequest)
		out, ok2 := resp.(*remi.StartResponse)
		if !ok1 || !ok2 {
			return remi.ErrInvalidArg
		}
		got, err := p.handler.HandleStart(ctx, r)
		if err != nil {
			return err
		}
		*out = *got
		return nil
	case remi.RPCMigrateMMAP:
		r, ok1 := req.(*remi.MMAPRequest)
		out, ok2 := resp.(*remi.MMAPResponse)
		if !ok1 || !ok2 {
			return remi.ErrInvalidArg
		}
		got, err := p.handler.HandleMMAP(ctx, r, p)
		if err != nil {
			return err
		}
		*out = *got
		return nil
	case remi.RPCMigrateWrite:
		r, ok1 := req.(*remi.WriteRequest)
		out, ok2 := resp.(*remi.WriteResponse)
		if !ok1 || !ok2 {
			return remi.ErrInvalidArg
		}
		got, err := p.handler.HandleWrite(ctx, r)
		if err != nil {
			return err
		}
		*out = *got
		return nil
	case remi.RPCMigrateEnd:
		r, ok1 := req.(*remi.EndRequest)
		out, ok2 := resp.(*remi.EndResponse)
		if !ok1 || !ok2 {
			return remi.ErrInvalidArg
		}
		got, err := p.handler.HandleEnd(ctx, r)
		if err != nil {
			return err
		}
		*out = *got
		return nil
	default:
		return remi.ErrInvalidArg
	}
}

func (p *peer) PushBulk(ctx context.Context, data []byte) (remi.BulkDescriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushed == nil {
		p.pushed = make(map[uint64][]byte)
	}
	tok := p.nextTok
	p.nextTok++
	cp := make([]byte, len(data))
	copy(cp, data)
	p.pushed[tok] = cp
	return remi.BulkDescriptor{Opaque: tok}, nil
}

// PullBulk implements transport.BulkPuller on behalf of the receiver side:
// the handler calls it with the descriptor it received in an MMAP request,
// and it looks the data back up from the originating peer's push table.
func (p *peer) PullBulk(ctx context.Context, remote remi.BulkDescriptor) ([]byte, error) {
	tok, ok := remote.Opaque.(uint64)
	if !ok {
		return nil, remi.ErrInvalidArg
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.pushed[tok]
	if !ok {
		return nil, remi.ErrInvalidArg
	}
	return data, nil
}

func (p *peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = nil
	return nil
}
