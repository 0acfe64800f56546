package loopback_test

import (
	"context"
	"testing"

	"github.com/mochi-hpc/go-remi/remi"
	"github.com/mochi-hpc/go-remi/transport"
	"github.com/mochi-hpc/go-remi/transport/loopback"
)

type stubHandler struct {
	startResp remi.StartResponse
}

func (s *stubHandler) HandleStart(ctx context.Context, req *remi.StartRequest) (*remi.StartResponse, error) {
	return &s.startResp, nil
}
func (s *stubHandler) HandleMMAP(ctx context.Context, req *remi.MMAPRequest, pull transport.BulkPuller) (*remi.MMAPResponse, error) {
	return &remi.MMAPResponse{Err: remi.Success}, nil
}
func (s *stubHandler) HandleWrite(ctx context.Context, req *remi.WriteRequest) (*remi.WriteResponse, error) {
	return &remi.WriteResponse{Err: remi.Success}, nil
}
func (s *stubHandler) HandleEnd(ctx context.Context, req *remi.EndRequest) (*remi.EndResponse, error) {
	return &remi.EndResponse{Err: remi.Success}, nil
}

func TestRegisterAndDial(t *testing.T) {
	h := &stubHandler{startResp: remi.StartResponse{Err: remi.Success, OpID: remi.NewOpID()}}
	prov := loopback.NewProvider()
	addr, err := prov.Register(context.Background(), "test-addr", h)
	if err != nil {
		t.Fatal(err)
	}
	defer prov.Shutdown(context.Background())

	peer, err := loopback.Dialer{}.Dial(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	var resp remi.StartResponse
	if err := peer.Call(context.Background(), remi.RPCMigrateStart, &remi.StartRequest{}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.OpID != h.startResp.OpID {
		t.Fatalf("expected dispatched response, got %v", resp)
	}
}

func TestIdentifyReturnsProviderIdentity(t *testing.T) {
	h := &stubHandler{}
	prov := loopback.NewProvider()
	addr, err := prov.Register(context.Background(), "identity-addr", h)
	if err != nil {
		t.Fatal(err)
	}
	defer prov.Shutdown(context.Background())

	peer, err := loopback.Dialer{}.Dial(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	got, err := peer.Identify(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != remi.ProviderIdentity {
		t.Fatalf("expected identity %q, got %q", remi.ProviderIdentity, got)
	}
}

func TestDialUnknownAddress(t *testing.T) {
	if _, err := (loopback.Dialer{}).Dial(context.Background(), "does-not-exist"); err != remi.ErrTransport {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestDoubleRegisterRejected(t *testing.T) {
	h := &stubHandler{}
	p1 := loopback.NewProvider()
	p2 := loopback.NewProvider()
	if _, err := p1.Register(context.Background(), "dup-addr", h); err != nil {
		t.Fatal(err)
	}
	defer p1.Shutdown(context.Background())
	if _, err := p2.Register(context.Background(), "dup-addr", h); err != remi.ErrInvalidArg {
		t.Fatalf("expected ErrInvalidArg for duplicate address, got %v", err)
	}
}

func TestPushPullBulk(t *testing.T) {
	h := &stubHandler{}
	prov := loopback.NewProvider()
	addr, _ := prov.Register(context.Background(), "bulk-addr", h)
	defer prov.Shutdown(context.Background())

	peer, err := loopback.Dialer{}.Dial(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	desc, err := peer.PushBulk(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	puller, ok := peer.(transport.BulkPuller)
	if !ok {
		t.Fatal("loopback peer should implement transport.BulkPuller")
	}
	data, err := puller.PullBulk(context.Background(), desc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("expected payload, got %q", data)
	}
}
