package sender_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mochi-hpc/go-remi/fileset"
	"github.com/mochi-hpc/go-remi/receiver"
	"github.com/mochi-hpc/go-remi/remi"
	"github.com/mochi-hpc/go-remi/sender"
	"github.com/mochi-hpc/go-remi/transport/loopback"
)

func startProvider(t *testing.T, class string) (string, string) {
	t.Helper()
	root := t.TempDir()
	prov := receiver.New(root, nil, nil)
	if err := prov.RegisterClass(class, remi.AnyProviderID, receiver.ClassHandlers{}); err != nil {
		t.Fatal(err)
	}
	lb := loopback.NewProvider()
	addr, err := lb.Register(context.Background(), "", prov)
	if err != nil {
		t.Fatal(err)
	}
	return addr, root
}

func TestMigrateWithChecksumVerification(t *testing.T) {
	addr, dstRoot := startProvider(t, "c")

	srcRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcRoot, "a.bin"), []byte("checksummed content"), 0644); err != nil {
		t.Fatal(err)
	}
	fs, _ := fileset.New("c", srcRoot)
	fs.RegisterFile("a.bin")

	client := sender.NewClient(loopback.Dialer{})
	client.ComputeChecksums = true
	handle, err := client.Lookup(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Release(handle)

	if _, err := client.Migrate(context.Background(), handle, fs, "remote", remi.ModeMMAP, remi.KeepSource); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dstRoot, "c", "a.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "checksummed content" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestProviderHandleRefCounting(t *testing.T) {
	addr, _ := startProvider(t, "c")
	client := sender.NewClient(loopback.Dialer{})

	h1, err := client.Lookup(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := client.Lookup(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("expected Lookup to return the cached handle for the same address")
	}
	if err := client.Release(h1); err != nil {
		t.Fatal(err)
	}
	if err := client.Release(h2); err != nil {
		t.Fatal(err)
	}
}

func TestMigratePermissionPreservation(t *testing.T) {
	addr, dstRoot := startProvider(t, "c")

	srcRoot := t.TempDir()
	path := filepath.Join(srcRoot, "a.bin")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	fs, _ := fileset.New("c", srcRoot)
	fs.RegisterFile("a.bin")

	client := sender.NewClient(loopback.Dialer{})
	handle, _ := client.Lookup(context.Background(), addr)
	defer client.Release(handle)

	if _, err := client.Migrate(context.Background(), handle, fs, "remote", remi.ModeMMAP, remi.KeepSource); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dstRoot, "c", "a.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("expected permission bits 0600 preserved, got %v", info.Mode().Perm())
	}
}
