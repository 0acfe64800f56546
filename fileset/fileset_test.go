package fileset

import (
	"testing"

	"github.com/mochi-hpc/go-remi/remi"
)

func TestNewValidatesArgs(t *testing.T) {
	if _, err := New("", "/tmp/foo"); err != remi.ErrInvalidArg {
		t.Fatalf("expected ErrInvalidArg for empty class, got %v", err)
	}
	if _, err := New("demo", "relative/path"); err != remi.ErrInvalidArg {
		t.Fatalf("expected ErrInvalidArg for non-absolute root, got %v", err)
	}
}

func TestRootCanonicalization(t *testing.T) {
	fs, err := New("demo", "/tmp/foo")
	if err != nil {
		t.Fatal(err)
	}
	if fs.Root() != "/tmp/foo/" {
		t.Fatalf("expected trailing slash, got %q", fs.Root())
	}
	if err := fs.SetRoot("/tmp/bar/"); err != nil {
		t.Fatal(err)
	}
	if fs.Root() != "/tmp/bar/" {
		t.Fatalf("SetRoot did not take effect: %q", fs.Root())
	}
}

func TestRegisterDeregisterFile(t *testing.T) {
	fs, _ := New("demo", "/tmp/foo")
	if err := fs.RegisterFile("/a/b.txt"); err != nil {
		t.Fatal(err)
	}
	var seen []string
	fs.ForeachFile(func(p string) { seen = append(seen, p) })
	if len(seen) != 1 || seen[0] != "a/b.txt" {
		t.Fatalf("unexpected registered files: %v", seen)
	}
	if err := fs.DeregisterFile("a/b.txt"); err != nil {
		t.Fatal(err)
	}
	if err := fs.DeregisterFile("a/b.txt"); err != remi.ErrUnknownFile {
		t.Fatalf("expected ErrUnknownFile on second deregister, got %v", err)
	}
}

func TestRegisterDirectory(t *testing.T) {
	fs, _ := New("demo", "/tmp/foo")
	if err := fs.RegisterDirectory("sub"); err != nil {
		t.Fatal(err)
	}
	var seen []string
	fs.ForeachDirectory(func(p string) { seen = append(seen, p) })
	if len(seen) != 1 || seen[0] != "sub" {
		t.Fatalf("unexpected registered directories: %v", seen)
	}
	if err := fs.DeregisterDirectory("nope"); err != remi.ErrUnknownFile {
		t.Fatalf("expected ErrUnknownFile, got %v", err)
	}
}

func TestMetadata(t *testing.T) {
	fs, _ := New("demo", "/tmp/foo")
	if err := fs.RegisterMetadata("", "v"); err != remi.ErrInvalidArg {
		t.Fatalf("expected ErrInvalidArg for empty key, got %v", err)
	}
	if err := fs.RegisterMetadata("k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, ok := fs.GetMetadata("k"); !ok || v != "v" {
		t.Fatalf("unexpected metadata lookup: %q %v", v, ok)
	}
	if err := fs.DeregisterMetadata("k"); err != nil {
		t.Fatal(err)
	}
	if err := fs.DeregisterMetadata("k"); err != remi.ErrUnknownMeta {
		t.Fatalf("expected ErrUnknownMeta, got %v", err)
	}
}

func TestXferSize(t *testing.T) {
	fs, _ := New("demo", "/tmp/foo")
	if fs.XferSize() != remi.DefaultXferSize {
		t.Fatalf("expected default xfer size, got %d", fs.XferSize())
	}
	if err := fs.SetXferSize(0); err != remi.ErrInvalidArg {
		t.Fatalf("expected ErrInvalidArg for zero xfer size, got %v", err)
	}
	if err := fs.SetXferSize(4096); err != nil {
		t.Fatal(err)
	}
	if fs.XferSize() != 4096 {
		t.Fatalf("SetXferSize did not take effect: %d", fs.XferSize())
	}
}
