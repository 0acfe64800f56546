package fileset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path string, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkthroughUnionAndOrdering(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "top.txt"), "top")
	writeTestFile(t, filepath.Join(root, "sub", "a.txt"), "a")
	writeTestFile(t, filepath.Join(root, "sub", "b.txt"), "b")
	writeTestFile(t, filepath.Join(root, "sub", ".hidden"), "skip me")
	writeTestFile(t, filepath.Join(root, "sub", "nested", "c.txt"), "c")

	fs, err := New("demo", root)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.RegisterFile("top.txt"); err != nil {
		t.Fatal(err)
	}
	if err := fs.RegisterDirectory("sub"); err != nil {
		t.Fatal(err)
	}

	files, err := fs.Walkthrough()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"sub/a.txt", "sub/b.txt", "sub/nested/c.txt", "top.txt"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, files)
		}
	}
}

func TestComputeSize(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.txt"), "12345")
	writeTestFile(t, filepath.Join(root, "b.txt"), "1234567890")

	fs, _ := New("demo", root)
	fs.RegisterFile("a.txt")
	fs.RegisterFile("b.txt")

	size, err := fs.ComputeSize(false)
	if err != nil {
		t.Fatal(err)
	}
	if size != 15 {
		t.Fatalf("expected 15 bytes, got %d", size)
	}

	fs.RegisterMetadata("k", "value")
	withMeta, err := fs.ComputeSize(true)
	if err != nil {
		t.Fatal(err)
	}
	if withMeta != 15+uint64(len("k")+len("value")+2) {
		t.Fatalf("unexpected size with metadata: %d", withMeta)
	}
}

func TestComputeSizeMissingFileContributesZero(t *testing.T) {
	root := t.TempDir()
	fs, _ := New("demo", root)
	fs.RegisterFile("missing.txt")
	size, err := fs.ComputeSize(false)
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Fatalf("expected 0 for missing file, got %d", size)
	}
}

func TestSwapForTransfer(t *testing.T) {
	root := t.TempDir()
	fs, _ := New("demo", root)
	fs.RegisterDirectory("sub")
	origRoot := fs.Root()

	restore := fs.SwapForTransfer("/remote/root", []string{"sub/a.txt", "sub/b.txt"})
	if fs.Root() != "/remote/root/" {
		t.Fatalf("expected swapped root, got %q", fs.Root())
	}
	var files []string
	fs.ForeachFile(func(p string) { files = append(files, p) })
	if len(files) != 2 {
		t.Fatalf("expected 2 files after swap, got %v", files)
	}
	var dirs []string
	fs.ForeachDirectory(func(p string) { dirs = append(dirs, p) })
	if len(dirs) != 0 {
		t.Fatalf("expected directories cleared after swap, got %v", dirs)
	}

	restore()
	if fs.Root() != origRoot {
		t.Fatalf("restore did not reset root: %q != %q", fs.Root(), origRoot)
	}
	dirs = nil
	fs.ForeachDirectory(func(p string) { dirs = append(dirs, p) })
	if len(dirs) != 1 || dirs[0] != "sub" {
		t.Fatalf("restore did not reset directories: %v", dirs)
	}
}
