package fileset

import "testing"

func TestWireRoundTrip(t *testing.T) {
	fs, _ := New("demo", "/tmp/foo")
	fs.SetProviderID(7)
	fs.SetXferSize(2048)
	fs.RegisterFile("a.txt")
	fs.RegisterDirectory("sub")
	fs.RegisterMetadata("k", "v")

	w := fs.ToWire()
	if w.Class != "demo" || w.ProviderID != 7 || w.XferSize != 2048 {
		t.Fatalf("unexpected wire projection: %+v", w)
	}
	if len(w.Files) != 1 || w.Files[0] != "a.txt" {
		t.Fatalf("unexpected wire files: %v", w.Files)
	}
	if len(w.Directories) != 1 || w.Directories[0] != "sub" {
		t.Fatalf("unexpected wire directories: %v", w.Directories)
	}

	back, err := FromWire(w)
	if err != nil {
		t.Fatal(err)
	}
	if back.Class() != fs.Class() || back.ProviderID() != fs.ProviderID() || back.XferSize() != fs.XferSize() {
		t.Fatalf("FromWire did not reconstruct fields: %+v", back)
	}
	if v, ok := back.GetMetadata("k"); !ok || v != "v" {
		t.Fatalf("FromWire did not reconstruct metadata: %q %v", v, ok)
	}
}
