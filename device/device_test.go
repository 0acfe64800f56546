package device

import (
	"testing"

	"github.com/mochi-hpc/go-remi/remi"
)

func TestDefaultLookupIsMemory(t *testing.T) {
	r := NewRegistry()
	if r.Lookup("/anything") != remi.DeviceMemory {
		t.Fatal("expected memory as the default device kind")
	}
}

func TestSetDeviceAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.SetDevice("/mnt/hdd", remi.DeviceHDD); err != nil {
		t.Fatal(err)
	}
	if err := r.SetDevice("/mnt/ssd", remi.DeviceSSD); err != nil {
		t.Fatal(err)
	}
	if got := r.Lookup("/mnt/hdd/data/file.bin"); got != remi.DeviceHDD {
		t.Fatalf("expected DeviceHDD, got %v", got)
	}
	if got := r.Lookup("/mnt/ssd/data/file.bin"); got != remi.DeviceSSD {
		t.Fatalf("expected DeviceSSD, got %v", got)
	}
	if got := r.Lookup("/mnt/other"); got != remi.DeviceMemory {
		t.Fatalf("expected fallback to memory, got %v", got)
	}
}

func TestSetDeviceRejectsNesting(t *testing.T) {
	r := NewRegistry()
	if err := r.SetDevice("/mnt/hdd", remi.DeviceHDD); err != nil {
		t.Fatal(err)
	}
	if err := r.SetDevice("/mnt/hdd/nested", remi.DeviceSSD); err != remi.ErrInvalidArg {
		t.Fatalf("expected ErrInvalidArg for nested prefix, got %v", err)
	}
	if err := r.SetDevice("/mnt", remi.DeviceSSD); err != remi.ErrInvalidArg {
		t.Fatalf("expected ErrInvalidArg for prefix containing an existing one, got %v", err)
	}
}

func TestWriteLockOnlySerializesHDD(t *testing.T) {
	r := NewRegistry()
	r.SetDevice("/mnt/hdd", remi.DeviceHDD)

	unlock1 := r.WriteLock("/mnt/hdd/a")
	done := make(chan struct{})
	go func() {
		unlock2 := r.WriteLock("/mnt/hdd/b")
		close(done)
		unlock2()
	}()
	select {
	case <-done:
		t.Fatal("second HDD writer should have blocked behind the first")
	default:
	}
	unlock1()
	<-done
}

func TestWriteLockNoSerializationForMemory(t *testing.T) {
	r := NewRegistry()
	unlock := r.WriteLock("/anywhere/file")
	defer unlock()
	// A second lock attempt for a non-HDD path must not block.
	done := make(chan struct{})
	go func() {
		u := r.WriteLock("/anywhere/other")
		u()
		close(done)
	}()
	<-done
}
