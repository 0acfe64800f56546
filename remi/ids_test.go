package remi

import "testing"

func TestNewOpIDUnique(t *testing.T) {
	a := NewOpID()
	b := NewOpID()
	if a == ZeroOpID || b == ZeroOpID {
		t.Fatal("generated OpID should not be the zero value")
	}
	if a == b {
		t.Fatal("two calls to NewOpID should not collide")
	}
}

func TestOpIDRoundTrip(t *testing.T) {
	id := NewOpID()
	bin, err := id.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	var got OpID
	if err := got.UnmarshalBinary(bin); err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Fatalf("round-tripped OpID mismatch: %v != %v", got, id)
	}
}

func TestOpIDString(t *testing.T) {
	if ZeroOpID.String() != "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("unexpected zero OpID string: %s", ZeroOpID.String())
	}
}
