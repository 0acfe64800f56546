package remi

import (
	"github.com/google/uuid"
	"gitlab.com/NebulousLabs/fastrand"
)

// OpID identifies one in-flight migration operation on the receiver. It is
// a 128-bit random value, generated from fastrand (the teacher's house
// source of unpredictable, non-cryptographic entropy) but shaped into a
// standard UUID so it prints and parses the same way any other UUID would.
type OpID uuid.UUID

// ZeroOpID is the nil operation id, returned alongside an error when no
// operation was created.
var ZeroOpID OpID

// NewOpID generates a fresh, random operation id.
func NewOpID() OpID {
	var id uuid.UUID
	copy(id[:], fastrand.Bytes(16))
	return OpID(id)
}

func (id OpID) String() string {
	return uuid.UUID(id).String()
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (id OpID) MarshalBinary() ([]byte, error) {
	return uuid.UUID(id).MarshalBinary()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *OpID) UnmarshalBinary(data []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalBinary(data); err != nil {
		return err
	}
	*id = OpID(u)
	return nil
}
