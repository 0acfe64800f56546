package persist

import (
	"encoding/hex"

	"gitlab.com/NebulousLabs/fastrand"
)

// RandomSuffix returns a random hex string suitable for appending to a
// filename to make it unique, e.g. when writing a scratch file alongside a
// final destination.
func RandomSuffix() string {
	return hex.EncodeToString(fastrand.Bytes(6))
}
