package build

import (
	"os"
	"path/filepath"
)

// TestDir is the directory that contains the files and folders created
// during testing.
var TestDir = filepath.Join(os.TempDir(), "RemiTesting")

// TempDir joins the provided directories and prefixes them with the remi
// testing directory, removing any pre-existing contents at that path.
func TempDir(dirs ...string) string {
	path := filepath.Join(TestDir, filepath.Join(dirs...))
	os.RemoveAll(path)
	return path
}
