package persist

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
)

// Metadata identifies the kind and version of a JSON-persisted object so
// that LoadJSON can reject files written by an incompatible version.
type Metadata struct {
	Header  string
	Version string
}

type jsonFile struct {
	Metadata
	Data json.RawMessage
}

// SaveJSON writes object to filename, tagging it with meta. The write goes
// to a temporary file in the same directory and is renamed into place, so a
// crash mid-write cannot leave a half-written destination file.
func SaveJSON(meta Metadata, object interface{}, filename string) error {
	data, err := json.MarshalIndent(object, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	full, err := json.MarshalIndent(jsonFile{meta, data}, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata wrapper: %w", err)
	}
	tmp, err := ioutil.TempFile(filepath.Dir(filename), "tmp-persist")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(full); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// LoadJSON reads filename and unmarshals it into object, verifying that the
// file's metadata matches meta.
func LoadJSON(meta Metadata, object interface{}, filename string) error {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	var jf jsonFile
	if err := json.Unmarshal(data, &jf); err != nil {
		return fmt.Errorf("failed to unmarshal metadata wrapper: %w", err)
	}
	if jf.Header != meta.Header {
		return fmt.Errorf("mismatched header: expected %v, got %v", meta.Header, jf.Header)
	}
	if jf.Version != meta.Version {
		return fmt.Errorf("mismatched version: expected %v, got %v", meta.Version, jf.Version)
	}
	return json.Unmarshal(jf.Data, object)
}
