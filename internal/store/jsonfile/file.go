// Package jsonfile implements the local JSON file stores: the last-observed
// snapshot and the per-day opening snapshots.
//
// Writes go through a temp file in the target directory followed by a
// rename, so concurrent readers see either the old or the new content.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// ReadError is returned when a store file exists but cannot be read or decoded.
type ReadError struct {
	Path    string
	Corrupt bool // content present but not decodable
	Err     error
}

func (e *ReadError) Error() string { return fmt.Sprintf("jsonfile: read %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is returned when a store file cannot be replaced.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("jsonfile: write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// ErrNullDocument marks a store file whose whole content is JSON null.
var ErrNullDocument = errors.New("document is null")

// ReadJSON decodes path into v. A missing file leaves v untouched and
// returns (false, nil). A top-level null is reported as corrupt, since
// decoding it would leave a map destination nil.
func ReadJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &ReadError{Path: path, Err: err}
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return false, nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return false, &ReadError{Path: path, Corrupt: true, Err: ErrNullDocument}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &ReadError{Path: path, Corrupt: true, Err: err}
	}
	return true, nil
}

// WriteJSON atomically replaces path with the indented JSON encoding of v.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// IsCorrupt reports whether err is a ReadError for undecodable content.
func IsCorrupt(err error) bool {
	var re *ReadError
	return errors.As(err, &re) && re.Corrupt
}

// Quarantine moves an undecodable file aside so the next write does not
// destroy whatever is still recoverable in it. Returns the new path.
func Quarantine(path string, now time.Time) (string, error) {
	dst := fmt.Sprintf("%s.corrupt-%s", path, now.Format("20060102T150405"))
	if err := os.Rename(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}
