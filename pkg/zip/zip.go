// Package zip bundles downloaded outputs into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// Entry is one file placed in the archive.
type Entry struct {
	Filename string
	Data     []byte
	Modified time.Time
}

// Archive writes entries into an in-memory zip. Duplicate names are refused.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Filename]; dup {
			_ = zw.Close()
			return nil, fmt.Errorf("zip: duplicate entry %q", e.Filename)
		}
		seen[e.Filename] = struct{}{}
		header := &zip.FileHeader{Name: e.Filename, Method: zip.Deflate, Modified: e.Modified}
		w, err := zw.CreateHeader(header)
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("zip: create %s: %w", e.Filename, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("zip: write %s: %w", e.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize: %w", err)
	}
	return buf.Bytes(), nil
}
