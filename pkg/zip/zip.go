package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Entry is one file to place in an archive.
type Entry struct {
	Name     string
	Path     string
	Modified time.Time
}

// Write streams entries into a zip archive on w. Entries are read from disk
// one at a time; the first failure aborts the archive.
func Write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		if err := add(zw, e); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

// WriteFile creates path and writes the archive into it.
func WriteFile(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("zip: ensure directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("zip: create archive: %w", err)
	}
	if err := Write(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func add(zw *zip.Writer, e Entry) error {
	src, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("zip: open %s: %w", e.Name, err)
	}
	defer src.Close()

	hdr := &zip.FileHeader{Name: filepath.ToSlash(e.Name), Method: zip.Deflate}
	if !e.Modified.IsZero() {
		hdr.Modified = e.Modified
	}
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip: add %s: %w", e.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("zip: write %s: %w", e.Name, err)
	}
	return nil
}
