// Package archive packages a day's chain CSV directories into a single ZIP
// together with the bundled archive notice.
package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	_ "embed"
)

// NoticeFile is the name of the sidecar notice placed next to the per-chain
// directories before archiving.
const NoticeFile = "archive-info.txt"

//go:embed notice.txt
var noticeText []byte

// CopyNotice writes the bundled archive notice into the date directory.
func CopyNotice(dateDir string) error {
	path := filepath.Join(dateDir, NoticeFile)
	if err := os.WriteFile(path, noticeText, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Create builds a deflate level 9 ZIP of the date directory's contents at
// output. Paths inside the archive are relative to the date directory.
func Create(dateDir, output string) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", output, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	err = filepath.WalkDir(dateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dateDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", rel, err)
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to build archive %s: %w", output, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive %s: %w", output, err)
	}
	return f.Close()
}
