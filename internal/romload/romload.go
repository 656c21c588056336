// Package romload loads ROM and boot ROM files from disk, transparently
// decompressing the common archive formats ROMs are shared in.
package romload

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// IsSize reports whether filename exists and has exactly the given size,
// used to sanity-check a boot ROM (256 bytes) before handing it to the bus.
func IsSize(filename string, size int64) bool {
	fi, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return fi.Size() == size
}

// Load reads filename and, if it is a recognized archive, decompresses the
// first entry. Plain .gb/.gbc/.bin files are returned as-is.
func Load(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".gb", ".gbc", ".bin":
		return data, nil
	case ".gz":
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", filename, err)
		}
		defer gz.Close()
		out, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", filename, err)
		}
		return out, nil
	case ".zip":
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("open zip %s: %w", filename, err)
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("zip %s: no entries", filename)
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry in %s: %w", filename, err)
		}
		defer rc.Close()
		out, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read zip entry in %s: %w", filename, err)
		}
		return out, nil
	case ".7z":
		sr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("open 7z %s: %w", filename, err)
		}
		if len(sr.File) == 0 {
			return nil, fmt.Errorf("7z %s: no entries", filename)
		}
		rc, err := sr.File[0].Open()
		if err != nil {
			return nil, fmt.Errorf("open 7z entry in %s: %w", filename, err)
		}
		defer rc.Close()
		out, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read 7z entry in %s: %w", filename, err)
		}
		return out, nil
	default:
		return data, nil
	}
}
