package files

import (
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileInfo describes one discovered export
type FileInfo struct {
	Path       string
	Name       string
	Size       int64
	ModTime    time.Time
	Compressed bool
}

// Discovery lists export files below a base directory. Relative
// directories passed to its methods are resolved against the base.
type Discovery struct {
	basePath string
}

func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindExports returns the .csv and .csv.zst files directly in dir, oldest
// first, ties broken by name.
func (d *Discovery) FindExports(dir string) ([]FileInfo, error) {
	return d.FindFilesByPattern(dir, "*")
}

// FindFilesByPattern is FindExports restricted to names matching the
// filepath.Match pattern.
func (d *Discovery) FindFilesByPattern(dir, pattern string) ([]FileInfo, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	root := dir
	if !filepath.IsAbs(dir) {
		root = filepath.Join(d.basePath, dir)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", root, err)
	}

	var found []FileInfo
	for _, entry := range entries {
		if !isExport(entry) {
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, FileInfo{
			Path:       filepath.Join(root, entry.Name()),
			Name:       entry.Name(),
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			Compressed: IsCompressed(entry.Name()),
		})
	}

	slices.SortStableFunc(found, func(a, b FileInfo) int {
		if c := a.ModTime.Compare(b.ModTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return found, nil
}

func isExport(entry fs.DirEntry) bool {
	if entry.IsDir() {
		return false
	}
	return strings.EqualFold(filepath.Ext(TrimCompressedExt(entry.Name())), ".csv")
}
