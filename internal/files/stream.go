package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	apperrors "beadcsv/internal/errors"
)

// CompressedExt marks files stored zstd-compressed.
const CompressedExt = ".zst"

// IsCompressed reports whether path names a zstd-compressed file.
func IsCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CompressedExt)
}

// TrimCompressedExt strips a trailing .zst, so "run.csv.zst" becomes "run.csv".
func TrimCompressedExt(path string) string {
	if IsCompressed(path) {
		return path[:len(path)-len(CompressedExt)]
	}
	return path
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens path for reading, decompressing .zst files transparently.
// A missing file is reported as a NOT_FOUND error.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("file %q", path), err).WithContext("path", path)
		}
		return nil, apperrors.NewDecodeError("failed to open file", err).WithContext("path", path)
	}
	if !IsCompressed(path) {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, apperrors.NewDecodeError("failed to open zstd stream", err).WithContext("path", path)
	}
	return &readCloser{
		Reader: dec,
		closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		},
	}, nil
}

// File is an export being written. Content goes to a temporary file next to
// the destination and only replaces it on Close.
type File struct {
	path string
	tmp  *os.File
	enc  *zstd.Encoder
	w    io.Writer
	done bool
}

// Create starts writing path, creating parent directories as needed. Paths
// ending in .zst are zstd-compressed.
func Create(path string) (*File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.NewWriteError("failed to create directory", err).WithContext("path", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, apperrors.NewWriteError("failed to create file", err).WithContext("path", path)
	}

	f := &File{path: path, tmp: tmp, w: tmp}
	if IsCompressed(path) {
		enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Abort()
			return nil, apperrors.NewWriteError("failed to start zstd stream", err).WithContext("path", path)
		}
		f.enc, f.w = enc, enc
	}
	return f, nil
}

// Path returns the destination path.
func (f *File) Path() string {
	return f.path
}

func (f *File) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, apperrors.NewWriteError("failed to write file", err).WithContext("path", f.path)
	}
	return n, nil
}

// Close flushes the content and moves it into place.
func (f *File) Close() error {
	if f.done {
		return nil
	}
	f.done = true

	if f.enc != nil {
		if err := f.enc.Close(); err != nil {
			f.discard()
			return apperrors.NewWriteError("failed to finish zstd stream", err).WithContext("path", f.path)
		}
	}
	if err := f.tmp.Sync(); err != nil {
		f.discard()
		return apperrors.NewWriteError("failed to sync file", err).WithContext("path", f.path)
	}
	if err := f.tmp.Close(); err != nil {
		os.Remove(f.tmp.Name())
		return apperrors.NewWriteError("failed to close file", err).WithContext("path", f.path)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		os.Remove(f.tmp.Name())
		return apperrors.NewWriteError("failed to replace file", err).WithContext("path", f.path)
	}
	return nil
}

// Abort drops everything written so far and leaves the destination
// untouched. It is a no-op after Close.
func (f *File) Abort() {
	if f.done {
		return
	}
	f.done = true
	if f.enc != nil {
		f.enc.Close()
	}
	f.discard()
}

func (f *File) discard() {
	f.tmp.Close()
	os.Remove(f.tmp.Name())
}
