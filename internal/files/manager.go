package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"beadcsv/internal/config"
	apperrors "beadcsv/internal/errors"
)

// backupTimeFormat keeps backups of one file sortable by name.
const backupTimeFormat = "20060102T150405.000"

// Manager provides file management operations relative to the configured
// directories.
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		paths:  paths,
		logger: logger.With(slog.String("component", "files")),
		now:    time.Now,
	}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	fullPath := m.resolvePath(path)
	_, err := os.Stat(fullPath)
	exists := err == nil

	m.logger.Debug("FileExists check",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	return exists
}

// Resolve returns the absolute location of path
func (m *Manager) Resolve(path string) string {
	return filepath.Clean(m.resolvePath(path))
}

// CopyFile copies a file from source to destination. Either side may be
// zstd-compressed; content is decompressed and recompressed as needed.
func (m *Manager) CopyFile(src, dst string) error {
	srcPath := m.resolvePath(src)
	dstPath := m.resolvePath(dst)

	m.logger.Info("Copying file",
		slog.String("src_path", srcPath),
		slog.String("dst_path", dstPath))

	in, err := Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := Create(dstPath)
	if err != nil {
		return err
	}
	defer out.Abort()

	if _, err := io.Copy(out, in); err != nil {
		return apperrors.NewWriteError("failed to copy file content", err).
			WithContext("src", srcPath).
			WithContext("dst", dstPath)
	}
	return out.Close()
}

// Backup stores a zstd-compressed copy of path in the backup directory and
// returns the backup location. A missing path is a NOT_FOUND error.
func (m *Manager) Backup(path string) (string, error) {
	srcPath := m.resolvePath(path)
	if _, err := os.Stat(srcPath); err != nil {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("file %q", srcPath), err).WithContext("path", srcPath)
	}

	base := filepath.Base(TrimCompressedExt(srcPath))
	name := fmt.Sprintf("%s.%s%s", base, m.now().UTC().Format(backupTimeFormat), CompressedExt)
	dstPath := m.paths.GetBackupPath(name)

	if err := m.CopyFile(srcPath, dstPath); err != nil {
		return "", err
	}

	m.logger.Info("Backup written",
		slog.String("path", srcPath),
		slog.String("backup", dstPath))
	return dstPath, nil
}

// DeleteFile deletes a file
func (m *Manager) DeleteFile(path string) error {
	fullPath := m.resolvePath(path)

	m.logger.Info("Deleting file",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	return os.Remove(fullPath)
}

// ReadFile reads the entire content of a file, decompressing .zst files
func (m *Manager) ReadFile(path string) ([]byte, error) {
	fullPath := m.resolvePath(path)

	m.logger.Debug("Reading file",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	rc, err := Open(fullPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// WriteFile atomically writes data to a file
func (m *Manager) WriteFile(path string, data []byte) error {
	fullPath := m.resolvePath(path)

	m.logger.Info("Writing file",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))

	f, err := Create(fullPath)
	if err != nil {
		return err
	}
	defer f.Abort()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Close()
}

// ListFiles returns all files in a directory (non-recursive)
func (m *Manager) ListFiles(dir string) ([]string, error) {
	fullPath := m.resolvePath(dir)

	m.logger.Debug("Listing files",
		slog.String("dir", dir),
		slog.String("full_path", fullPath))
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}

// resolvePath resolves a path relative to the appropriate base directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	switch {
	case strings.HasPrefix(path, "output/"):
		return m.paths.GetOutputPath(strings.TrimPrefix(path, "output/"))
	case strings.HasPrefix(path, "backups/"):
		return m.paths.GetBackupPath(strings.TrimPrefix(path, "backups/"))
	case strings.HasPrefix(path, "logs/"):
		return m.paths.GetLogPath(strings.TrimPrefix(path, "logs/"))
	default:
		return m.paths.GetDataPath(path)
	}
}
