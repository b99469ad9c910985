package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/files"
)

// FileValidator checks command inputs and destinations before any
// parsing starts
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory validates that dir exists and is a directory
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewNotFoundError("directory "+dir, err)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is not a directory", dir))
	}
	return nil
}

// ValidateFile checks that path is an existing, readable regular file
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewNotFoundError("file "+path, err)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExport checks an instrument export: a .csv or .csv.zst file
func (v *FileValidator) ValidateExport(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	if ext := strings.ToLower(filepath.Ext(files.TrimCompressedExt(path))); ext != ".csv" {
		v.logger.Warn("Export does not have a .csv extension",
			slog.String("file", path),
			slog.String("extension", ext))
	}
	return nil
}

// ValidateTable checks a collaborator table: .csv, .csv.zst or .xlsx,
// and not an Excel lock file
func (v *FileValidator) ValidateTable(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a temporary Excel file", path))
	}

	switch ext := strings.ToLower(filepath.Ext(files.TrimCompressedExt(path))); ext {
	case ".csv", ".xlsx":
		return nil
	default:
		return apperrors.NewAppValidationError(
			fmt.Sprintf("%s is not a .csv or .xlsx table (extension: %s)", path, ext))
	}
}

// ValidateOutputPath ensures the directory of path exists and is writable
func (v *FileValidator) ValidateOutputPath(path string) error {
	dir := filepath.Dir(path)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory", path))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewWriteError("failed to create output directory "+dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewWriteError("output directory "+dir+" is not writable", err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output path validated",
		slog.String("path", path))
	return nil
}
