package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved application directories
type Paths struct {
	BaseDir   string
	DataDir   string
	OutputDir string
	BackupDir string
	LogsDir   string
}

// NewPaths resolves cfg against baseDir
func NewPaths(baseDir string, cfg PathsConfig) *Paths {
	if cfg.BaseDir != "" {
		baseDir = cfg.BaseDir
	}
	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(baseDir, dir)
	}
	return &Paths{
		BaseDir:   baseDir,
		DataDir:   resolve(cfg.DataDir),
		OutputDir: resolve(cfg.OutputDir),
		BackupDir: resolve(cfg.BackupDir),
		LogsDir:   resolve(cfg.LogsDir),
	}
}

// GetPaths returns default paths relative to the executable location
func GetPaths() (*Paths, error) {
	exeDir, err := executableDir()
	if err != nil {
		return nil, err
	}
	return NewPaths(exeDir, Default().Paths), nil
}

// ResolvePaths resolves the configured directories
func (c *Config) ResolvePaths() (*Paths, error) {
	if c.Paths.BaseDir != "" {
		return NewPaths(c.Paths.BaseDir, c.Paths), nil
	}
	exeDir, err := executableDir()
	if err != nil {
		return nil, err
	}
	return NewPaths(exeDir, c.Paths), nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.OutputDir, p.BackupDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetDataPath returns the path for an input file
func (p *Paths) GetDataPath(filename string) string {
	return p.resolveIn(p.DataDir, filename)
}

// GetOutputPath returns the path for a written export
func (p *Paths) GetOutputPath(filename string) string {
	return p.resolveIn(p.OutputDir, filename)
}

// GetBackupPath returns the path for a backup copy
func (p *Paths) GetBackupPath(filename string) string {
	return p.resolveIn(p.BackupDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return p.resolveIn(p.LogsDir, filename)
}

func (p *Paths) resolveIn(dir, filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(dir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved directories
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("output", p.OutputDir),
			slog.String("backup", p.BackupDir),
			slog.String("logs", p.LogsDir),
		))
}
