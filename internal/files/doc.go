// Package files provides file access for exports.
//
// Open and Create handle zstd-compressed files (".zst") transparently, and
// Create replaces its destination only once the content is complete.
//
// Discovery finds exports in a directory. Manager resolves paths against
// the configured data, output, backup and log directories and keeps
// compressed backups:
//
//	manager := files.NewManager(paths, logger)
//	backup, err := manager.Backup("run1.csv")
package files
