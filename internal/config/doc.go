// Package config loads application configuration.
//
// # Configuration Sources
//
// Values are layered in increasing order of precedence:
//
//	1. Default values
//	2. The first of beadcsv.yaml, configs/beadcsv.yaml, ../configs/beadcsv.yaml
//	3. Environment variables
//
// # Environment Variables
//
// Variables are prefixed with BEADCSV and follow the struct nesting:
//
//	BEADCSV_SERVER_PORT=8080
//	BEADCSV_SERVER_RATE_LIMIT_RPS=25
//	BEADCSV_LOGGING_LEVEL=debug
//	BEADCSV_PATHS_BASE_DIR=/srv/beadcsv
//	BEADCSV_DOCUMENTS_BACKUP_ON_WRITE=true
//
// # Path Management
//
// Paths resolves the data, output, backup and log directories against a
// base directory, the executable's directory by default:
//
//	paths, err := cfg.ResolvePaths()
//	out := paths.GetOutputPath("merged.csv")
package config
