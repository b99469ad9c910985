package domain

import (
	"time"
)

// DocumentSummary describes a loaded export
type DocumentSummary struct {
	ID          string            `json:"id" validate:"required,uuid"`
	Path        string            `json:"path"`
	Fingerprint string            `json:"fingerprint"`
	LoadedAt    time.Time         `json:"loaded_at"`
	SampleCount int               `json:"sample_count"`
	Blocks      []string          `json:"blocks"`
	Beads       []string          `json:"beads"`
	Template    TemplateIdentity  `json:"template"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	MinEvents   int               `json:"min_events"`
}

// LoadDocumentRequest asks the service to parse one export, or several
// at once, from disk
type LoadDocumentRequest struct {
	Path  string   `json:"path,omitempty" validate:"required_without=Paths"`
	Paths []string `json:"paths,omitempty" validate:"required_without=Path,omitempty,dive,required"`
}

// MergeRequest appends the rows of another loaded document
type MergeRequest struct {
	SourceID       string `json:"source_id" validate:"required,uuid"`
	ShiftLocations bool   `json:"shift_locations"`
	Force          bool   `json:"force"`
}

// UpdateRequest replaces rows of a document with rows of another one.
// Either Pairs or well matching (with optional ExcludeWells) is used.
type UpdateRequest struct {
	SourceID     string         `json:"source_id" validate:"required,uuid"`
	Pairs        []LocationPair `json:"pairs,omitempty" validate:"omitempty,dive"`
	ExcludeWells []string       `json:"exclude_wells,omitempty" validate:"omitempty,dive,well"`
	Force        bool           `json:"force"`
}

// UpdateResult reports the pairs an update applied
type UpdateResult struct {
	Applied []LocationPair `json:"applied"`
}

// WriteRequest serializes a document to disk. A path ending in .xlsx
// writes a workbook, .csv.zst a compressed export.
type WriteRequest struct {
	Path   string `json:"path" validate:"required,exportpath"`
	Backup bool   `json:"backup"`
}
