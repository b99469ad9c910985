// Package events contains the messages pushed to websocket subscribers
// when the set of loaded documents changes.
package events

import "time"

// Protocol version
const (
	ProtocolVersion = "1.0"
	ProtocolName    = "beadcsv-events"
)

// EventType names a document lifecycle event
type EventType string

const (
	TypeConnection      EventType = "connection"
	TypeDocumentLoaded  EventType = "document:loaded"
	TypeDocumentMerged  EventType = "document:merged"
	TypeDocumentUpdated EventType = "document:updated"
	TypeDocumentWritten EventType = "document:written"
	TypeDocumentDeleted EventType = "document:deleted"
)

// DocumentEvent is one message on the events stream. Samples is the
// document's sample count after the change; Path is the source file for
// loads and the destination for writes.
type DocumentEvent struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id,omitempty"`
	SourceID   string    `json:"source_id,omitempty"`
	Path       string    `json:"path,omitempty"`
	Samples    int       `json:"samples,omitempty"`
	Rows       int       `json:"rows,omitempty"`
	TraceID    string    `json:"trace_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Connected is the first message a new subscriber receives
type Connected struct {
	Type     EventType `json:"type"`
	Protocol string    `json:"protocol"`
	Version  string    `json:"version"`
	ClientID string    `json:"client_id"`
}
