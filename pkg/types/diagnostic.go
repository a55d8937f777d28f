package types

import (
	"fmt"
	"time"
)

// Severity mirrors the editor diagnostic severities
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic is a problem report attached to a document range
type Diagnostic struct {
	URI      string
	Range    Range
	Severity Severity
	Source   string
	Message  string
}

// String formats the diagnostic as "uri:line:col: severity: message"
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		d.URI, d.Range.Start.Line, d.Range.Start.Column, d.Severity, d.Message)
}

// DuplicateMessage builds the duplicate-definition diagnostic text
func DuplicateMessage(key Key, firstLine int) string {
	return fmt.Sprintf("Duplicate definition of '%s'. First defined at line %d.", key.String(), firstLine)
}

// IndexState is the coarse state of the workspace indexer
type IndexState string

const (
	StateIdle     IndexState = "idle"
	StateIndexing IndexState = "indexing"
	StateError    IndexState = "error"
)

// Status is emitted on every workspace session transition
type Status struct {
	State     IndexState `json:"status"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
	SessionID string     `json:"session_id,omitempty"`
}
