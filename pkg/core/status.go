package core

import "strings"

// Status is the outcome level of one diagnostic event.
type Status int

// Status levels, in increasing severity.
const (
	// StatusSuccess means a block was written as configured.
	StatusSuccess Status = iota
	// StatusWarning means output was produced but needs manual review.
	StatusWarning
	// StatusError means a file could not be read or written.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseStatus converts a string to a Status value.
// Returns the status and true if valid, or StatusWarning and false if invalid.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(s) {
	case "success", "ok":
		return StatusSuccess, true
	case "warning", "warn":
		return StatusWarning, true
	case "error":
		return StatusError, true
	default:
		return StatusWarning, false
	}
}
