// Package validation collects field-level validation failures and hosts the shared
// struct validator used by the form modules.
package validation

import (
	"strconv"
	"strings"
)

// FieldError is a single violated rule attached to a payload path
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Errors is an ordered list of field errors. A nil or empty list means the value is valid.
type Errors []FieldError

// Error implements the error interface
func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return "no validation errors"
	case 1:
		return e[0].Path + ": " + e[0].Message
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Path+": "+fe.Message)
	}
	return strconv.Itoa(len(e)) + " validation errors: " + strings.Join(parts, "; ")
}

// Add appends a field error
func (e *Errors) Add(path, message string) {
	*e = append(*e, FieldError{Path: path, Message: message})
}

// Append appends every error of other
func (e *Errors) Append(other Errors) {
	*e = append(*e, other...)
}

// For returns the messages attached to path, in order
func (e Errors) For(path string) []string {
	var messages []string
	for _, fe := range e {
		if fe.Path == path {
			messages = append(messages, fe.Message)
		}
	}
	return messages
}

// Has reports whether path has at least one error
func (e Errors) Has(path string) bool {
	for _, fe := range e {
		if fe.Path == path {
			return true
		}
	}
	return false
}

// Err returns nil for an empty list so callers can use the usual err != nil check
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Path joins path segments with dots, skipping empty ones
func Path(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ".")
}

// Index renders a list index as a path segment
func Index(i int) string {
	return strconv.Itoa(i)
}
