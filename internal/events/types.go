// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Form state
	FormChanged        EventType = "FORM_CHANGED"
	RowDeleteRequested EventType = "ROW_DELETE_REQUESTED"

	// CSV ingestion
	CatalogLoaded  EventType = "CATALOG_LOADED"
	UploadRejected EventType = "UPLOAD_REJECTED"

	// Submission
	SubmissionAccepted EventType = "SUBMISSION_ACCEPTED"
	SubmissionRejected EventType = "SUBMISSION_REJECTED"

	// User-facing toasts
	Notification EventType = "NOTIFICATION"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type a stream client can subscribe to.
var AllTypes = []EventType{
	FormChanged,
	RowDeleteRequested,
	CatalogLoaded,
	UploadRejected,
	SubmissionAccepted,
	SubmissionRejected,
	Notification,
	ErrorOccurred,
}

// Event represents a system event with typed data
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data,omitempty"`
}
