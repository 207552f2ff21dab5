package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// Notification levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

// NotificationData is a user-facing message (a toast in a browser client)
type NotificationData struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// EventType returns the event type for NotificationData
func (d *NotificationData) EventType() EventType {
	return Notification
}

// FormChangedData carries the state of the form after a mutation.
// Snapshot is whatever the form store publishes; it must be JSON serializable.
type FormChangedData struct {
	Revision int64       `json:"revision"`
	Action   string      `json:"action"`
	Snapshot interface{} `json:"snapshot"`
}

// EventType returns the event type for FormChangedData
func (d *FormChangedData) EventType() EventType {
	return FormChanged
}

// RowDeleteRequestedData announces a pending deletion awaiting confirmation
type RowDeleteRequestedData struct {
	Token     string `json:"token"`
	RowID     string `json:"row_id"`
	Index     int    `json:"index"`
	Ticker    string `json:"ticker,omitempty"`
	ExpiresAt string `json:"expires_at"`
}

// EventType returns the event type for RowDeleteRequestedData
func (d *RowDeleteRequestedData) EventType() EventType {
	return RowDeleteRequested
}

// CatalogLoadedData describes a freshly installed ticker catalog
type CatalogLoadedData struct {
	UploadID string   `json:"upload_id"`
	FileName string   `json:"file_name"`
	Tickers  []string `json:"tickers"`
	Rows     int      `json:"rows"`
}

// EventType returns the event type for CatalogLoadedData
func (d *CatalogLoadedData) EventType() EventType {
	return CatalogLoaded
}

// UploadRejectedData lists every rule an upload violated
type UploadRejectedData struct {
	UploadID string   `json:"upload_id,omitempty"`
	FileName string   `json:"file_name,omitempty"`
	Reasons  []string `json:"reasons"`
}

// EventType returns the event type for UploadRejectedData
func (d *UploadRejectedData) EventType() EventType {
	return UploadRejected
}

// SubmissionAcceptedData is emitted once the backend accepted a payload
type SubmissionAcceptedData struct {
	ReceiptID string `json:"receipt_id"`
	Method    string `json:"method"`
	Stocks    int    `json:"stocks"`
}

// EventType returns the event type for SubmissionAcceptedData
func (d *SubmissionAcceptedData) EventType() EventType {
	return SubmissionAccepted
}

// FieldIssue mirrors a single validation failure without importing the validation package
type FieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// SubmissionRejectedData lists the validation failures that blocked a submission
type SubmissionRejectedData struct {
	Errors []FieldIssue `json:"errors"`
}

// EventType returns the event type for SubmissionRejectedData
func (d *SubmissionRejectedData) EventType() EventType {
	return SubmissionRejected
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
