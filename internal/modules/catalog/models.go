// Package catalog turns uploaded price history into the ticker universe offered to the form.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrStaleUpload is returned by a parse task that was superseded by a newer upload
var ErrStaleUpload = errors.New("upload superseded by a newer upload")

// Ticker is a selectable symbol. Value is the lowercased column header, Label the uppercased one.
type Ticker struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// NewTicker derives a ticker from a CSV column header
func NewTicker(header string) Ticker {
	return Ticker{
		Value: strings.ToLower(header),
		Label: strings.ToUpper(header),
	}
}

// Record is one data row keyed by column header. Values are decimal.Decimal for numbers,
// bool for true/false literals and string otherwise. Blank cells are absent.
type Record map[string]interface{}

// Dataset is the successfully parsed content of a price history upload
type Dataset struct {
	Headers []string `json:"headers"`
	Tickers []Ticker `json:"tickers"`
	Records []Record `json:"-"`
}

// DateColumn returns the name of the first column as it appears in the file
func (d *Dataset) DateColumn() string {
	if len(d.Headers) == 0 {
		return ""
	}
	return d.Headers[0]
}

// Column returns the numeric values of a column in row order along with the row indexes
// they came from. Non-numeric and blank cells are skipped.
func (d *Dataset) Column(header string) ([]float64, []int) {
	values := make([]float64, 0, len(d.Records))
	rows := make([]int, 0, len(d.Records))
	for i, rec := range d.Records {
		if v, ok := rec[header].(decimal.Decimal); ok {
			values = append(values, v.InexactFloat64())
			rows = append(rows, i)
		}
	}
	return values, rows
}

// Label renders a cell for display; numbers keep their exact textual form
func (r Record) Label(header string) string {
	switch v := r[header].(type) {
	case nil:
		return ""
	case decimal.Decimal:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// File is an uploaded file as received from the client
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Reason identifies which upload rule was violated
type Reason string

const (
	ReasonNoFile         Reason = "no_file"
	ReasonTooManyFiles   Reason = "too_many_files"
	ReasonTooLarge       Reason = "too_large"
	ReasonNotCSV         Reason = "not_csv"
	ReasonParse          Reason = "parse_error"
	ReasonEmpty          Reason = "empty"
	ReasonTooFewColumns  Reason = "too_few_columns"
	ReasonBadFirstColumn Reason = "bad_first_column"
)

// User-facing messages
const (
	MsgNoFile         = "No valid CSV data to submit."
	MsgTooManyFiles   = "Only one file is allowed"
	MsgNotCSV         = "Only .csv files are accepted"
	MsgParse          = "Errors while parsing the CSV file."
	MsgEmpty          = "CSV file is empty."
	MsgTooFewColumns  = "CSV must have at least two columns: Date and one ticker."
	MsgBadFirstColumn = `The first column must be "Date".`
	MsgReady          = "Your data is now ready for use!"
)

// Violation is a single broken upload rule
type Violation struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// RejectionError reports why an upload was refused. No catalog is installed when it occurs.
type RejectionError struct {
	Violations []Violation
	Cause      error
}

func reject(reason Reason, message string, cause error) *RejectionError {
	return &RejectionError{
		Violations: []Violation{{Reason: reason, Message: message}},
		Cause:      cause,
	}
}

func (e *RejectionError) Error() string {
	msg := strings.Join(e.Messages(), "; ")
	if e.Cause != nil {
		return fmt.Sprintf("upload rejected: %s: %v", msg, e.Cause)
	}
	return "upload rejected: " + msg
}

func (e *RejectionError) Unwrap() error {
	return e.Cause
}

// Messages returns the user-facing message of every violation
func (e *RejectionError) Messages() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Message
	}
	return out
}

// Has reports whether the rejection includes reason
func (e *RejectionError) Has(reason Reason) bool {
	for _, v := range e.Violations {
		if v.Reason == reason {
			return true
		}
	}
	return false
}

// Upload is the outcome of a successful ingestion
type Upload struct {
	ID       string          `json:"id"`
	FileName string          `json:"file_name"`
	Dataset  *Dataset        `json:"dataset"`
	Summary  []TickerSummary `json:"summary"`
	LoadedAt time.Time       `json:"loaded_at"`
}
