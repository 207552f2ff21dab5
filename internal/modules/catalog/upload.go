package catalog

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const csvMIME = "text/csv"

// CheckUpload applies the file-shape rules that run before any parsing: exactly one file,
// strictly smaller than maxBytes, and CSV by extension or declared type with textual content.
// Every violated rule is reported.
func CheckUpload(files []File, maxBytes int64) error {
	if len(files) == 0 {
		return reject(ReasonNoFile, MsgNoFile, nil)
	}

	rejection := &RejectionError{}
	if len(files) > 1 {
		rejection.Violations = append(rejection.Violations, Violation{Reason: ReasonTooManyFiles, Message: MsgTooManyFiles})
	}

	for _, f := range files {
		size := f.Size
		if size == 0 {
			size = int64(len(f.Data))
		}
		if size >= maxBytes {
			rejection.Violations = append(rejection.Violations, Violation{Reason: ReasonTooLarge, Message: SizeMessage(maxBytes)})
		}
		if !looksLikeCSV(f) {
			rejection.Violations = append(rejection.Violations, Violation{Reason: ReasonNotCSV, Message: MsgNotCSV})
		}
	}

	if len(rejection.Violations) > 0 {
		return rejection
	}
	return nil
}

func looksLikeCSV(f File) bool {
	declared := strings.EqualFold(filepath.Ext(f.Name), ".csv")
	if mediaType, _, err := mime.ParseMediaType(f.ContentType); err == nil && mediaType == csvMIME {
		declared = true
	}
	if !declared {
		return false
	}
	if len(f.Data) == 0 {
		return true
	}

	for m := mimetype.Detect(f.Data); m != nil; m = m.Parent() {
		if m.Is(csvMIME) || m.Is("text/plain") {
			return true
		}
	}
	return false
}

// SizeMessage tells the user the upload limit
func SizeMessage(maxBytes int64) string {
	const mib = 1024 * 1024
	if maxBytes%mib == 0 {
		return fmt.Sprintf("File size must be less than %dMB", maxBytes/mib)
	}
	return fmt.Sprintf("File size must be less than %d bytes", maxBytes)
}
