// Package handlers provides HTTP handlers for price history uploads and the ticker catalog.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-intake/internal/modules/catalog"
	"github.com/aristath/portfolio-intake/internal/modules/form"
)

// FormField is the multipart field carrying uploaded files
const FormField = "files"

// multipartOverhead leaves room for boundaries and headers on top of the file limit
const multipartOverhead = 1 << 20

// CatalogSource exposes the catalog currently installed in the form
type CatalogSource interface {
	CatalogView() form.CatalogView
}

// Handler handles catalog HTTP requests
type Handler struct {
	loader   *catalog.Loader
	source   CatalogSource
	maxBytes int64
	log      zerolog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(loader *catalog.Loader, source CatalogSource, maxBytes int64, log zerolog.Logger) *Handler {
	return &Handler{
		loader:   loader,
		source:   source,
		maxBytes: maxBytes,
		log:      log.With().Str("handler", "catalog").Logger(),
	}
}

// HandleGetCatalog handles GET /api/catalog
func (h *Handler) HandleGetCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"catalog": h.source.CatalogView(),
		"pending": h.loader.Pending(),
	})
}

// HandleUpload handles POST /api/catalog/upload
// Shape violations are answered immediately. Parsing runs in the background; by default the
// request waits for it, with ?wait=false it returns the task id right away.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	files, err := h.readFiles(w, r)
	if err != nil {
		h.log.Debug().Err(err).Msg("Failed to read upload")
		message := catalog.MsgNoFile
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = catalog.SizeMessage(h.maxBytes)
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": []string{message},
		})
		return
	}

	// Only a newer upload cancels parsing, not the client going away
	task, err := h.loader.Upload(context.WithoutCancel(r.Context()), files)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	wait := true
	if v := r.URL.Query().Get("wait"); v != "" {
		if parsed, perr := strconv.ParseBool(v); perr == nil {
			wait = parsed
		}
	}
	if !wait {
		h.writeData(w, http.StatusAccepted, map[string]interface{}{
			"upload_id": task.ID,
			"file_name": task.FileName,
		})
		return
	}

	upload, err := task.Wait(r.Context())
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"upload_id": upload.ID,
		"file_name": upload.FileName,
		"tickers":   upload.Dataset.Tickers,
		"rows":      len(upload.Dataset.Records),
		"summary":   upload.Summary,
		"message":   catalog.MsgReady,
	})
}

func (h *Handler) readFiles(w http.ResponseWriter, r *http.Request) ([]catalog.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[FormField]
	files := make([]catalog.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh, h.maxBytes)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// readFile loads at most limit bytes; the declared size still reports oversized files
func readFile(fh *multipart.FileHeader, limit int64) (catalog.File, error) {
	src, err := fh.Open()
	if err != nil {
		return catalog.File{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit))
	if err != nil {
		return catalog.File{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return catalog.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Data:        data,
	}, nil
}

func (h *Handler) writeUploadError(w http.ResponseWriter, err error) {
	var rejection *catalog.RejectionError
	switch {
	case errors.As(err, &rejection):
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": rejection.Messages(),
		})
	case errors.Is(err, catalog.ErrStaleUpload):
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "upload still processing",
		})
	default:
		h.log.Error().Err(err).Msg("Upload failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "internal error",
		})
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
