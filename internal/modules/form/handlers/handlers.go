// Package handlers provides HTTP handlers for editing and submitting the form.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-intake/internal/modules/form"
	"github.com/aristath/portfolio-intake/internal/modules/optimization"
	"github.com/aristath/portfolio-intake/internal/modules/securities"
	"github.com/aristath/portfolio-intake/internal/validation"
)

const maxBodyBytes = 1 << 20

// Handler handles form HTTP requests
type Handler struct {
	store *form.Store
	log   zerolog.Logger
}

// NewHandler creates a new form handler
func NewHandler(store *form.Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "form").Logger(),
	}
}

// HandleGetForm handles GET /api/form
func (h *Handler) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.store.Snapshot())
}

// HandleReset handles POST /api/form/reset
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.store.Reset())
}

// HandleSubmit handles POST /api/form/submit
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.store.Submit(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, receipt)
}

// HandleSubmitPayload handles POST /api/submissions
// Accepts a complete payload and submits it without touching the form
func (h *Handler) HandleSubmitPayload(w http.ResponseWriter, r *http.Request) {
	var payload form.Payload
	if !h.decode(w, r, &payload) {
		return
	}

	receipt, err := h.store.SubmitPayload(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, receipt)
}

// HandleAddRow handles POST /api/form/rows
func (h *Handler) HandleAddRow(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusCreated, h.store.AddRow())
}

// HandleSelectTicker handles PUT /api/form/rows/{index}/ticker
func (h *Handler) HandleSelectTicker(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}
	var req struct {
		Ticker string `json:"ticker"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	snap, err := h.store.SelectTicker(index, req.Ticker)
	h.respond(w, snap, err)
}

// HandleSetWeights handles PUT /api/form/rows/{index}/weights
// Both bounds are replaced; a missing or null bound is unset
func (h *Handler) HandleSetWeights(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}
	var req struct {
		MinWeight *float64 `json:"minWeight"`
		MaxWeight *float64 `json:"maxWeight"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	snap, err := h.store.SetWeights(index, req.MinWeight, req.MaxWeight)
	h.respond(w, snap, err)
}

// HandleSetSector handles PUT /api/form/rows/{index}/sector
func (h *Handler) HandleSetSector(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}
	var req struct {
		Sector *string `json:"sector"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	var sector *securities.Sector
	if req.Sector != nil && strings.TrimSpace(*req.Sector) != "" {
		parsed, err := securities.ParseSector(*req.Sector)
		if err != nil {
			h.writeError(w, err)
			return
		}
		sector = &parsed
	}

	snap, err := h.store.SetSector(index, sector)
	h.respond(w, snap, err)
}

// HandleGetOptions handles GET /api/form/rows/{index}/options
func (h *Handler) HandleGetOptions(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}

	options, err := h.store.Options(index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"index":   index,
		"options": options,
	})
}

// HandleRequestDelete handles POST /api/form/rows/{index}/delete
// Nothing is removed until the returned token is confirmed
func (h *Handler) HandleRequestDelete(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}

	confirmation, err := h.store.RequestDelete(index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusAccepted, confirmation)
}

// HandleConfirmDelete handles POST /api/form/deletions/{token}/confirm
func (h *Handler) HandleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.ConfirmDelete(chi.URLParam(r, "token"))
	h.respond(w, snap, err)
}

// HandleCancelDelete handles DELETE /api/form/deletions/{token}
func (h *Handler) HandleCancelDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.CancelDelete(chi.URLParam(r, "token")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelectMethod handles PUT /api/form/method
func (h *Handler) HandleSelectMethod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"optimizationMethod"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	method, err := optimization.ParseMethod(req.Method)
	if err != nil {
		h.writeError(w, err)
		return
	}
	snap, err := h.store.SelectMethod(method)
	h.respond(w, snap, err)
}

// HandleSetParams handles PATCH /api/form/method/params
func (h *Handler) HandleSetParams(w http.ResponseWriter, r *http.Request) {
	var patch optimization.ParamsPatch
	if !h.decode(w, r, &patch) {
		return
	}

	snap, err := h.store.SetParams(patch)
	h.respond(w, snap, err)
}

// HandleSetSectorWeight handles PUT /api/form/method/sectors/{sector}
func (h *Handler) HandleSetSectorWeight(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "sector"))
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid sector")
		return
	}
	sector, err := securities.ParseSector(name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var bounds optimization.WeightBounds
	if !h.decode(w, r, &bounds) {
		return
	}

	snap, err := h.store.SetSectorWeight(sector, bounds)
	h.respond(w, snap, err)
}

// HandleSetBudgetWeight handles PUT /api/form/method/budget/{index}
func (h *Handler) HandleSetBudgetWeight(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}
	var req struct {
		Weight *float64 `json:"weight"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	snap, err := h.store.SetBudgetWeight(index, req.Weight)
	h.respond(w, snap, err)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		h.writeMessage(w, http.StatusBadRequest, "index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

// decode reads a JSON body. Unknown top-level fields are rejected for plain request structs.
// A submitted payload decodes through its own UnmarshalJSON, which drops keys it does not
// know, including fields of other optimization methods.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Invalid request body")
		if errors.Is(err, optimization.ErrInvalidMethod) {
			h.writeError(w, err)
			return false
		}
		h.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, snap form.Snapshot, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, snap)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, securities.ErrRowNotFound),
		errors.Is(err, securities.ErrConfirmationNotFound),
		errors.Is(err, optimization.ErrBudgetEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, securities.ErrTickerTaken):
		return http.StatusConflict
	case errors.Is(err, securities.ErrConfirmationExpired):
		return http.StatusGone
	case errors.Is(err, securities.ErrUnknownTicker),
		errors.Is(err, securities.ErrUnknownSector),
		errors.Is(err, optimization.ErrInvalidMethod),
		errors.Is(err, optimization.ErrFieldNotApplicable),
		errors.Is(err, optimization.ErrNotRiskParity):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": fieldErrs,
		})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Form request failed")
		h.writeMessage(w, status, "internal error")
		return
	}
	h.writeMessage(w, status, err.Error())
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
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
