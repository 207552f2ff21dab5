package form

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-intake/internal/events"
	"github.com/aristath/portfolio-intake/internal/modules/catalog"
	"github.com/aristath/portfolio-intake/internal/modules/optimization"
	"github.com/aristath/portfolio-intake/internal/modules/securities"
	"github.com/aristath/portfolio-intake/internal/utils"
	"github.com/aristath/portfolio-intake/internal/validation"
)

const moduleName = "form"

// slowSubmit is how long a backend hand-off may take before it is logged as slow
const slowSubmit = 2 * time.Second

// Mutation actions reported in FORM_CHANGED events
const (
	ActionAddRow          = "add_row"
	ActionDeleteRow       = "delete_row"
	ActionSelectTicker    = "select_ticker"
	ActionSetWeights      = "set_weights"
	ActionSetSector       = "set_sector"
	ActionSelectMethod    = "select_method"
	ActionSetParams       = "set_params"
	ActionSetSectorWeight = "set_sector_weight"
	ActionSetBudgetWeight = "set_budget_weight"
	ActionInstallCatalog  = "install_catalog"
	ActionReset           = "reset"
	ActionSubmit          = "submit"
)

// Options configure a Store
type Options struct {
	Rules      Rules
	ConfirmTTL time.Duration
	Catalog    *catalog.Catalog
}

// CatalogView is the ticker universe as seen by the form
type CatalogView struct {
	Source   string           `json:"source"`
	Tickers  []catalog.Ticker `json:"tickers"`
	Consumed map[string]int   `json:"consumed"`
	Upload   *UploadInfo      `json:"upload,omitempty"`
}

// UploadInfo describes the price history the catalog came from
type UploadInfo struct {
	ID       string                  `json:"id"`
	FileName string                  `json:"file_name"`
	Rows     int                     `json:"rows"`
	LoadedAt time.Time               `json:"loaded_at"`
	Summary  []catalog.TickerSummary `json:"summary"`
}

// Snapshot is a consistent copy of the form state
type Snapshot struct {
	Revision         int64                     `json:"revision"`
	Payload          Payload                   `json:"payload"`
	Errors           validation.Errors         `json:"errors"`
	Valid            bool                      `json:"valid"`
	Catalog          CatalogView               `json:"catalog"`
	PendingDeletions []securities.Confirmation `json:"pending_deletions"`
	Rules            Rules                     `json:"rules"`
}

// Store is the single source of truth for the form. Every mutation runs under one lock,
// after which the risk_parity budget is realigned with the rows, the whole payload is
// re-validated and a FORM_CHANGED event is published. Subscribers are called while the lock
// is held and must not call back into the store.
type Store struct {
	mu       sync.Mutex
	rows     *securities.List
	editor   *optimization.Editor
	rules    Rules
	upload   *catalog.Upload
	revision int64
	errors   validation.Errors
	backend  Backend
	events   *events.Manager
	log      zerolog.Logger
	now      func() time.Time
}

// NewStore creates a store holding a fresh form: one empty row and the default method
func NewStore(opts Options, backend Backend, eventManager *events.Manager, log zerolog.Logger) *Store {
	s := &Store{
		rows:    securities.NewList(opts.Catalog, opts.Rules.UniqueTickers, opts.ConfirmTTL),
		editor:  optimization.NewEditor(),
		rules:   opts.Rules,
		backend: backend,
		events:  eventManager,
		log:     log.With().Str("service", "form_store").Logger(),
		now:     time.Now,
	}
	s.rows.AddRow()
	s.errors = s.validateLocked(false)
	return s
}

// Rules returns the form-level constraints
func (s *Store) Rules() Rules {
	return s.rules
}

// Snapshot returns the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Payload returns a deep copy of the current payload
func (s *Store) Payload() Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloadLocked()
}

// CatalogView returns the ticker universe with its consumed tickers
func (s *Store) CatalogView() CatalogView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogViewLocked()
}

// Upload returns the price history currently backing the catalog, if any
func (s *Store) Upload() *catalog.Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload
}

// AddRow appends an empty security row
func (s *Store) AddRow() Snapshot {
	snap, _ := s.mutate(ActionAddRow, func() error {
		s.rows.AddRow()
		return nil
	})
	return snap
}

// RequestDelete opens the confirmation step for deleting the row at index
func (s *Store) RequestDelete(index int) (securities.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.rows.RequestDelete(index, s.now())
	if err != nil {
		return securities.Confirmation{}, err
	}
	s.log.Debug().Int("index", index).Str("token", c.Token).Msg("Row deletion requested")
	s.emit(&events.RowDeleteRequestedData{
		Token:     c.Token,
		RowID:     c.RowID,
		Index:     index,
		Ticker:    c.Ticker,
		ExpiresAt: c.ExpiresAt.Format(time.RFC3339),
	})
	return c, nil
}

// ConfirmDelete removes the row a confirmation was opened for and releases its ticker
func (s *Store) ConfirmDelete(token string) (Snapshot, error) {
	return s.mutate(ActionDeleteRow, func() error {
		index, row, err := s.rows.ConfirmDelete(token, s.now())
		if err != nil {
			return err
		}
		s.log.Debug().Int("index", index).Str("ticker", row.Ticker).Msg("Row deleted")
		return nil
	})
}

// CancelDelete discards an open confirmation
func (s *Store) CancelDelete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.CancelDelete(token)
}

// SweepConfirmations drops expired deletion confirmations
func (s *Store) SweepConfirmations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.SweepExpired(s.now())
}

// SelectTicker sets the ticker of the row at index
func (s *Store) SelectTicker(index int, value string) (Snapshot, error) {
	return s.mutate(ActionSelectTicker, func() error {
		return s.rows.SelectTicker(index, value)
	})
}

// SetWeights replaces the weight bounds of the row at index
func (s *Store) SetWeights(index int, minWeight, maxWeight *float64) (Snapshot, error) {
	return s.mutate(ActionSetWeights, func() error {
		return s.rows.SetWeights(index, minWeight, maxWeight)
	})
}

// SetSector tags the row at index with a sector, or clears the tag
func (s *Store) SetSector(index int, sector *securities.Sector) (Snapshot, error) {
	return s.mutate(ActionSetSector, func() error {
		return s.rows.SetSector(index, sector)
	})
}

// Options lists the tickers the row at index may pick
func (s *Store) Options(index int) ([]securities.Option, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.Options(index)
}

// SelectMethod switches the optimization method
func (s *Store) SelectMethod(m optimization.Method) (Snapshot, error) {
	return s.mutate(ActionSelectMethod, func() error {
		return s.editor.SelectMethod(m)
	})
}

// SetParams edits scalar parameters of the active method
func (s *Store) SetParams(patch optimization.ParamsPatch) (Snapshot, error) {
	return s.mutate(ActionSetParams, func() error {
		return s.editor.SetParams(patch)
	})
}

// SetSectorWeight replaces the bounds of one sector
func (s *Store) SetSectorWeight(sector securities.Sector, bounds optimization.WeightBounds) (Snapshot, error) {
	return s.mutate(ActionSetSectorWeight, func() error {
		return s.editor.SetSectorWeight(sector, bounds)
	})
}

// SetBudgetWeight sets the risk_parity weight of the row at index
func (s *Store) SetBudgetWeight(index int, weight *float64) (Snapshot, error) {
	return s.mutate(ActionSetBudgetWeight, func() error {
		return s.editor.SetBudgetWeight(index, weight)
	})
}

// InstallUpload makes a parsed upload the ticker catalog. It is the loader's apply step.
func (s *Store) InstallUpload(upload *catalog.Upload) error {
	if upload == nil || upload.Dataset == nil {
		return fmt.Errorf("upload has no dataset")
	}
	cat := catalog.NewCatalog(upload.FileName, upload.Dataset.Tickers)
	_, err := s.mutate(ActionInstallCatalog, func() error {
		s.upload = upload
		s.installLocked(cat)
		return nil
	})
	return err
}

// InstallCatalog replaces the ticker catalog without an upload behind it
func (s *Store) InstallCatalog(cat *catalog.Catalog) Snapshot {
	snap, _ := s.mutate(ActionInstallCatalog, func() error {
		s.upload = nil
		s.installLocked(cat)
		return nil
	})
	return snap
}

func (s *Store) installLocked(cat *catalog.Catalog) {
	cleared := s.rows.ReplaceCatalog(cat)
	if len(cleared) > 0 {
		s.log.Info().Ints("rows", cleared).Msg("Cleared tickers missing from the new catalog")
	}
}

// Reset restores a fresh form. The catalog is kept.
func (s *Store) Reset() Snapshot {
	snap, _ := s.mutate(ActionReset, func() error {
		s.resetLocked()
		return nil
	})
	return snap
}

func (s *Store) resetLocked() {
	s.rows.Reset()
	s.rows.AddRow()
	s.editor.Reset()
}

// Submit validates the form, including the minimum portfolio size, and hands a copy of the
// payload to the backend. Validation failures are returned as validation.Errors and leave
// the form and its published snapshot untouched. An accepted form is reset.
func (s *Store) Submit(ctx context.Context) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := s.payloadLocked()
	errs := Validate(payload, s.rules, true)
	if len(errs) > 0 {
		s.rejected(errs)
		return nil, errs
	}

	receipt, err := s.submitLocked(ctx, payload)
	if err != nil {
		return nil, err
	}

	s.resetLocked()
	s.changedLocked(ActionSubmit)
	return receipt, nil
}

// SubmitPayload validates and forwards a complete payload without touching the form
func (s *Store) SubmitPayload(ctx context.Context, payload Payload) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload = payload.Clone()
	errs := Validate(payload, s.rules, true)
	if len(errs) > 0 {
		s.rejected(errs)
		return nil, errs
	}
	return s.submitLocked(ctx, payload)
}

func (s *Store) submitLocked(ctx context.Context, payload Payload) (*Receipt, error) {
	done := utils.OperationTimer("backend_submit", slowSubmit, s.log)
	receipt, err := s.backend.Submit(ctx, Submission{Payload: payload, Upload: s.upload})
	done()
	if err != nil {
		s.log.Error().Err(err).Msg("Backend rejected submission")
		if s.events != nil {
			s.events.EmitError(moduleName, err, map[string]interface{}{"operation": "submit"})
		}
		return nil, fmt.Errorf("failed to submit optimization request: %w", err)
	}

	s.log.Info().
		Str("receipt_id", receipt.ID).
		Str("method", string(receipt.Method)).
		Int("stocks", receipt.Stocks).
		Msg("Submission accepted")
	s.emit(&events.SubmissionAcceptedData{
		ReceiptID: receipt.ID,
		Method:    string(receipt.Method),
		Stocks:    receipt.Stocks,
	})
	if s.events != nil {
		s.events.Notify(moduleName, events.LevelSuccess, MsgSubmitted)
	}
	return receipt, nil
}

func (s *Store) rejected(errs validation.Errors) {
	s.log.Info().Int("errors", len(errs)).Msg("Submission rejected by validation")
	issues := make([]events.FieldIssue, len(errs))
	for i, fe := range errs {
		issues[i] = events.FieldIssue{Path: fe.Path, Message: fe.Message}
	}
	s.emit(&events.SubmissionRejectedData{Errors: issues})
}

// mutate applies fn under the lock and publishes the new state. A failing fn leaves the
// form unchanged and publishes nothing.
func (s *Store) mutate(action string, fn func() error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(); err != nil {
		return Snapshot{}, err
	}
	return s.changedLocked(action), nil
}

func (s *Store) changedLocked(action string) Snapshot {
	s.editor.SyncBudget(s.rows.Rows())
	s.revision++
	s.errors = s.validateLocked(false)

	snap := s.snapshotLocked()
	s.emit(&events.FormChangedData{
		Revision: snap.Revision,
		Action:   action,
		Snapshot: snap,
	})
	return snap
}

func (s *Store) validateLocked(submitting bool) validation.Errors {
	s.editor.SyncBudget(s.rows.Rows())
	return Validate(s.payloadLocked(), s.rules, submitting)
}

func (s *Store) payloadLocked() Payload {
	return Payload{
		Stocks:             s.rows.Rows(),
		OptimizationMethod: s.editor.Config(),
	}
}

func (s *Store) snapshotLocked() Snapshot {
	errs := s.errors
	if errs == nil {
		errs = validation.Errors{}
	}
	return Snapshot{
		Revision:         s.revision,
		Payload:          s.payloadLocked(),
		Errors:           append(validation.Errors{}, errs...),
		Valid:            len(errs) == 0,
		Catalog:          s.catalogViewLocked(),
		PendingDeletions: s.rows.Pending(),
		Rules:            s.rules,
	}
}

func (s *Store) catalogViewLocked() CatalogView {
	cat := s.rows.Catalog()
	view := CatalogView{
		Source:   cat.Source(),
		Tickers:  cat.Tickers(),
		Consumed: s.rows.Consumed(),
	}
	if s.upload != nil && s.upload.Dataset != nil {
		view.Upload = &UploadInfo{
			ID:       s.upload.ID,
			FileName: s.upload.FileName,
			Rows:     len(s.upload.Dataset.Records),
			LoadedAt: s.upload.LoadedAt,
			Summary:  s.upload.Summary,
		}
	}
	return view
}

func (s *Store) emit(data events.EventData) {
	if s.events == nil {
		return
	}
	s.events.Emit(moduleName, data)
}
