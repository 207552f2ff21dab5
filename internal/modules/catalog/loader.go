package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-intake/internal/events"
	"github.com/aristath/portfolio-intake/internal/utils"
)

const moduleName = "catalog"

// slowParse is how long parsing may take before it is logged as slow
const slowParse = 5 * time.Second

// ParseFunc parses raw upload bytes into a dataset
type ParseFunc func(ctx context.Context, r io.Reader) (*Dataset, error)

// ApplyFunc installs a completed upload. It runs while the loader holds its slot, so at most
// one upload is applied at a time and never a superseded one.
type ApplyFunc func(upload *Upload) error

// Task is a single in-flight parse of an uploaded file
type Task struct {
	ID       string
	FileName string

	data   []byte
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	upload *Upload
	err    error
}

// Done is closed once the task has finished, successfully or not
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is cancelled
func (t *Task) Wait(ctx context.Context) (*Upload, error) {
	select {
	case <-t.done:
		return t.upload, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loader runs uploads in a single slot: starting a new upload cancels the pending one, and a
// completion is applied only if its task is still the current one.
type Loader struct {
	mu       sync.Mutex
	current  *Task
	maxBytes int64
	parse    ParseFunc
	apply    ApplyFunc
	events   *events.Manager
	log      zerolog.Logger
}

// NewLoader creates a loader that hands successful uploads to apply
func NewLoader(maxBytes int64, apply ApplyFunc, eventManager *events.Manager, log zerolog.Logger) *Loader {
	return &Loader{
		maxBytes: maxBytes,
		parse:    ParseCSV,
		apply:    apply,
		events:   eventManager,
		log:      log.With().Str("component", "catalog_loader").Logger(),
	}
}

// SetParser replaces the parse function
func (l *Loader) SetParser(parse ParseFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.parse = parse
}

// Upload checks the file shape and starts parsing. Shape violations are reported
// immediately and leave the current state untouched.
func (l *Loader) Upload(ctx context.Context, files []File) (*Task, error) {
	if err := CheckUpload(files, l.maxBytes); err != nil {
		var rejection *RejectionError
		if errors.As(err, &rejection) {
			name := ""
			if len(files) > 0 {
				name = files[0].Name
			}
			l.reportRejection("", name, rejection)
		}
		return nil, err
	}
	return l.Start(ctx, files[0]), nil
}

// Start begins parsing file, superseding any pending upload
func (l *Loader) Start(ctx context.Context, file File) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		ID:       uuid.New().String(),
		FileName: file.Name,
		data:     file.Data,
		ctx:      taskCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	l.mu.Lock()
	if l.current != nil {
		l.log.Debug().
			Str("superseded", l.current.ID).
			Str("upload_id", task.ID).
			Msg("Superseding pending upload")
		l.current.cancel()
	}
	l.current = task
	parse := l.parse
	l.mu.Unlock()

	go l.run(task, parse)
	return task
}

// Pending reports whether an upload is still being parsed
func (l *Loader) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current != nil
}

func (l *Loader) run(task *Task, parse ParseFunc) {
	defer close(task.done)
	defer task.cancel()

	stopTimer := utils.OperationTimer("parse_csv", slowParse, l.log)
	dataset, err := parse(task.ctx, bytes.NewReader(task.data))
	elapsed := stopTimer()

	l.mu.Lock()
	if l.current != task {
		l.mu.Unlock()
		task.err = ErrStaleUpload
		l.log.Info().
			Str("upload_id", task.ID).
			Str("file", task.FileName).
			Msg("Discarding superseded upload")
		return
	}
	l.current = nil

	if err != nil {
		l.mu.Unlock()
		task.err = err
		var rejection *RejectionError
		if errors.As(err, &rejection) {
			l.reportRejection(task.ID, task.FileName, rejection)
		} else {
			l.log.Error().Err(err).Str("upload_id", task.ID).Msg("Upload parsing failed")
		}
		return
	}

	upload := &Upload{
		ID:       task.ID,
		FileName: task.FileName,
		Dataset:  dataset,
		Summary:  Summarize(dataset),
		LoadedAt: time.Now(),
	}
	if l.apply != nil {
		err = l.apply(upload)
	}
	l.mu.Unlock()

	if err != nil {
		task.err = err
		l.log.Error().Err(err).Str("upload_id", task.ID).Msg("Failed to install catalog")
		return
	}
	task.upload = upload

	l.log.Info().
		Str("upload_id", task.ID).
		Str("file", task.FileName).
		Int("tickers", len(dataset.Tickers)).
		Int("rows", len(dataset.Records)).
		Dur("duration_ms", elapsed).
		Msg("Catalog loaded")

	if l.events != nil {
		values := make([]string, len(dataset.Tickers))
		for i, t := range dataset.Tickers {
			values[i] = t.Value
		}
		l.events.Emit(moduleName, &events.CatalogLoadedData{
			UploadID: task.ID,
			FileName: task.FileName,
			Tickers:  values,
			Rows:     len(dataset.Records),
		})
		l.events.Notify(moduleName, events.LevelSuccess, MsgReady)
	}
}

func (l *Loader) reportRejection(uploadID, fileName string, rejection *RejectionError) {
	l.log.Warn().
		Str("upload_id", uploadID).
		Str("file", fileName).
		Strs("reasons", rejection.Messages()).
		AnErr("cause", rejection.Cause).
		Msg("Upload rejected")

	if l.events == nil {
		return
	}
	for _, msg := range rejection.Messages() {
		l.events.Notify(moduleName, events.LevelError, msg)
	}
	l.events.Emit(moduleName, &events.UploadRejectedData{
		UploadID: uploadID,
		FileName: fileName,
		Reasons:  rejection.Messages(),
	})
}
