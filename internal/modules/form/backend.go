package form

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-intake/internal/modules/catalog"
	"github.com/aristath/portfolio-intake/internal/modules/optimization"
)

// Submission is everything handed to the backend: the validated payload and the price
// history it was built against, if one was uploaded
type Submission struct {
	Payload Payload
	Upload  *catalog.Upload
}

// Receipt acknowledges an accepted submission
type Receipt struct {
	ID          string              `json:"id"`
	Method      optimization.Method `json:"method"`
	Stocks      int                 `json:"stocks"`
	SubmittedAt time.Time           `json:"submitted_at"`
}

// Backend receives validated optimization requests
type Backend interface {
	Submit(ctx context.Context, sub Submission) (*Receipt, error)
}

// LogBackend writes submissions to the log instead of forwarding them
type LogBackend struct {
	log zerolog.Logger
}

// NewLogBackend creates the default backend
func NewLogBackend(log zerolog.Logger) *LogBackend {
	return &LogBackend{
		log: log.With().Str("component", "log_backend").Logger(),
	}
}

// Submit logs the payload, the per-ticker view and the size of the uploaded dataset
func (b *LogBackend) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payloadJSON, err := json.Marshal(sub.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	viewJSON, err := json.Marshal(sub.Payload.TickerView())
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticker view: %w", err)
	}

	receipt := &Receipt{
		ID:          uuid.New().String(),
		Stocks:      len(sub.Payload.Stocks),
		SubmittedAt: time.Now(),
	}
	if sub.Payload.OptimizationMethod != nil {
		receipt.Method = sub.Payload.OptimizationMethod.Method()
	}

	event := b.log.Info().
		Str("receipt_id", receipt.ID).
		Str("method", string(receipt.Method)).
		RawJSON("payload", payloadJSON).
		RawJSON("stocks_by_ticker", viewJSON)
	if sub.Upload != nil && sub.Upload.Dataset != nil {
		event = event.
			Str("dataset_file", sub.Upload.FileName).
			Int("dataset_rows", len(sub.Upload.Dataset.Records))
	}
	event.Msg("Optimization request received")

	return receipt, nil
}
