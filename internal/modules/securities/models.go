// Package securities manages the ordered list of security rows of a portfolio request.
package securities

import (
	"errors"
	"time"
)

var (
	ErrRowNotFound          = errors.New("security row not found")
	ErrTickerTaken          = errors.New("ticker already selected in another row")
	ErrUnknownTicker        = errors.New("ticker is not in the catalog")
	ErrUnknownSector        = errors.New("unknown sector")
	ErrConfirmationNotFound = errors.New("deletion confirmation not found")
	ErrConfirmationExpired  = errors.New("deletion confirmation expired")
)

// SecurityRow is one candidate security of the portfolio.
// ID is a stable identity used to follow a row across index shifts; it is not part of the
// payload handed to the optimizer.
type SecurityRow struct {
	ID        string   `json:"-"`
	Ticker    string   `json:"ticker" validate:"required"`
	MinWeight *float64 `json:"minWeight,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxWeight *float64 `json:"maxWeight,omitempty" validate:"omitempty,gte=0,lte=1"`
	Sector    *Sector  `json:"sector,omitempty" validate:"omitempty,sector"`
}

// Clone returns a deep copy of the row
func (r SecurityRow) Clone() SecurityRow {
	out := r
	if r.MinWeight != nil {
		v := *r.MinWeight
		out.MinWeight = &v
	}
	if r.MaxWeight != nil {
		v := *r.MaxWeight
		out.MaxWeight = &v
	}
	if r.Sector != nil {
		s := *r.Sector
		out.Sector = &s
	}
	return out
}

// CloneRows deep-copies a row slice
func CloneRows(rows []SecurityRow) []SecurityRow {
	out := make([]SecurityRow, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Confirmation is the first step of a two-step row deletion
type Confirmation struct {
	Token     string    `json:"token"`
	RowID     string    `json:"row_id"`
	Ticker    string    `json:"ticker,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Option is a ticker a row picker may offer
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}
