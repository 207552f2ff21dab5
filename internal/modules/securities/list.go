package securities

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/portfolio-intake/internal/modules/catalog"
)

// DefaultConfirmTTL bounds how long a deletion confirmation stays valid
const DefaultConfirmTTL = 2 * time.Minute

// List is the ordered collection of security rows together with the ticker pool they draw
// from. It is not safe for concurrent use; the form store serializes access to it.
type List struct {
	rows    []SecurityRow
	catalog *catalog.Catalog
	unique  bool
	ttl     time.Duration
	pending map[string]Confirmation
	newID   func() string
}

// NewList creates an empty row list over cat. With unique set a ticker can be held by at
// most one row.
func NewList(cat *catalog.Catalog, unique bool, ttl time.Duration) *List {
	if cat == nil {
		cat = catalog.Empty()
	}
	if ttl <= 0 {
		ttl = DefaultConfirmTTL
	}
	return &List{
		catalog: cat,
		unique:  unique,
		ttl:     ttl,
		pending: make(map[string]Confirmation),
		newID:   func() string { return uuid.New().String() },
	}
}

// Len returns the number of rows
func (l *List) Len() int {
	return len(l.rows)
}

// Unique reports whether tickers are exclusive to one row
func (l *List) Unique() bool {
	return l.unique
}

// Catalog returns the ticker catalog rows select from
func (l *List) Catalog() *catalog.Catalog {
	return l.catalog
}

// Rows returns a deep copy of the rows in order
func (l *List) Rows() []SecurityRow {
	return CloneRows(l.rows)
}

// Row returns a copy of the row at index
func (l *List) Row(index int) (SecurityRow, error) {
	if err := l.checkIndex(index); err != nil {
		return SecurityRow{}, err
	}
	return l.rows[index].Clone(), nil
}

// AddRow appends an empty row and returns its index
func (l *List) AddRow() int {
	l.rows = append(l.rows, SecurityRow{ID: l.newID()})
	return len(l.rows) - 1
}

// Reset removes every row and pending confirmation
func (l *List) Reset() {
	l.rows = nil
	l.pending = make(map[string]Confirmation)
}

// RequestDelete opens the confirmation step for deleting the row at index. A row has at
// most one open confirmation; asking again replaces it.
func (l *List) RequestDelete(index int, now time.Time) (Confirmation, error) {
	if err := l.checkIndex(index); err != nil {
		return Confirmation{}, err
	}
	row := l.rows[index]
	l.dropConfirmations(row.ID)

	c := Confirmation{
		Token:     l.newID(),
		RowID:     row.ID,
		Ticker:    row.Ticker,
		ExpiresAt: now.Add(l.ttl),
	}
	l.pending[c.Token] = c
	return c, nil
}

// ConfirmDelete removes the row a confirmation was opened for, wherever it sits now.
// Later rows shift down by one and the row's ticker returns to the pool. The index the row
// had at removal time is returned.
func (l *List) ConfirmDelete(token string, now time.Time) (int, SecurityRow, error) {
	c, ok := l.pending[token]
	if !ok {
		return -1, SecurityRow{}, ErrConfirmationNotFound
	}
	delete(l.pending, token)
	if now.After(c.ExpiresAt) {
		return -1, SecurityRow{}, ErrConfirmationExpired
	}

	index := l.indexOf(c.RowID)
	if index < 0 {
		return -1, SecurityRow{}, ErrRowNotFound
	}
	removed := l.rows[index]
	l.rows = append(l.rows[:index:index], l.rows[index+1:]...)
	return index, removed, nil
}

// CancelDelete discards an open confirmation
func (l *List) CancelDelete(token string) error {
	if _, ok := l.pending[token]; !ok {
		return ErrConfirmationNotFound
	}
	delete(l.pending, token)
	return nil
}

// SweepExpired drops confirmations that expired before now and returns how many were dropped
func (l *List) SweepExpired(now time.Time) int {
	dropped := 0
	for token, c := range l.pending {
		if now.After(c.ExpiresAt) {
			delete(l.pending, token)
			dropped++
		}
	}
	return dropped
}

// Pending returns open confirmations ordered by expiry
func (l *List) Pending() []Confirmation {
	out := make([]Confirmation, 0, len(l.pending))
	for _, c := range l.pending {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].Token < out[j].Token
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

// SelectTicker sets the ticker of the row at index. The check and the update happen together:
// the ticker must exist in the catalog and, when tickers are unique, must not be held by
// another row. The row's previous ticker is released. An empty value clears the selection.
func (l *List) SelectTicker(index int, value string) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}

	value = normalizeTicker(value)
	if value == "" {
		l.rows[index].Ticker = ""
		return nil
	}
	if !l.catalog.Contains(value) {
		return fmt.Errorf("%w: %q", ErrUnknownTicker, value)
	}
	if l.unique {
		if holder := l.holder(value, index); holder >= 0 {
			return fmt.Errorf("%w: %q is selected in row %d", ErrTickerTaken, value, holder)
		}
	}

	l.rows[index].Ticker = value
	return nil
}

// SetWeights replaces both weight bounds of the row at index; nil unsets a bound
func (l *List) SetWeights(index int, minWeight, maxWeight *float64) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	l.rows[index].MinWeight = copyFloat(minWeight)
	l.rows[index].MaxWeight = copyFloat(maxWeight)
	return nil
}

// SetSector tags the row at index with a sector; nil removes the tag
func (l *List) SetSector(index int, sector *Sector) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	if sector != nil && !IsSector(string(*sector)) {
		return fmt.Errorf("%w: %q", ErrUnknownSector, *sector)
	}
	if sector == nil {
		l.rows[index].Sector = nil
		return nil
	}
	s := *sector
	l.rows[index].Sector = &s
	return nil
}

// Options lists the tickers the row at index may pick: the catalog minus tickers held by
// other rows. The row's own selection stays in the list and is marked selected.
func (l *List) Options(index int) ([]Option, error) {
	if err := l.checkIndex(index); err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(l.rows))
	if l.unique {
		for i, r := range l.rows {
			if i != index && r.Ticker != "" {
				taken[r.Ticker] = true
			}
		}
	}

	own := l.rows[index].Ticker
	tickers := l.catalog.Tickers()
	out := make([]Option, 0, len(tickers))
	for _, t := range tickers {
		if taken[t.Value] {
			continue
		}
		out = append(out, Option{Value: t.Value, Label: t.Label, Selected: t.Value == own})
	}
	return out, nil
}

// Consumed maps every selected ticker to the index of the first row holding it
func (l *List) Consumed() map[string]int {
	out := make(map[string]int, len(l.rows))
	for i, r := range l.rows {
		if r.Ticker == "" {
			continue
		}
		if _, ok := out[r.Ticker]; !ok {
			out[r.Ticker] = i
		}
	}
	return out
}

// ReplaceCatalog installs a new ticker catalog. Rows whose ticker is not part of it are
// cleared; their indexes are returned.
func (l *List) ReplaceCatalog(cat *catalog.Catalog) []int {
	if cat == nil {
		cat = catalog.Empty()
	}
	l.catalog = cat

	var cleared []int
	for i := range l.rows {
		if l.rows[i].Ticker != "" && !cat.Contains(l.rows[i].Ticker) {
			l.rows[i].Ticker = ""
			cleared = append(cleared, i)
		}
	}
	return cleared
}

func (l *List) checkIndex(index int) error {
	if index < 0 || index >= len(l.rows) {
		return fmt.Errorf("%w: index %d of %d", ErrRowNotFound, index, len(l.rows))
	}
	return nil
}

func (l *List) indexOf(id string) int {
	for i, r := range l.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) holder(value string, except int) int {
	for i, r := range l.rows {
		if i != except && r.Ticker == value {
			return i
		}
	}
	return -1
}

func (l *List) dropConfirmations(rowID string) {
	for token, c := range l.pending {
		if c.RowID == rowID {
			delete(l.pending, token)
		}
	}
}

func normalizeTicker(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
