package optimization

import (
	"fmt"

	"github.com/aristath/portfolio-intake/internal/modules/securities"
)

// Field names accepted by ParamsPatch.Unset
const (
	FieldMaxRisk     = "maxRisk"
	FieldMinReturn   = "minReturn"
	FieldAlphaDecay  = "alphaDecay"
	FieldMaxLeverage = "maxLeverage"
	FieldShortSell   = "shortSell"
)

// ParamsPatch edits scalar parameters of the active method. Nil fields are left alone and
// fields named in Unset are cleared.
type ParamsPatch struct {
	MaxRisk     *float64 `json:"maxRisk,omitempty"`
	MinReturn   *float64 `json:"minReturn,omitempty"`
	AlphaDecay  *float64 `json:"alphaDecay,omitempty"`
	MaxLeverage *float64 `json:"maxLeverage,omitempty"`
	ShortSell   *bool    `json:"shortSell,omitempty"`
	Unset       []string `json:"unset,omitempty"`
}

func (p ParamsPatch) touched() []string {
	var fields []string
	if p.MaxRisk != nil {
		fields = append(fields, FieldMaxRisk)
	}
	if p.MinReturn != nil {
		fields = append(fields, FieldMinReturn)
	}
	if p.AlphaDecay != nil {
		fields = append(fields, FieldAlphaDecay)
	}
	if p.MaxLeverage != nil {
		fields = append(fields, FieldMaxLeverage)
	}
	if p.ShortSell != nil {
		fields = append(fields, FieldShortSell)
	}
	return append(fields, p.Unset...)
}

// Accepts reports whether method m has the named scalar field
func (m Method) Accepts(field string) bool {
	switch field {
	case FieldAlphaDecay:
		return m.Valid()
	case FieldMaxLeverage, FieldShortSell:
		return m.HasCommon()
	case FieldMaxRisk:
		return m == MethodMaximizeReturn
	case FieldMinReturn:
		return m == MethodMinimizeRisk
	}
	return false
}

// Editor holds the optimization method being edited. It starts at maximize_return with
// defaults. It is not safe for concurrent use.
type Editor struct {
	cfg Config
}

// NewEditor creates an editor holding the default configuration
func NewEditor() *Editor {
	return &Editor{cfg: Default()}
}

// Config returns a deep copy of the current configuration
func (e *Editor) Config() Config {
	return e.cfg.clone()
}

// Method returns the active method
func (e *Editor) Method() Method {
	return e.cfg.Method()
}

// Reset restores the default configuration
func (e *Editor) Reset() {
	e.cfg = Default()
}

// Load replaces the configuration wholesale
func (e *Editor) Load(cfg Config) {
	if cfg == nil {
		e.Reset()
		return
	}
	e.cfg = cfg.clone()
}

// SelectMethod switches the active method. Selecting the active method is a no-op.
func (e *Editor) SelectMethod(m Method) error {
	next, err := Switch(e.cfg, m)
	if err != nil {
		return err
	}
	e.cfg = next
	return nil
}

// SetParams applies a patch. Nothing changes unless every touched field belongs to the
// active method.
func (e *Editor) SetParams(p ParamsPatch) error {
	m := e.cfg.Method()
	for _, field := range p.touched() {
		if !m.Accepts(field) {
			return fmt.Errorf("%w: %s is not a %s parameter", ErrFieldNotApplicable, field, m)
		}
	}

	if p.AlphaDecay != nil {
		setAlphaDecay(e.cfg, copyFloat(p.AlphaDecay))
	}
	if common := commonOf(e.cfg); common != nil {
		if p.MaxLeverage != nil {
			common.MaxLeverage = copyFloat(p.MaxLeverage)
		}
		if p.ShortSell != nil {
			common.ShortSell = copyBool(p.ShortSell)
		}
	}
	switch v := e.cfg.(type) {
	case *MaximizeReturn:
		if p.MaxRisk != nil {
			v.MaxRisk = copyFloat(p.MaxRisk)
		}
	case *MinimizeRisk:
		if p.MinReturn != nil {
			v.MinReturn = copyFloat(p.MinReturn)
		}
	}

	for _, field := range p.Unset {
		e.unset(field)
	}
	return nil
}

func (e *Editor) unset(field string) {
	switch field {
	case FieldAlphaDecay:
		setAlphaDecay(e.cfg, nil)
	case FieldMaxLeverage:
		commonOf(e.cfg).MaxLeverage = nil
	case FieldShortSell:
		commonOf(e.cfg).ShortSell = nil
	case FieldMaxRisk:
		e.cfg.(*MaximizeReturn).MaxRisk = nil
	case FieldMinReturn:
		e.cfg.(*MinimizeRisk).MinReturn = nil
	}
}

// SetSectorWeight replaces the bounds of one sector
func (e *Editor) SetSectorWeight(sector securities.Sector, bounds WeightBounds) error {
	common := commonOf(e.cfg)
	if common == nil {
		return fmt.Errorf("%w: sectorWeights is not a %s parameter", ErrFieldNotApplicable, e.cfg.Method())
	}
	if !securities.IsSector(string(sector)) {
		return fmt.Errorf("%w: %q", securities.ErrUnknownSector, sector)
	}
	if common.SectorWeights == nil {
		common.SectorWeights = make(map[securities.Sector]WeightBounds)
	}
	common.SectorWeights[sector] = bounds.clone()
	return nil
}

// SetBudgetWeight sets the weight of the budget entry at index; nil clears it
func (e *Editor) SetBudgetWeight(index int, weight *float64) error {
	rp, ok := e.cfg.(*RiskParity)
	if !ok {
		return ErrNotRiskParity
	}
	if index < 0 || index >= len(rp.Budget) {
		return fmt.Errorf("%w: index %d of %d", ErrBudgetEntryNotFound, index, len(rp.Budget))
	}
	rp.Budget[index].Weight = copyFloat(weight)
	return nil
}

// SyncBudget rebuilds the risk_parity budget from the security rows: one entry per row in
// row order. Weights follow their row by ID, so reordering or deleting rows keeps them.
// Other methods are left untouched.
func (e *Editor) SyncBudget(rows []securities.SecurityRow) {
	rp, ok := e.cfg.(*RiskParity)
	if !ok {
		return
	}
	rp.Budget = SyncBudget(rp.Budget, rows)
}

// SyncBudget returns a budget with one entry per row, reusing the weights of entries whose
// RowID matches a row
func SyncBudget(budget []BudgetEntry, rows []securities.SecurityRow) []BudgetEntry {
	weights := make(map[string]*float64, len(budget))
	for _, entry := range budget {
		if entry.RowID != "" {
			weights[entry.RowID] = entry.Weight
		}
	}

	out := make([]BudgetEntry, len(rows))
	for i, row := range rows {
		out[i] = BudgetEntry{
			RowID:  row.ID,
			Stock:  row.Ticker,
			Weight: copyFloat(weights[row.ID]),
		}
	}
	return out
}
