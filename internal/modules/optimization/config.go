package optimization

import (
	"github.com/aristath/portfolio-intake/internal/modules/securities"
)

// Defaults of a fresh form
const (
	DefaultMaxRisk     = 0.5
	DefaultAlphaDecay  = 0.1
	DefaultMaxLeverage = 1.0
)

// Config is one variant of the optimization method union. The set of variants is closed.
type Config interface {
	Method() Method
	clone() Config
}

// WeightBounds limits the total weight of a sector
type WeightBounds struct {
	MinWeight *float64 `json:"minWeight,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxWeight *float64 `json:"maxWeight,omitempty" validate:"omitempty,gte=0,lte=1"`
}

func (b WeightBounds) clone() WeightBounds {
	return WeightBounds{MinWeight: copyFloat(b.MinWeight), MaxWeight: copyFloat(b.MaxWeight)}
}

// Common holds the optional fields shared by every method except risk_parity.
// Sector weights are checked entry by entry in Validate.
type Common struct {
	ShortSell     *bool                              `json:"shortSell,omitempty"`
	AlphaDecay    *float64                           `json:"alphaDecay,omitempty" validate:"omitempty,gt=0"`
	MaxLeverage   *float64                           `json:"maxLeverage,omitempty" validate:"omitempty,gt=0"`
	SectorWeights map[securities.Sector]WeightBounds `json:"sectorWeights,omitempty" validate:"-"`
}

func (c Common) clone() Common {
	out := Common{
		ShortSell:   copyBool(c.ShortSell),
		AlphaDecay:  copyFloat(c.AlphaDecay),
		MaxLeverage: copyFloat(c.MaxLeverage),
	}
	if c.SectorWeights != nil {
		out.SectorWeights = make(map[securities.Sector]WeightBounds, len(c.SectorWeights))
		for s, b := range c.SectorWeights {
			out.SectorWeights[s] = b.clone()
		}
	}
	return out
}

// MaximizeReturn maximizes expected return under a risk ceiling
type MaximizeReturn struct {
	Common
	MaxRisk *float64 `json:"maxRisk" validate:"required,gte=0,lte=1"`
}

func (c *MaximizeReturn) Method() Method { return MethodMaximizeReturn }

func (c *MaximizeReturn) clone() Config {
	return &MaximizeReturn{Common: c.Common.clone(), MaxRisk: copyFloat(c.MaxRisk)}
}

// MinimizeRisk minimizes risk under a return floor
type MinimizeRisk struct {
	Common
	MinReturn *float64 `json:"minReturn" validate:"required,gte=0,lte=1"`
}

func (c *MinimizeRisk) Method() Method { return MethodMinimizeRisk }

func (c *MinimizeRisk) clone() Config {
	return &MinimizeRisk{Common: c.Common.clone(), MinReturn: copyFloat(c.MinReturn)}
}

// MaximizeSharpeRatio has no method-specific fields
type MaximizeSharpeRatio struct {
	Common
}

func (c *MaximizeSharpeRatio) Method() Method { return MethodMaximizeSharpeRatio }

func (c *MaximizeSharpeRatio) clone() Config {
	return &MaximizeSharpeRatio{Common: c.Common.clone()}
}

// MaximizeDiversificationFactor has no method-specific fields
type MaximizeDiversificationFactor struct {
	Common
}

func (c *MaximizeDiversificationFactor) Method() Method { return MethodMaximizeDiversificationFactor }

func (c *MaximizeDiversificationFactor) clone() Config {
	return &MaximizeDiversificationFactor{Common: c.Common.clone()}
}

// BudgetEntry is the risk budget of one security row. RowID ties the entry to its row
// while the form is edited and is not serialized.
type BudgetEntry struct {
	RowID  string   `json:"-"`
	Stock  string   `json:"stock" validate:"required"`
	Weight *float64 `json:"weight" validate:"required,gte=0"`
}

// RiskParity allocates risk by budget. It accepts none of the Common fields except
// alphaDecay.
type RiskParity struct {
	Budget     []BudgetEntry `json:"budget" validate:"-"`
	AlphaDecay *float64      `json:"alphaDecay,omitempty" validate:"omitempty,gt=0"`
}

func (c *RiskParity) Method() Method { return MethodRiskParity }

func (c *RiskParity) clone() Config {
	out := &RiskParity{
		Budget:     make([]BudgetEntry, len(c.Budget)),
		AlphaDecay: copyFloat(c.AlphaDecay),
	}
	for i, e := range c.Budget {
		out.Budget[i] = BudgetEntry{RowID: e.RowID, Stock: e.Stock, Weight: copyFloat(e.Weight)}
	}
	return out
}

// Clone deep-copies a config. A nil config stays nil.
func Clone(c Config) Config {
	if c == nil {
		return nil
	}
	return c.clone()
}

// DefaultSectorWeights bounds every sector to [0, 1]
func DefaultSectorWeights() map[securities.Sector]WeightBounds {
	out := make(map[securities.Sector]WeightBounds, len(securities.Sectors))
	for _, s := range securities.Sectors {
		out[s] = WeightBounds{MinWeight: float(0), MaxWeight: float(1)}
	}
	return out
}

// DefaultCommon returns the common fields of a fresh form
func DefaultCommon() Common {
	return Common{
		ShortSell:     boolean(false),
		AlphaDecay:    float(DefaultAlphaDecay),
		MaxLeverage:   float(DefaultMaxLeverage),
		SectorWeights: DefaultSectorWeights(),
	}
}

// Default is the configuration of a fresh form
func Default() Config {
	return &MaximizeReturn{Common: DefaultCommon(), MaxRisk: float(DefaultMaxRisk)}
}

// New builds method m from defaults. minReturn has no default and starts unset.
func New(m Method) (Config, error) {
	switch m {
	case MethodMaximizeReturn:
		return Default(), nil
	case MethodMinimizeRisk:
		return &MinimizeRisk{Common: DefaultCommon()}, nil
	case MethodMaximizeSharpeRatio:
		return &MaximizeSharpeRatio{Common: DefaultCommon()}, nil
	case MethodMaximizeDiversificationFactor:
		return &MaximizeDiversificationFactor{Common: DefaultCommon()}, nil
	case MethodRiskParity:
		return &RiskParity{Budget: []BudgetEntry{}, AlphaDecay: float(DefaultAlphaDecay)}, nil
	}
	return nil, ErrInvalidMethod
}

// Switch moves from one method to another. The new variant starts from defaults and only
// fields it accepts are carried over: alphaDecay always, the other common fields when both
// methods have them. Method-specific fields of the previous variant are dropped.
func Switch(from Config, to Method) (Config, error) {
	next, err := New(to)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return next, nil
	}
	if from.Method() == to {
		return from.clone(), nil
	}

	if fc, nc := commonOf(from), commonOf(next); fc != nil && nc != nil {
		*nc = fc.clone()
		return next, nil
	}
	setAlphaDecay(next, copyFloat(alphaDecayOf(from)))
	return next, nil
}

// commonOf returns the embedded common fields, or nil for risk_parity
func commonOf(c Config) *Common {
	switch v := c.(type) {
	case *MaximizeReturn:
		return &v.Common
	case *MinimizeRisk:
		return &v.Common
	case *MaximizeSharpeRatio:
		return &v.Common
	case *MaximizeDiversificationFactor:
		return &v.Common
	}
	return nil
}

func alphaDecayOf(c Config) *float64 {
	if rp, ok := c.(*RiskParity); ok {
		return rp.AlphaDecay
	}
	if common := commonOf(c); common != nil {
		return common.AlphaDecay
	}
	return nil
}

func setAlphaDecay(c Config, v *float64) {
	if rp, ok := c.(*RiskParity); ok {
		rp.AlphaDecay = v
		return
	}
	if common := commonOf(c); common != nil {
		common.AlphaDecay = v
	}
}

func float(v float64) *float64 {
	return &v
}

func boolean(v bool) *bool {
	return &v
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
