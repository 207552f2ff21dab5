// Package form assembles security rows and the optimization method into the request payload
// and owns the single editable copy of it.
package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aristath/portfolio-intake/internal/modules/optimization"
	"github.com/aristath/portfolio-intake/internal/modules/securities"
	"github.com/aristath/portfolio-intake/internal/validation"
)

// Payload is the request handed to the optimization backend
type Payload struct {
	Stocks             []securities.SecurityRow `json:"stocks"`
	OptimizationMethod optimization.Config      `json:"optimizationMethod"`
}

// MarshalJSON writes an empty stock list as [] rather than null
func (p Payload) MarshalJSON() ([]byte, error) {
	type alias Payload
	out := alias(p)
	if out.Stocks == nil {
		out.Stocks = []securities.SecurityRow{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the optimization method through its tag
func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Stocks             []securities.SecurityRow `json:"stocks"`
		OptimizationMethod json.RawMessage          `json:"optimizationMethod"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Stocks = raw.Stocks
	p.OptimizationMethod = nil
	if len(raw.OptimizationMethod) == 0 || bytes.Equal(raw.OptimizationMethod, []byte("null")) {
		return nil
	}
	cfg, err := optimization.DecodeConfig(raw.OptimizationMethod)
	if err != nil {
		return err
	}
	p.OptimizationMethod = cfg
	return nil
}

// Clone deep-copies the payload
func (p Payload) Clone() Payload {
	return Payload{
		Stocks:             securities.CloneRows(p.Stocks),
		OptimizationMethod: optimization.Clone(p.OptimizationMethod),
	}
}

// StockView is the per-ticker summary logged next to the payload
type StockView struct {
	MinWeight *float64           `json:"minWeight,omitempty"`
	MaxWeight *float64           `json:"maxWeight,omitempty"`
	Sector    *securities.Sector `json:"sector,omitempty"`
}

// TickerView keys the stocks by ticker. A repeated ticker keeps its last row.
func (p Payload) TickerView() map[string]StockView {
	out := make(map[string]StockView, len(p.Stocks))
	for _, s := range p.Stocks {
		out[s.Ticker] = StockView{MinWeight: s.MinWeight, MaxWeight: s.MaxWeight, Sector: s.Sector}
	}
	return out
}

// DistinctTickers counts the chosen tickers, ignoring case and empty rows
func (p Payload) DistinctTickers() int {
	seen := make(map[string]struct{}, len(p.Stocks))
	for _, s := range p.Stocks {
		if s.Ticker == "" {
			continue
		}
		seen[strings.ToLower(s.Ticker)] = struct{}{}
	}
	return len(seen)
}

// Rules are the configurable form-level constraints
type Rules struct {
	MinPortfolioSize        int  `json:"min_portfolio_size"`
	EnforceMinPortfolioSize bool `json:"enforce_min_portfolio_size"`
	UniqueTickers           bool `json:"unique_tickers"`
}

// DefaultRules require three distinct securities before submission
func DefaultRules() Rules {
	return Rules{
		MinPortfolioSize:        3,
		EnforceMinPortfolioSize: true,
		UniqueTickers:           true,
	}
}

// Form-level messages
const (
	MsgBudgetMismatch = "Budget must have one entry per security"
	MsgBudgetStock    = "Stock must match the security in the same row"
	MsgSubmitted      = "Optimization request submitted"
)

// MinPortfolioMessage tells the user how many securities are needed
func MinPortfolioMessage(n int) string {
	return fmt.Sprintf("At least %d securities are required", n)
}

// Validate checks the whole payload and aggregates every violation. The minimum portfolio
// size only applies when submitting.
func Validate(p Payload, rules Rules, submitting bool) validation.Errors {
	var errs validation.Errors

	if submitting && rules.EnforceMinPortfolioSize && p.DistinctTickers() < rules.MinPortfolioSize {
		errs.Add("stocks", MinPortfolioMessage(rules.MinPortfolioSize))
	}
	errs.Append(securities.ValidateRows(p.Stocks, rules.UniqueTickers))
	errs.Append(optimization.Validate(p.OptimizationMethod))

	if rp, ok := p.OptimizationMethod.(*optimization.RiskParity); ok {
		errs.Append(validateBudgetAlignment(rp.Budget, p.Stocks))
	}
	return errs
}

func validateBudgetAlignment(budget []optimization.BudgetEntry, stocks []securities.SecurityRow) validation.Errors {
	var errs validation.Errors
	if len(budget) != len(stocks) {
		errs.Add(validation.Path(optimization.PathPrefix, "budget"), MsgBudgetMismatch)
		return errs
	}
	for i, entry := range budget {
		if entry.Stock == "" || stocks[i].Ticker == "" {
			continue
		}
		if !strings.EqualFold(entry.Stock, stocks[i].Ticker) {
			errs.Add(validation.Path(optimization.PathPrefix, "budget", validation.Index(i), "stock"), MsgBudgetStock)
		}
	}
	return errs
}
