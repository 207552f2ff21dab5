package form

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-intake/internal/modules/optimization"
	"github.com/aristath/portfolio-intake/internal/modules/securities"
)

func TestPayload_JSON(t *testing.T) {
	tech := securities.Technology
	p := Payload{
		Stocks: []securities.SecurityRow{
			{ID: "row-1", Ticker: "msft", MinWeight: float(0.1), Sector: &tech},
		},
		OptimizationMethod: &optimization.MaximizeSharpeRatio{},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"stocks": [{"ticker":"msft","minWeight":0.1,"sector":"Technology"}],
		"optimizationMethod": {"optimizationMethod":"maximize_sharpe_ratio"}
	}`, string(data))

	var decoded Payload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, optimization.MethodMaximizeSharpeRatio, decoded.OptimizationMethod.Method())
	require.Len(t, decoded.Stocks, 1)
	assert.Equal(t, securities.Technology, *decoded.Stocks[0].Sector)
}

func TestPayload_EmptyStocksMarshalAsList(t *testing.T) {
	data, err := json.Marshal(Payload{OptimizationMethod: optimization.Default()})
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "[]", string(fields["stocks"]))
}

func TestPayload_UnmarshalErrors(t *testing.T) {
	var p Payload
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"stocks":[],"optimizationMethod":{"optimizationMethod":"nope"}}`), &p), optimization.ErrInvalidMethod)

	require.NoError(t, json.Unmarshal([]byte(`{"stocks":[]}`), &p))
	assert.Nil(t, p.OptimizationMethod)
	assert.True(t, Validate(p, DefaultRules(), false).Has("optimizationMethod.optimizationMethod"))
}

func TestPayload_TickerView(t *testing.T) {
	p := Payload{Stocks: []securities.SecurityRow{
		{Ticker: "msft", MaxWeight: float(0.4)},
		{Ticker: "aapl"},
	}}

	view := p.TickerView()
	require.Len(t, view, 2)
	assert.Equal(t, 0.4, *view["msft"].MaxWeight)
	assert.Nil(t, view["aapl"].MinWeight)
}

func TestPayload_Clone(t *testing.T) {
	p := Payload{
		Stocks:             []securities.SecurityRow{{Ticker: "msft", MinWeight: float(0.1)}},
		OptimizationMethod: optimization.Default(),
	}
	cp := p.Clone()
	*cp.Stocks[0].MinWeight = 0.9
	*cp.OptimizationMethod.(*optimization.MaximizeReturn).MaxRisk = 0.9

	assert.Equal(t, 0.1, *p.Stocks[0].MinWeight)
	assert.Equal(t, optimization.DefaultMaxRisk, *p.OptimizationMethod.(*optimization.MaximizeReturn).MaxRisk)
}

func TestValidate_BudgetAlignment(t *testing.T) {
	p := Payload{
		Stocks: []securities.SecurityRow{{Ticker: "msft"}, {Ticker: "aapl"}},
		OptimizationMethod: &optimization.RiskParity{Budget: []optimization.BudgetEntry{
			{Stock: "MSFT", Weight: float(1)},
			{Stock: "goog", Weight: float(1)},
		}},
	}

	errs := Validate(p, DefaultRules(), false)
	assert.False(t, errs.Has("optimizationMethod.budget.0.stock"), "case is ignored")
	assert.Equal(t, []string{MsgBudgetStock}, errs.For("optimizationMethod.budget.1.stock"))
	assert.False(t, errs.Has("stocks"), "minimum size is a submit rule")
}

func TestValidate_MinimumCountsDistinctTickers(t *testing.T) {
	rules := DefaultRules()
	rules.UniqueTickers = false

	tests := []struct {
		name    string
		tickers []string
		short   bool
	}{
		{"same ticker three times", []string{"msft", "msft", "msft"}, true},
		{"case is folded", []string{"msft", "MSFT", "aapl"}, true},
		{"empty rows do not count", []string{"msft", "aapl", ""}, true},
		{"three distinct", []string{"msft", "aapl", "goog"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Payload{OptimizationMethod: optimization.Default()}
			for _, ticker := range tt.tickers {
				p.Stocks = append(p.Stocks, securities.SecurityRow{Ticker: ticker})
			}

			errs := Validate(p, rules, true)
			if tt.short {
				assert.Equal(t, []string{MinPortfolioMessage(3)}, errs.For("stocks"))
			} else {
				assert.False(t, errs.Has("stocks"))
			}
		})
	}
}
