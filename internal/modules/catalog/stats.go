package catalog

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily volatility
const TradingDaysPerYear = 252

// TickerSummary is descriptive feedback about one uploaded price column.
// It is informational only and never feeds the optimization request.
type TickerSummary struct {
	Ticker               string  `json:"ticker"`
	Observations         int     `json:"observations"`
	FirstDate            string  `json:"first_date,omitempty"`
	LastDate             string  `json:"last_date,omitempty"`
	MeanReturn           float64 `json:"mean_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
}

// Summarize computes per-ticker statistics in catalog order
func Summarize(d *Dataset) []TickerSummary {
	dateColumn := d.DateColumn()
	out := make([]TickerSummary, 0, len(d.Tickers))

	for i, t := range d.Tickers {
		header := d.Headers[i+1]
		prices, rows := d.Column(header)

		summary := TickerSummary{
			Ticker:       t.Label,
			Observations: len(prices),
		}
		if len(rows) > 0 {
			summary.FirstDate = d.Records[rows[0]].Label(dateColumn)
			summary.LastDate = d.Records[rows[len(rows)-1]].Label(dateColumn)
		}

		returns := SimpleReturns(prices)
		summary.MeanReturn = finite(mean(returns))
		summary.AnnualizedVolatility = finite(annualizedVolatility(returns))

		out = append(out, summary)
	}
	return out
}

// SimpleReturns converts prices to period returns, skipping periods that start at zero
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
		}
	}
	return returns
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

func annualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
}

// finite keeps NaN and Inf out of JSON responses
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
