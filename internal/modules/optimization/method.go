// Package optimization models the optimization method of a portfolio request as a tagged
// union: one struct per method, each carrying only the fields that method accepts.
package optimization

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMethod       = errors.New("invalid optimization method")
	ErrFieldNotApplicable  = errors.New("field does not apply to the selected optimization method")
	ErrNotRiskParity       = errors.New("budget is only available for risk_parity")
	ErrBudgetEntryNotFound = errors.New("budget entry not found")
)

// Method is the optimizationMethod tag
type Method string

const (
	MethodMaximizeReturn                Method = "maximize_return"
	MethodMinimizeRisk                  Method = "minimize_risk"
	MethodMaximizeSharpeRatio           Method = "maximize_sharpe_ratio"
	MethodMaximizeDiversificationFactor Method = "maximize_diversification_factor"
	MethodRiskParity                    Method = "risk_parity"
)

// Methods lists every method in display order
var Methods = []Method{
	MethodMaximizeReturn,
	MethodMinimizeRisk,
	MethodMaximizeSharpeRatio,
	MethodMaximizeDiversificationFactor,
	MethodRiskParity,
}

// Valid reports whether m is one of the known methods
func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// HasCommon reports whether the method accepts shortSell, maxLeverage and sectorWeights
func (m Method) HasCommon() bool {
	return m.Valid() && m != MethodRiskParity
}

// ParseMethod resolves a method typed by a user. Surrounding whitespace and case are ignored.
// Encoded payloads go through DecodeConfig, which takes the tag literally.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
	return m, nil
}
