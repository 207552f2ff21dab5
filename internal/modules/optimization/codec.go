package optimization

import (
	"encoding/json"
	"fmt"
)

// methodTag is the discriminator written in front of every variant
type methodTag struct {
	Method Method `json:"optimizationMethod"`
}

func (c *MaximizeReturn) MarshalJSON() ([]byte, error) {
	type alias MaximizeReturn
	return json.Marshal(struct {
		methodTag
		*alias
	}{methodTag{c.Method()}, (*alias)(c)})
}

func (c *MinimizeRisk) MarshalJSON() ([]byte, error) {
	type alias MinimizeRisk
	return json.Marshal(struct {
		methodTag
		*alias
	}{methodTag{c.Method()}, (*alias)(c)})
}

func (c *MaximizeSharpeRatio) MarshalJSON() ([]byte, error) {
	type alias MaximizeSharpeRatio
	return json.Marshal(struct {
		methodTag
		*alias
	}{methodTag{c.Method()}, (*alias)(c)})
}

func (c *MaximizeDiversificationFactor) MarshalJSON() ([]byte, error) {
	type alias MaximizeDiversificationFactor
	return json.Marshal(struct {
		methodTag
		*alias
	}{methodTag{c.Method()}, (*alias)(c)})
}

func (c *RiskParity) MarshalJSON() ([]byte, error) {
	type alias RiskParity
	out := struct {
		methodTag
		*alias
	}{methodTag{c.Method()}, (*alias)(c)}
	if out.alias.Budget == nil {
		shallow := *c
		shallow.Budget = []BudgetEntry{}
		out.alias = (*alias)(&shallow)
	}
	return json.Marshal(out)
}

// DecodeConfig reads the optimizationMethod tag and decodes the matching variant.
// The tag must match a method name exactly. Keys that belong to other variants are ignored.
func DecodeConfig(data []byte) (Config, error) {
	var tag struct {
		Method string `json:"optimizationMethod"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode optimization method: %w", err)
	}
	m := Method(tag.Method)
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, tag.Method)
	}

	var cfg Config
	switch m {
	case MethodMaximizeReturn:
		cfg = &MaximizeReturn{}
	case MethodMinimizeRisk:
		cfg = &MinimizeRisk{}
	case MethodMaximizeSharpeRatio:
		cfg = &MaximizeSharpeRatio{}
	case MethodMaximizeDiversificationFactor:
		cfg = &MaximizeDiversificationFactor{}
	case MethodRiskParity:
		cfg = &RiskParity{}
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", m, err)
	}
	if rp, ok := cfg.(*RiskParity); ok && rp.Budget == nil {
		rp.Budget = []BudgetEntry{}
	}
	return cfg, nil
}
