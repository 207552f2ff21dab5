package optimization

import (
	"sort"

	"github.com/aristath/portfolio-intake/internal/modules/securities"
	"github.com/aristath/portfolio-intake/internal/validation"
)

// PathPrefix roots every optimization error in the form payload
const PathPrefix = "optimizationMethod"

// User-facing messages
const (
	MsgMethodRequired     = "Optimization method is required"
	MsgMaxRiskRequired    = "Max risk is required"
	MsgMaxRiskMin         = "Max risk must be at least 0"
	MsgMaxRiskMax         = "Max risk must be at most 1"
	MsgMinReturnRequired  = "Min return is required"
	MsgMinReturnMin       = "Min return must be at least 0"
	MsgMinReturnMax       = "Min return must be at most 1"
	MsgAlphaDecay         = "Alpha decay must be greater than 0"
	MsgMaxLeverage        = "Max leverage must be greater than 0"
	MsgSectorMinWeightMin = "Min weight must be at least 0"
	MsgSectorMinWeightMax = "Min weight must be at most 1"
	MsgSectorMaxWeightMin = "Max weight must be at least 0"
	MsgSectorMaxWeightMax = "Max weight must be at most 1"
	MsgUnknownSector      = "Unknown sector"
	MsgStockRequired      = "Stock is required"
	MsgWeightRequired     = "Weight must be a number"
	MsgWeightMin          = "Weight must be at least 0"
)

var configMessages = validation.Messages{
	"maxRisk.required":   MsgMaxRiskRequired,
	"maxRisk.gte":        MsgMaxRiskMin,
	"maxRisk.lte":        MsgMaxRiskMax,
	"minReturn.required": MsgMinReturnRequired,
	"minReturn.gte":      MsgMinReturnMin,
	"minReturn.lte":      MsgMinReturnMax,
	"alphaDecay":         MsgAlphaDecay,
	"maxLeverage":        MsgMaxLeverage,
}

var boundsMessages = validation.Messages{
	"minWeight.gte": MsgSectorMinWeightMin,
	"minWeight.lte": MsgSectorMinWeightMax,
	"maxWeight.gte": MsgSectorMaxWeightMin,
	"maxWeight.lte": MsgSectorMaxWeightMax,
}

var budgetMessages = validation.Messages{
	"stock":           MsgStockRequired,
	"weight.required": MsgWeightRequired,
	"weight.gte":      MsgWeightMin,
}

// Validate checks cfg and returns every violation under "optimizationMethod"
func Validate(cfg Config) validation.Errors {
	if cfg == nil {
		return validation.Errors{{Path: validation.Path(PathPrefix, PathPrefix), Message: MsgMethodRequired}}
	}

	errs := validation.Struct(PathPrefix, cfg, configMessages)

	if common := commonOf(cfg); common != nil {
		errs.Append(validateSectorWeights(common.SectorWeights))
	}
	if rp, ok := cfg.(*RiskParity); ok {
		for i, entry := range rp.Budget {
			errs.Append(validation.Struct(validation.Path(PathPrefix, "budget", validation.Index(i)), entry, budgetMessages))
		}
	}
	return errs
}

// validateSectorWeights walks known sectors in display order, then unknown keys sorted
func validateSectorWeights(weights map[securities.Sector]WeightBounds) validation.Errors {
	var errs validation.Errors
	for _, s := range securities.Sectors {
		if b, ok := weights[s]; ok {
			errs.Append(validation.Struct(validation.Path(PathPrefix, "sectorWeights", string(s)), b, boundsMessages))
		}
	}

	var unknown []string
	for s := range weights {
		if !securities.IsSector(string(s)) {
			unknown = append(unknown, string(s))
		}
	}
	sort.Strings(unknown)
	for _, s := range unknown {
		errs.Add(validation.Path(PathPrefix, "sectorWeights", s), MsgUnknownSector)
	}
	return errs
}
