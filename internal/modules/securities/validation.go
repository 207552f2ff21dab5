package securities

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aristath/portfolio-intake/internal/validation"
)

// User-facing row validation messages
const (
	MsgTickerRequired  = "Ticker is required"
	MsgTickerDuplicate = "Ticker is already used in another row"
	MsgMinWeightRange  = "Min. Weight must be between 0 and 1"
	MsgMaxWeightRange  = "Max. Weight must be between 0 and 1"
	MsgMinBelowMax     = "Min. Weight must be less than Max. Weight"
	MsgMaxAboveMin     = "Max. Weight must be greater than Min. Weight"
	MsgUnknownSector   = "Sector must be one of the supported sectors"
)

const (
	tagMinBelowMax = "lt_max_weight"
	tagMaxAboveMin = "gt_min_weight"
)

var rowMessages = validation.Messages{
	"ticker.required":             MsgTickerRequired,
	"minWeight":                   MsgMinWeightRange,
	"maxWeight":                   MsgMaxWeightRange,
	"minWeight." + tagMinBelowMax: MsgMinBelowMax,
	"maxWeight." + tagMaxAboveMin: MsgMaxAboveMin,
	"sector":                      MsgUnknownSector,
}

func init() {
	validation.RegisterValidation("sector", func(fl validator.FieldLevel) bool {
		return IsSector(fl.Field().String())
	})
	validation.RegisterStructValidation(validateWeightOrder, SecurityRow{})
}

// validateWeightOrder flags both bounds when they are set and min is not below max
func validateWeightOrder(sl validator.StructLevel) {
	row := sl.Current().Interface().(SecurityRow)
	if row.MinWeight == nil || row.MaxWeight == nil {
		return
	}
	if *row.MinWeight >= *row.MaxWeight {
		sl.ReportError(row.MinWeight, "minWeight", "MinWeight", tagMinBelowMax, "")
		sl.ReportError(row.MaxWeight, "maxWeight", "MaxWeight", tagMaxAboveMin, "")
	}
}

// ValidateRow checks one row and roots its errors at prefix
func ValidateRow(prefix string, row SecurityRow) validation.Errors {
	return validation.Struct(prefix, row, rowMessages)
}

// ValidateRows checks every row under "stocks.<i>". With unique set, a ticker selected by an
// earlier row is reported on each later row that repeats it.
func ValidateRows(rows []SecurityRow, unique bool) validation.Errors {
	var errs validation.Errors
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		prefix := validation.Path("stocks", validation.Index(i))
		errs.Append(ValidateRow(prefix, row))

		if !unique || row.Ticker == "" {
			continue
		}
		key := strings.ToLower(row.Ticker)
		if seen[key] {
			errs.Add(validation.Path(prefix, "ticker"), MsgTickerDuplicate)
		}
		seen[key] = true
	}
	return errs
}
