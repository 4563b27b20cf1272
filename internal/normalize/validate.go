package normalize

import (
	"fmt"

	"github.com/sparkflow-dev/sparkflow/internal/model"
)

const (
	recordForecast = "forecast"
	recordTransfer = "transfer"
)

// ValidationError describes a record that cannot be acted on.
type ValidationError struct {
	Record      string // "forecast" or "transfer"
	Index       int
	SKU         string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %d [%s]: %s", e.Record, e.Index, e.SKU, e.Description)
}

// ValidateForecasts flags records with a negative stock level. It never
// modifies records.
func ValidateForecasts(records []model.ForecastRecord) []ValidationError {
	var errs []ValidationError
	for i, rec := range records {
		if rec.CurrentStock < 0 {
			errs = append(errs, ValidationError{
				Record:      recordForecast,
				Index:       i,
				SKU:         rec.SKU,
				Description: fmt.Sprintf("negative stock %d", rec.CurrentStock),
			})
		}
	}
	return errs
}

// ValidForecasts returns the records that pass ValidateForecasts, in order,
// along with the errors for the ones that did not.
func ValidForecasts(records []model.ForecastRecord) ([]model.ForecastRecord, []ValidationError) {
	errs := ValidateForecasts(records)
	return without(records, errs), errs
}

// ValidateTransfers flags degenerate records. It never modifies records.
func ValidateTransfers(records []model.TransferRecord) []ValidationError {
	var errs []ValidationError
	for i, rec := range records {
		if rec.Degenerate() {
			errs = append(errs, ValidationError{
				Record:      recordTransfer,
				Index:       i,
				SKU:         rec.SKU,
				Description: fmt.Sprintf("source and destination are both %q", rec.FromZone),
			})
		}
		if rec.Quantity < 0 {
			errs = append(errs, ValidationError{
				Record:      recordTransfer,
				Index:       i,
				SKU:         rec.SKU,
				Description: fmt.Sprintf("negative quantity %d", rec.Quantity),
			})
		}
	}
	return errs
}

// ValidTransfers returns the records that pass ValidateTransfers, in order,
// along with the errors for the ones that did not.
func ValidTransfers(records []model.TransferRecord) ([]model.TransferRecord, []ValidationError) {
	errs := ValidateTransfers(records)
	return without(records, errs), errs
}

// without returns records minus every index named in errs. With no errors it
// returns records itself.
func without[T any](records []T, errs []ValidationError) []T {
	if len(errs) == 0 {
		return records
	}

	bad := make(map[int]bool, len(errs))
	for _, e := range errs {
		bad[e.Index] = true
	}
	kept := make([]T, 0, len(records)-len(bad))
	for i, rec := range records {
		if !bad[i] {
			kept = append(kept, rec)
		}
	}
	return kept
}
