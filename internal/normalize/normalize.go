// Package normalize maps loosely-typed upstream JSON payloads onto the
// canonical forecast and transfer records.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/sparkflow-dev/sparkflow/internal/classify"
	"github.com/sparkflow-dev/sparkflow/internal/model"
)

// Dataset names used in errors and logs.
const (
	DatasetForecast  = "forecast"
	DatasetTransfers = "transfers"
)

// Raw forecast field names.
const (
	fieldZone         = "Zone"
	fieldSKU          = "SKU"
	fieldCurrentStock = "Current_Stock"
	fieldForecastQty  = "Forecast_Quantity"
)

// Raw transfer field names.
const (
	fieldFrom             = "From"
	fieldTo               = "To"
	fieldQuantity         = "Quantity"
	fieldReason           = "Reason"
	fieldEstimatedSavings = "Estimated_Savings"
	fieldNetSaving        = "Net_Saving"
	fieldTransportCost    = "Transport_Cost"
	fieldAvoidedLoss      = "Avoided_Loss"
	fieldPriority         = "Priority"
)

// MalformedPayloadError reports a response body that is not an array of objects.
type MalformedPayloadError struct {
	Dataset string
	Index   int // -1 when the payload as a whole is wrong
	Reason  string
}

func (e *MalformedPayloadError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed %s payload: %s", e.Dataset, e.Reason)
	}
	return fmt.Sprintf("malformed %s payload: element %d: %s", e.Dataset, e.Index, e.Reason)
}

// Forecasts normalizes a raw forecast payload. Missing, null or non-numeric
// stock and demand values become 0; zone and SKU pass through as given.
func Forecasts(body []byte) ([]model.ForecastRecord, error) {
	elems, err := elements(DatasetForecast, body)
	if err != nil {
		return nil, err
	}

	records := make([]model.ForecastRecord, 0, len(elems))
	for _, e := range elems {
		records = append(records, model.ForecastRecord{
			Zone:             e.Get(fieldZone).String(),
			SKU:              e.Get(fieldSKU).String(),
			CurrentStock:     intOrZero(e.Get(fieldCurrentStock)),
			ForecastedDemand: floatOrZero(e.Get(fieldForecastQty)),
		})
	}
	return records, nil
}

// Transfers normalizes a raw transfer-plan payload. Priority is always derived
// from the reason text.
func Transfers(body []byte) ([]model.TransferRecord, error) {
	elems, err := elements(DatasetTransfers, body)
	if err != nil {
		return nil, err
	}

	records := make([]model.TransferRecord, 0, len(elems))
	for _, e := range elems {
		reason := e.Get(fieldReason).String()
		records = append(records, model.TransferRecord{
			SKU:              e.Get(fieldSKU).String(),
			FromZone:         e.Get(fieldFrom).String(),
			ToZone:           e.Get(fieldTo).String(),
			Quantity:         intOrZero(e.Get(fieldQuantity)),
			Reason:           reason,
			TransportCost:    decimalOrZero(e.Get(fieldTransportCost)),
			EstimatedSavings: decimalOrZero(e.Get(fieldEstimatedSavings)),
			AvoidedLoss:      decimalOrZero(e.Get(fieldAvoidedLoss)),
			NetSaving:        decimal.NewNullDecimal(decimalOrZero(e.Get(fieldNetSaving))),
			Priority:         resolvePriority(reason, e.Get(fieldPriority).String()),
		})
	}
	return records, nil
}

// resolvePriority classifies reason and only falls back to the upstream hint
// when no rule matched. Classify is total, so the hint is never used.
func resolvePriority(reason, hint string) model.Priority {
	if p := classify.Classify(reason); p.Valid() {
		return p
	}
	if h := model.Priority(hint); h.Valid() {
		return h
	}
	return model.PriorityMedium
}

// elements validates that body is a JSON array of objects and returns them.
func elements(dataset string, body []byte) ([]gjson.Result, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &MalformedPayloadError{Dataset: dataset, Index: -1, Reason: "empty body"}
	}
	if !gjson.ValidBytes(body) {
		return nil, &MalformedPayloadError{Dataset: dataset, Index: -1, Reason: "invalid JSON"}
	}

	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, &MalformedPayloadError{Dataset: dataset, Index: -1, Reason: "expected a JSON array, got " + kind(root)}
	}

	elems := root.Array()
	for i, e := range elems {
		if !e.IsObject() {
			return nil, &MalformedPayloadError{Dataset: dataset, Index: i, Reason: "expected an object, got " + kind(e)}
		}
	}
	return elems, nil
}

func kind(r gjson.Result) string {
	switch {
	case r.IsArray():
		return "array"
	case r.IsObject():
		return "object"
	}
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	return "unknown"
}

// number extracts a finite numeric value. Numeric strings are accepted, the
// same way arithmetic on them would succeed upstream.
func number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		if math.IsNaN(r.Num) || math.IsInf(r.Num, 0) {
			return 0, false
		}
		return r.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func floatOrZero(r gjson.Result) float64 {
	f, _ := number(r)
	return f
}

// intOrZero truncates toward zero. Values that do not fit in an int become 0
// like any other unusable number; negative values pass through for the
// validators to reject.
func intOrZero(r gjson.Result) int {
	f, ok := number(r)
	if !ok {
		return 0
	}
	f = math.Trunc(f)
	if f < math.MinInt || f >= -math.MinInt {
		return 0
	}
	return int(f)
}

func decimalOrZero(r gjson.Result) decimal.Decimal {
	if _, ok := number(r); !ok {
		return decimal.Zero
	}
	raw := r.Raw
	if r.Type == gjson.String {
		raw = strings.TrimSpace(r.Str)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NewFromFloat(r.Float())
	}
	return d
}
