// Package export serializes canonical records into the CSV download format
// and hands the bytes to a delivery sink.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/sparkflow-dev/sparkflow/internal/model"
)

// Fixed download filenames.
const (
	ForecastFilename = "demand_forecast_india.csv"
	TransferFilename = "transfer_recommendations_india.csv"
)

const (
	currencySymbol   = "₹"
	fallbackPriority = model.PriorityMedium
)

// ForecastHeader is the header row of the forecast export.
var ForecastHeader = []string{"Zone", "SKU", "Current Stock", "Forecasted Demand", "Variance"}

// TransferHeader is the header row of the transfer export.
var TransferHeader = []string{"SKU", "From Zone", "To Zone", "Quantity", "Reason", "Priority", "Net Savings (INR)"}

// Quoting selects how fields are written.
type Quoting string

const (
	// QuotingNone joins fields with "," and rows with "\n" with no escaping
	// and no trailing newline. Embedded commas or newlines corrupt the row.
	QuotingNone Quoting = "none"
	// QuotingRFC4180 quotes fields as needed and terminates every row with CRLF.
	QuotingRFC4180 Quoting = "rfc4180"
)

// ParseQuoting maps a config or flag value to a Quoting. Empty means QuotingNone.
func ParseQuoting(s string) (Quoting, error) {
	switch Quoting(strings.ToLower(strings.TrimSpace(s))) {
	case "", QuotingNone:
		return QuotingNone, nil
	case QuotingRFC4180:
		return QuotingRFC4180, nil
	}
	return "", fmt.Errorf("unknown CSV quoting %q (want %q or %q)", s, QuotingNone, QuotingRFC4180)
}

// Encode serializes rows. The first row is expected to be the header.
func Encode(rows [][]string, q Quoting) ([]byte, error) {
	switch q {
	case QuotingNone, "":
		lines := make([]string, len(rows))
		for i, row := range rows {
			lines[i] = strings.Join(row, ",")
		}
		return []byte(strings.Join(lines, "\n")), nil
	case QuotingRFC4180:
		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		cw.UseCRLF = true
		if err := cw.WriteAll(rows); err != nil {
			return nil, fmt.Errorf("writing CSV: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown CSV quoting %q", q)
}

// MarshalForecast converts a forecast record to an export row.
func MarshalForecast(r model.ForecastRecord) []string {
	return []string{
		r.Zone,
		r.SKU,
		strconv.Itoa(r.CurrentStock),
		formatNumber(r.ForecastedDemand),
		formatNumber(r.Variance()),
	}
}

// MarshalTransfer converts a transfer record to an export row.
func MarshalTransfer(r model.TransferRecord) []string {
	priority := r.Priority
	if priority == "" {
		priority = fallbackPriority
	}
	return []string{
		r.SKU,
		r.FromZone,
		r.ToZone,
		strconv.Itoa(r.Quantity),
		r.Reason,
		string(priority),
		currencySymbol + r.ExportSaving().StringFixed(2),
	}
}

// ForecastRows returns the header followed by one row per record.
func ForecastRows(records []model.ForecastRecord) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, ForecastHeader)
	for _, r := range records {
		rows = append(rows, MarshalForecast(r))
	}
	return rows
}

// TransferRows returns the header followed by one row per record.
func TransferRows(records []model.TransferRecord) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, TransferHeader)
	for _, r := range records {
		rows = append(rows, MarshalTransfer(r))
	}
	return rows
}

// formatNumber renders integral values without a fraction and others with the
// shortest exact representation: 25 -> "25", 12.5 -> "12.5".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
