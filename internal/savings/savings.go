// Package savings derives financial totals from a transfer collection.
package savings

import (
	"github.com/shopspring/decimal"

	"github.com/sparkflow-dev/sparkflow/internal/model"
)

// Aggregate sums EstimatedSavings across records. A record with unknown
// savings holds the zero value and contributes nothing, but is still counted
// as part of the set.
func Aggregate(records []model.TransferRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.EstimatedSavings)
	}
	return total
}

// Summary is the set of totals shown alongside the transfer list.
type Summary struct {
	Count              int                    `json:"count"`
	TotalSavings       decimal.Decimal        `json:"totalSavings"`
	TotalNetSaving     decimal.Decimal        `json:"totalNetSaving"`
	TotalTransportCost decimal.Decimal        `json:"totalTransportCost"`
	TotalAvoidedLoss   decimal.Decimal        `json:"totalAvoidedLoss"`
	ByPriority         map[model.Priority]int `json:"byPriority"`
}

// Summarize recomputes every total from records. Records without a priority
// are counted under Medium, matching the export fallback.
func Summarize(records []model.TransferRecord) Summary {
	s := Summary{
		Count:              len(records),
		TotalSavings:       Aggregate(records),
		TotalNetSaving:     decimal.Zero,
		TotalTransportCost: decimal.Zero,
		TotalAvoidedLoss:   decimal.Zero,
		ByPriority:         make(map[model.Priority]int, len(model.Priorities)),
	}
	for _, p := range model.Priorities {
		s.ByPriority[p] = 0
	}

	for _, r := range records {
		s.TotalNetSaving = s.TotalNetSaving.Add(r.ExportSaving())
		s.TotalTransportCost = s.TotalTransportCost.Add(r.TransportCost)
		s.TotalAvoidedLoss = s.TotalAvoidedLoss.Add(r.AvoidedLoss)

		p := r.Priority
		if !p.Valid() {
			p = model.PriorityMedium
		}
		s.ByPriority[p]++
	}
	return s
}
