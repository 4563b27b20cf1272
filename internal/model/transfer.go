package model

import (
	"github.com/shopspring/decimal"
)

// Priority is the urgency tier of a transfer recommendation.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists every tier from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the three known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TransferRecord is a recommended movement of one SKU between two zones.
type TransferRecord struct {
	SKU              string              `json:"sku"`
	FromZone         string              `json:"fromZone"`
	ToZone           string              `json:"toZone"`
	Quantity         int                 `json:"quantity"`
	Reason           string              `json:"reason"`
	TransportCost    decimal.Decimal     `json:"transportCost"`
	EstimatedSavings decimal.Decimal     `json:"estimatedSavings"` // zero when unknown
	AvoidedLoss      decimal.Decimal     `json:"avoidedLoss"`
	NetSaving        decimal.NullDecimal `json:"netSaving"`
	Priority         Priority            `json:"priority,omitempty"` // empty = not classified
}

// Degenerate reports whether the transfer moves stock to the zone it came from.
func (t TransferRecord) Degenerate() bool {
	return t.FromZone == t.ToZone
}

// ExportSaving is the figure shown in the net savings column: the net saving
// when the record carries one, otherwise the estimated savings.
func (t TransferRecord) ExportSaving() decimal.Decimal {
	if t.NetSaving.Valid {
		return t.NetSaving.Decimal
	}
	return t.EstimatedSavings
}
