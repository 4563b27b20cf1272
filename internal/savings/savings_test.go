package savings

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sparkflow-dev/sparkflow/internal/model"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestAggregateEmpty(t *testing.T) {
	assert.True(t, Aggregate(nil).IsZero())
	assert.True(t, Aggregate([]model.TransferRecord{}).IsZero())
}

func TestAggregateUnknownSavingsCountsAsZero(t *testing.T) {
	records := []model.TransferRecord{
		{SKU: "A", EstimatedSavings: dec("100")},
		{SKU: "B"},
		{SKU: "C", EstimatedSavings: dec("50")},
	}
	got := Aggregate(records)
	assert.True(t, got.Equal(dec("150")), "got %s", got)
}

func TestAggregateOrderIndependent(t *testing.T) {
	records := []model.TransferRecord{
		{EstimatedSavings: dec("0.1")},
		{EstimatedSavings: dec("0.2")},
		{EstimatedSavings: dec("1250.75")},
		{EstimatedSavings: dec("-40")},
		{EstimatedSavings: dec("99.99")},
	}
	want := Aggregate(records)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]model.TransferRecord(nil), records...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Aggregate(shuffled)
		assert.InDelta(t, want.InexactFloat64(), got.InexactFloat64(), 1e-9)
	}
	assert.True(t, want.Equal(dec("1311.04")), "got %s", want)
}

func TestSummarize(t *testing.T) {
	records := []model.TransferRecord{
		{
			Priority:         model.PriorityHigh,
			EstimatedSavings: dec("1250"),
			NetSaving:        decimal.NewNullDecimal(dec("1100")),
			TransportCost:    dec("150"),
			AvoidedLoss:      dec("300"),
		},
		{
			Priority:         model.PriorityLow,
			EstimatedSavings: dec("200"),
			TransportCost:    dec("20.5"),
		},
		{EstimatedSavings: dec("10")},
	}

	s := Summarize(records)
	assert.Equal(t, 3, s.Count)
	assert.True(t, s.TotalSavings.Equal(dec("1460")), "total savings %s", s.TotalSavings)
	assert.True(t, s.TotalNetSaving.Equal(dec("1310")), "net falls back to estimate when absent, got %s", s.TotalNetSaving)
	assert.True(t, s.TotalTransportCost.Equal(dec("170.5")))
	assert.True(t, s.TotalAvoidedLoss.Equal(dec("300")))
	assert.Equal(t, map[model.Priority]int{
		model.PriorityHigh:   1,
		model.PriorityMedium: 1,
		model.PriorityLow:    1,
	}, s.ByPriority)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Count)
	assert.True(t, s.TotalSavings.IsZero())
	assert.Len(t, s.ByPriority, 3)
}
