package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkflow-dev/sparkflow/internal/model"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestMarshalForecast(t *testing.T) {
	rec := model.ForecastRecord{Zone: "North", SKU: "SKU1", CurrentStock: 10, ForecastedDemand: 25}
	assert.Equal(t, "North,SKU1,10,25,15", strings.Join(MarshalForecast(rec), ","))
}

func TestMarshalForecastNumberFormatting(t *testing.T) {
	tests := []struct {
		stock  int
		demand float64
		want   []string
	}{
		{0, 0, []string{"0", "0", "0"}},
		{10, 12.5, []string{"10", "12.5", "2.5"}},
		{40, 25, []string{"40", "25", "-15"}},
		{3, 1000000, []string{"3", "1000000", "999997"}},
	}
	for _, tt := range tests {
		row := MarshalForecast(model.ForecastRecord{CurrentStock: tt.stock, ForecastedDemand: tt.demand})
		assert.Equal(t, tt.want, row[2:], "stock %d demand %v", tt.stock, tt.demand)
	}
}

func TestMarshalTransfer(t *testing.T) {
	rec := model.TransferRecord{
		SKU:              "SKU2",
		FromZone:         "East",
		ToZone:           "West",
		Quantity:         30,
		Reason:           "Overstock",
		EstimatedSavings: dec("1250"),
	}
	assert.Equal(t, "SKU2,East,West,30,Overstock,Medium,₹1250.00", strings.Join(MarshalTransfer(rec), ","))
}

func TestMarshalTransferUsesNetSavingWhenPresent(t *testing.T) {
	rec := model.TransferRecord{
		SKU:              "SKU9",
		FromZone:         "North",
		ToZone:           "South",
		Quantity:         4,
		Reason:           "Demand spike",
		Priority:         model.PriorityMedium,
		EstimatedSavings: dec("1250"),
		NetSaving:        decimal.NewNullDecimal(dec("1099.5")),
	}
	row := MarshalTransfer(rec)
	assert.Equal(t, "Medium", row[5])
	assert.Equal(t, "₹1099.50", row[6])
}

func TestMarshalTransferCurrencyFormatting(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "₹0.00"},
		{"4", "₹4.00"},
		{"127.5", "₹127.50"},
		{"42.999", "₹43.00"},
		{"-15.25", "₹-15.25"},
	}
	for _, tt := range tests {
		row := MarshalTransfer(model.TransferRecord{NetSaving: decimal.NewNullDecimal(dec(tt.in))})
		assert.Equal(t, tt.want, row[6], "input %q", tt.in)
	}
}

func TestMarshalTransferKeepsClassifiedPriority(t *testing.T) {
	row := MarshalTransfer(model.TransferRecord{Priority: model.PriorityHigh})
	assert.Equal(t, "High", row[5])
}

func TestEncodeNone(t *testing.T) {
	rows := ForecastRows([]model.ForecastRecord{
		{Zone: "North", SKU: "SKU1", CurrentStock: 10, ForecastedDemand: 25},
		{Zone: "South", SKU: "SKU2", CurrentStock: 5, ForecastedDemand: 3},
	})
	data, err := Encode(rows, QuotingNone)
	require.NoError(t, err)
	assert.Equal(t,
		"Zone,SKU,Current Stock,Forecasted Demand,Variance\nNorth,SKU1,10,25,15\nSouth,SKU2,5,3,-2",
		string(data))
}

func TestEncodeNoneHeaderOnly(t *testing.T) {
	data, err := Encode(TransferRows(nil), QuotingNone)
	require.NoError(t, err)
	assert.Equal(t, "SKU,From Zone,To Zone,Quantity,Reason,Priority,Net Savings (INR)", string(data))
}

func TestEncodeNoneDoesNotEscape(t *testing.T) {
	rows := TransferRows([]model.TransferRecord{{SKU: "A", Reason: "Overstock, North"}})
	data, err := Encode(rows, QuotingNone)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, strings.Split(lines[1], ","), 8, "an embedded comma adds a column")
}

func TestEncodeRFC4180RoundTrip(t *testing.T) {
	recs := []model.TransferRecord{
		{SKU: "A", FromZone: "North", ToZone: "South", Quantity: 3, Reason: "Overstock, \"urgent\"\nsecond line", EstimatedSavings: dec("10")},
		{SKU: "B", FromZone: "East", ToZone: "West", Quantity: 1, Reason: "Trend"},
	}
	rows := TransferRows(recs)
	data, err := Encode(rows, QuotingRFC4180)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\r\n"))

	got, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestEncodeUnknownQuoting(t *testing.T) {
	_, err := Encode(nil, Quoting("excel"))
	require.Error(t, err)
}

func TestParseQuoting(t *testing.T) {
	for in, want := range map[string]Quoting{"": QuotingNone, "none": QuotingNone, "RFC4180": QuotingRFC4180, " rfc4180 ": QuotingRFC4180} {
		got, err := ParseQuoting(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseQuoting("tsv")
	assert.Error(t, err)
}

func TestRowsHeaderFirst(t *testing.T) {
	assert.Equal(t, ForecastHeader, ForecastRows(nil)[0])
	assert.Equal(t, TransferHeader, TransferRows(nil)[0])
	assert.Len(t, ForecastHeader, 5)
	assert.Len(t, TransferHeader, 7)
}
