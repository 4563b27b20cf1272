package model

// ForecastRecord is one SKU's stock-vs-demand snapshot for one zone.
type ForecastRecord struct {
	Zone             string  `json:"zone"`
	SKU              string  `json:"sku"`
	CurrentStock     int     `json:"currentStock"`
	ForecastedDemand float64 `json:"forecastedDemand"`
}

// Variance returns forecasted demand minus current stock.
// It is derived for display and export and never stored.
func (f ForecastRecord) Variance() float64 {
	return f.ForecastedDemand - float64(f.CurrentStock)
}
