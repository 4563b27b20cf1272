// Package pipeline fetches both upstream datasets, normalizes them and
// publishes the resulting read-only views.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/sparkflow-dev/sparkflow/internal/model"
	"github.com/sparkflow-dev/sparkflow/internal/normalize"
	"github.com/sparkflow-dev/sparkflow/internal/savings"
)

// Fetcher returns raw upstream payloads.
type Fetcher interface {
	FetchForecast(ctx context.Context) ([]byte, error)
	FetchTransfers(ctx context.Context) ([]byte, error)
}

// ForecastView is the current forecast collection. Treat it as read-only.
type ForecastView struct {
	Records  []model.ForecastRecord
	Rejected []normalize.ValidationError
}

// TransferView is the current transfer collection and the totals derived
// from it. Treat it as read-only.
type TransferView struct {
	Records  []model.TransferRecord
	Summary  savings.Summary
	Rejected []normalize.ValidationError
}

func newTransferView(records []model.TransferRecord, rejected []normalize.ValidationError) *TransferView {
	return &TransferView{
		Records:  records,
		Summary:  savings.Summarize(records),
		Rejected: rejected,
	}
}

// Report is the outcome of one Refresh. Each dataset succeeds or fails on its own.
// Counts describe the view this run published, or the view it left in place
// when the dataset failed.
type Report struct {
	Forecasts   int
	Transfers   int
	Rejected    int // forecast and transfer validation errors
	ForecastErr error
	TransferErr error
}

// Err joins both dataset errors, or returns nil if both refreshed.
func (r Report) Err() error {
	return errors.Join(r.ForecastErr, r.TransferErr)
}

// Pipeline holds the latest views. Each successful fetch replaces its view in
// one atomic swap; a failed fetch leaves the previous view in place.
type Pipeline struct {
	src       Fetcher
	log       zerolog.Logger
	forecasts atomic.Pointer[ForecastView]
	transfers atomic.Pointer[TransferView]
}

// New creates a Pipeline with empty views.
func New(src Fetcher, log zerolog.Logger) *Pipeline {
	p := &Pipeline{
		src: src,
		log: log.With().Str("component", "pipeline").Logger(),
	}
	p.forecasts.Store(&ForecastView{Records: []model.ForecastRecord{}})
	p.transfers.Store(newTransferView([]model.TransferRecord{}, nil))
	return p
}

// Forecasts returns the current forecast view.
func (p *Pipeline) Forecasts() *ForecastView { return p.forecasts.Load() }

// Transfers returns the current transfer view.
func (p *Pipeline) Transfers() *TransferView { return p.transfers.Load() }

// Refresh fetches both datasets concurrently. A failure in one does not stop
// or roll back the other.
func (p *Pipeline) Refresh(ctx context.Context) Report {
	var (
		r  Report
		fv *ForecastView
		tv *TransferView
		wg sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fv, r.ForecastErr = p.refreshForecast(ctx)
	}()
	go func() {
		defer wg.Done()
		tv, r.TransferErr = p.refreshTransfers(ctx)
	}()
	wg.Wait()

	r.Forecasts = len(fv.Records)
	r.Transfers = len(tv.Records)
	r.Rejected = len(fv.Rejected) + len(tv.Rejected)
	return r
}

// RefreshForecast fetches, normalizes and validates the forecast dataset.
// Records with a negative stock level are dropped from the view and logged.
func (p *Pipeline) RefreshForecast(ctx context.Context) error {
	_, err := p.refreshForecast(ctx)
	return err
}

// RefreshTransfers fetches, normalizes and validates the transfer dataset.
// Degenerate records are dropped from the view and logged.
func (p *Pipeline) RefreshTransfers(ctx context.Context) error {
	_, err := p.refreshTransfers(ctx)
	return err
}

// refreshForecast returns the view it stored, or the current view on failure.
func (p *Pipeline) refreshForecast(ctx context.Context) (*ForecastView, error) {
	body, err := p.src.FetchForecast(ctx)
	if err != nil {
		p.log.Error().Err(err).Str("dataset", normalize.DatasetForecast).Msg("Fetch failed, keeping previous data")
		return p.forecasts.Load(), err
	}
	records, err := normalize.Forecasts(body)
	if err != nil {
		p.log.Error().Err(err).Str("dataset", normalize.DatasetForecast).Msg("Rejecting payload, keeping previous data")
		return p.forecasts.Load(), err
	}

	kept, rejected := normalize.ValidForecasts(records)
	for _, ve := range rejected {
		p.log.Warn().Str("sku", ve.SKU).Int("index", ve.Index).Msg(ve.Description)
	}

	view := &ForecastView{Records: kept, Rejected: rejected}
	p.forecasts.Store(view)
	p.log.Info().
		Str("dataset", normalize.DatasetForecast).
		Int("records", len(kept)).
		Int("rejected", len(rejected)).
		Msg("Refreshed")
	return view, nil
}

// refreshTransfers returns the view it stored, or the current view on failure.
func (p *Pipeline) refreshTransfers(ctx context.Context) (*TransferView, error) {
	body, err := p.src.FetchTransfers(ctx)
	if err != nil {
		p.log.Error().Err(err).Str("dataset", normalize.DatasetTransfers).Msg("Fetch failed, keeping previous data")
		return p.transfers.Load(), err
	}
	records, err := normalize.Transfers(body)
	if err != nil {
		p.log.Error().Err(err).Str("dataset", normalize.DatasetTransfers).Msg("Rejecting payload, keeping previous data")
		return p.transfers.Load(), err
	}

	kept, rejected := normalize.ValidTransfers(records)
	for _, ve := range rejected {
		p.log.Warn().Str("sku", ve.SKU).Int("index", ve.Index).Msg(ve.Description)
	}

	view := newTransferView(kept, rejected)
	p.transfers.Store(view)
	p.log.Info().
		Str("dataset", normalize.DatasetTransfers).
		Int("records", len(kept)).
		Int("rejected", len(rejected)).
		Str("total_savings", view.Summary.TotalSavings.StringFixed(2)).
		Msg("Refreshed")
	return view, nil
}
