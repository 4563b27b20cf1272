package export

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sparkflow-dev/sparkflow/internal/model"
)

// Artifact is an export file ready to be encoded.
type Artifact struct {
	Filename string
	Rows     [][]string // header first
}

// ForecastArtifact builds the forecast export file.
func ForecastArtifact(records []model.ForecastRecord) Artifact {
	return Artifact{Filename: ForecastFilename, Rows: ForecastRows(records)}
}

// TransferArtifact builds the transfer export file.
func TransferArtifact(records []model.TransferRecord) Artifact {
	return Artifact{Filename: TransferFilename, Rows: TransferRows(records)}
}

// Receipt reports a successful delivery.
type Receipt struct {
	Filename string
	Sink     string
	Location string
	Records  int
	Bytes    int
}

// Message is the confirmation shown to the user.
func (r Receipt) Message() string {
	return fmt.Sprintf("%s has been exported as CSV (%d records) to %s", r.Filename, r.Records, r.Location)
}

// ExportError reports a failed export. It is the one failure always shown to
// the user.
type ExportError struct {
	Filename string
	Sink     string
	Err      error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting %s via %s: %v", e.Filename, e.Sink, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Exporter encodes artifacts and hands them to a sink. It does not retry and
// does not verify that the file reached its destination.
type Exporter struct {
	sink    Sink
	quoting Quoting
	log     zerolog.Logger
}

// NewExporter creates an Exporter delivering to sink.
func NewExporter(sink Sink, quoting Quoting, log zerolog.Logger) *Exporter {
	return &Exporter{
		sink:    sink,
		quoting: quoting,
		log:     log.With().Str("component", "export").Str("sink", sink.Name()).Logger(),
	}
}

// Export encodes a and delivers it.
func (e *Exporter) Export(ctx context.Context, a Artifact) (Receipt, error) {
	data, err := Encode(a.Rows, e.quoting)
	if err != nil {
		return Receipt{}, &ExportError{Filename: a.Filename, Sink: e.sink.Name(), Err: err}
	}

	loc, err := e.sink.Deliver(ctx, a.Filename, data)
	if err != nil {
		e.log.Error().Err(err).Str("file", a.Filename).Msg("Export failed")
		return Receipt{}, &ExportError{Filename: a.Filename, Sink: e.sink.Name(), Err: err}
	}

	records := len(a.Rows) - 1
	if records < 0 {
		records = 0
	}
	r := Receipt{
		Filename: a.Filename,
		Sink:     e.sink.Name(),
		Location: loc,
		Records:  records,
		Bytes:    len(data),
	}
	e.log.Info().
		Str("file", r.Filename).
		Str("location", r.Location).
		Int("records", r.Records).
		Int("bytes", r.Bytes).
		Msg("Export delivered")
	return r, nil
}
