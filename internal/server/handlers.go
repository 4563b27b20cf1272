package server

import (
	"encoding/json"
	"net/http"

	"github.com/sparkflow-dev/sparkflow/internal/classify"
	"github.com/sparkflow-dev/sparkflow/internal/export"
	"github.com/sparkflow-dev/sparkflow/internal/model"
	"github.com/sparkflow-dev/sparkflow/internal/savings"
)

type forecastJSON struct {
	model.ForecastRecord
	Variance float64 `json:"variance"`
}

type transferJSON struct {
	model.TransferRecord
	Tone string `json:"tone"`
	Icon string `json:"icon"`
}

type transfersResponse struct {
	Transfers []transferJSON  `json:"transfers"`
	Summary   savings.Summary `json:"summary"`
	Rejected  []string        `json:"rejected"`
}

type refreshResponse struct {
	Forecasts int               `json:"forecasts"`
	Transfers int               `json:"transfers"`
	Rejected  int               `json:"rejected"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	view := s.pipeline.Forecasts()
	out := make([]forecastJSON, len(view.Records))
	for i, rec := range view.Records {
		out[i] = forecastJSON{ForecastRecord: rec, Variance: rec.Variance()}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	view := s.pipeline.Transfers()
	resp := transfersResponse{
		Transfers: make([]transferJSON, len(view.Records)),
		Summary:   view.Summary,
		Rejected:  make([]string, len(view.Rejected)),
	}
	for i, rec := range view.Records {
		resp.Transfers[i] = transferJSON{
			TransferRecord: rec,
			Tone:           classify.Tone(rec.Priority),
			Icon:           classify.ReasonIcon(rec.Reason),
		}
	}
	for i, ve := range view.Rejected {
		resp.Rejected[i] = ve.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.pipeline.Transfers().Summary)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report := s.pipeline.Refresh(r.Context())
	resp := refreshResponse{
		Forecasts: report.Forecasts,
		Transfers: report.Transfers,
		Rejected:  report.Rejected,
	}
	status := http.StatusOK
	if report.Err() != nil {
		status = http.StatusBadGateway
		resp.Errors = make(map[string]string)
		if report.ForecastErr != nil {
			resp.Errors["forecast"] = report.ForecastErr.Error()
		}
		if report.TransferErr != nil {
			resp.Errors["transfers"] = report.TransferErr.Error()
		}
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleExportForecast(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, export.ForecastArtifact(s.pipeline.Forecasts().Records))
}

func (s *Server) handleExportTransfers(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, export.TransferArtifact(s.pipeline.Transfers().Records))
}

// serveExport streams an artifact as a download. ?quoting= overrides the
// configured quoting for this request.
func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, a export.Artifact) {
	quoting := s.quoting
	if q := r.URL.Query().Get("quoting"); q != "" {
		parsed, err := export.ParseQuoting(q)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		quoting = parsed
	}

	// Headers are already sent if delivery fails; the exporter logs it.
	_, _ = export.NewExporter(&export.HTTPSink{W: w}, quoting, s.log).Export(r.Context(), a)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}
