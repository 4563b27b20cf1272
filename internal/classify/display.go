package classify

import (
	"strings"

	"github.com/sparkflow-dev/sparkflow/internal/model"
)

// Tone returns the badge color token for a priority.
func Tone(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "red"
	case model.PriorityMedium:
		return "yellow"
	case model.PriorityLow:
		return "green"
	default:
		return "gray"
	}
}

// ReasonIcon returns the icon token shown next to a transfer reason.
// It keys off the reason text, not the priority: "Trend" and "Demand" share a
// tier but have different icons.
func ReasonIcon(reason string) string {
	switch {
	case strings.Contains(reason, "Overstock"):
		return "package"
	case strings.Contains(reason, "Trend"):
		return "trending-up"
	case strings.Contains(reason, "Demand"):
		return "zap"
	default:
		return "alert-triangle"
	}
}
