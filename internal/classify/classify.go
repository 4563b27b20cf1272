// Package classify derives a transfer's priority tier from its free-text reason.
package classify

import (
	"strings"

	"github.com/sparkflow-dev/sparkflow/internal/model"
)

// rule maps any of its keywords to a tier. Rules are evaluated in order and the
// first match wins, so a reason mentioning both "Overstock" and "Trend" is High.
type rule struct {
	keywords []string
	priority model.Priority
}

var rules = []rule{
	{keywords: []string{"Overstock"}, priority: model.PriorityHigh},
	{keywords: []string{"Trend", "Demand"}, priority: model.PriorityMedium},
}

// Classify returns the priority for reason. Matching is case-sensitive
// substring matching on the reason exactly as received; nothing is trimmed or
// lowered, so upstream wording drift falls through to Low.
func Classify(reason string) model.Priority {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(reason, kw) {
				return r.priority
			}
		}
	}
	return model.PriorityLow
}
