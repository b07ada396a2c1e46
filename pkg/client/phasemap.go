package client

import "github.com/ahrav/insight-stream/pkg/insight"

// PhaseRange declares what a known status string does to displayed progress:
// jump to Start immediately and ease toward Ceiling until the next
// checkpoint.
type PhaseRange struct {
	Start   float64
	Ceiling float64
}

// phaseMaps is the static per-kind lookup from status text to progress
// range. The status strings must match the server's exactly; a status not in
// the table is a display no-op, never an error.
var phaseMaps = map[insight.Kind]map[string]PhaseRange{
	insight.KindCPS: {
		insight.StatusResearching: {Start: 5, Ceiling: 18},
		insight.StatusPassOne:     {Start: 20, Ceiling: 40},
		insight.StatusPassTwo:     {Start: 42, Ceiling: 60},
		insight.StatusPassThree:   {Start: 62, Ceiling: 80},
		insight.StatusPassFour:    {Start: 82, Ceiling: 95},
	},
	insight.KindSubtext: {
		insight.StatusSubtext: {Start: 12, Ceiling: 90},
	},
	insight.KindCompatibility: {
		insight.StatusCompatibility: {Start: 12, Ceiling: 90},
	},
	insight.KindRecon: {
		insight.StatusRecon: {Start: 10, Ceiling: 85},
	},
	insight.KindDeepRecon: {
		insight.StatusDeepRecon: {Start: 15, Ceiling: 90},
	},
}

// LookupPhase returns the progress range mapped to a status string for the
// kind. The second return is false for unknown statuses.
func LookupPhase(kind insight.Kind, status string) (PhaseRange, bool) {
	m, ok := phaseMaps[kind]
	if !ok {
		return PhaseRange{}, false
	}
	pr, ok := m[status]
	return pr, ok
}
