// Package insight defines the wire contract shared by the analysis server
// and the client SDK: analysis kinds, stream events, and request payloads.
package insight

import "fmt"

// Kind identifies an analysis job kind. At most one live operation exists
// per kind on a client; the kind doubles as the operation key.
type Kind string

const (
	// KindCPS is the comprehensive personality scan: an optional research
	// pre-pass followed by four required analysis passes.
	KindCPS Kind = "cps"

	// KindSubtext analyzes hidden dynamics and unspoken meaning in a
	// conversation. Single phase.
	KindSubtext Kind = "subtext"

	// KindCompatibility scores interpersonal compatibility between the
	// participants. Single phase.
	KindCompatibility Kind = "compatibility"

	// KindRecon is the lightweight first pass of the multi-request saga.
	// Its result seeds deep recon and the main passes; the client holds the
	// accumulated state between requests.
	KindRecon Kind = "recon"

	// KindDeepRecon refines a recon result. Requires a recon seed.
	KindDeepRecon Kind = "deep_recon"
)

func (k Kind) String() string { return string(k) }

// Label returns the human-readable name shown for operations of this kind.
func (k Kind) Label() string {
	switch k {
	case KindCPS:
		return "Comprehensive Personality Scan"
	case KindSubtext:
		return "Subtext Analysis"
	case KindCompatibility:
		return "Compatibility Report"
	case KindRecon:
		return "Recon"
	case KindDeepRecon:
		return "Deep Recon"
	default:
		return string(k)
	}
}

// ParseKind converts a string to a Kind. Unknown kinds are rejected before
// any stream is opened.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCPS, KindSubtext, KindCompatibility, KindRecon, KindDeepRecon:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown analysis kind %q", s)
	}
}

// Kinds returns every supported analysis kind.
func Kinds() []Kind {
	return []Kind{KindCPS, KindSubtext, KindCompatibility, KindRecon, KindDeepRecon}
}
