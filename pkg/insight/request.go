package insight

import (
	"encoding/json"
	"strings"
)

// Request is the payload for starting an analysis of any kind. Seed fields
// carry results accumulated by the client across the recon saga; the server
// holds no state between requests.
type Request struct {
	// Conversation is the transcript under analysis.
	Conversation string `json:"conversation"`

	// Participants optionally names the conversation participants.
	Participants []string `json:"participants,omitempty"`

	// ReconSeed is a prior recon result. Required for deep recon, optional
	// for the main analysis kinds.
	ReconSeed json.RawMessage `json:"recon_result,omitempty"`

	// DeepReconSeed is a prior deep recon result, optional.
	DeepReconSeed json.RawMessage `json:"deep_recon_result,omitempty"`

	// RequestedBy optionally identifies the requester for audit logging.
	RequestedBy string `json:"requested_by,omitempty"`
}

// Validate checks the request against the requirements of the given kind.
// Failures are reported before any stream is opened.
func (r *Request) Validate(kind Kind) error {
	if strings.TrimSpace(r.Conversation) == "" {
		return &ValidationError{Details: "conversation is required"}
	}
	if kind == KindDeepRecon && len(r.ReconSeed) == 0 {
		return &ValidationError{Details: "deep recon requires a recon_result seed"}
	}
	return nil
}
