package insight

// Status strings emitted in progress events. The client's phase map keys on
// these exact strings, so they are part of the wire contract. An unknown
// status must be treated as a display no-op, never an error.
const (
	StatusResearching = "Researching public context"
	StatusPassOne     = "Running pass 1 of 4: psychological baseline"
	StatusPassTwo     = "Running pass 2 of 4: emotional dynamics"
	StatusPassThree   = "Running pass 3 of 4: behavioral patterns"
	StatusPassFour    = "Running pass 4 of 4: synthesis"

	StatusSubtext       = "Analyzing subtext and hidden dynamics"
	StatusCompatibility = "Scoring interpersonal compatibility"
	StatusRecon         = "Gathering conversational signals"
	StatusDeepRecon     = "Correlating recon findings"
)
