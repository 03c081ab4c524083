package extract

// Type classifies what kind of evidence a signal carries.
type Type string

const (
	TypeStruggle   Type = "struggle"
	TypeSuccess    Type = "success"
	TypeCorrection Type = "correction"
	TypeDiscovery  Type = "discovery"
)

// Severity is an ordinal derived from match strength.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Strategy names, one per extraction strategy.
const (
	StrategyRetryChain      = "retry_chain"
	StrategyErrorResolution = "error_resolution"
	StrategyUserCorrection  = "user_correction"
	StrategyToolRepetition  = "tool_repetition"
)

// Signal is one discrete friction (or positive) pattern extracted from a
// session. Signals are immutable once created and are never deduplicated
// across strategies: overlapping spans from different strategies are
// independent evidence.
type Signal struct {
	SessionID   string
	Strategy    string
	Type        Type
	Category    string // assigned later by an external classifier
	Severity    Severity
	StartSeq    int
	EndSeq      int
	Description string
}
