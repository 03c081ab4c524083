package session

import "time"

// Intent classifies how the operator was working during a session.
type Intent string

const (
	IntentExecution    Intent = "execution"
	IntentPlanning     Intent = "planning"
	IntentDebug        Intent = "debug"
	IntentConfig       Intent = "config"
	IntentResearch     Intent = "research"
	IntentReview       Intent = "review"
	IntentContinuation Intent = "continuation"
	IntentStartup      Intent = "startup"
	IntentUnknown      Intent = "unknown"
)

// Domain classifies what subject matter a session concerned.
type Domain string

const (
	DomainUIDesign     Domain = "ui_design"
	DomainData         Domain = "data"
	DomainAPI          Domain = "api"
	DomainWorkflow     Domain = "workflow_automation"
	DomainInfraDeploy  Domain = "infra_deploy"
	DomainConfig       Domain = "config"
	DomainArchitecture Domain = "architecture"
	DomainMetadata     Domain = "metadata"
	DomainTestQA       Domain = "test_qa"
	DomainGeneral      Domain = "general"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn in a session transcript. Messages are immutable once
// appended; the session's message list is the single source of truth for all
// derived aggregates.
type Message struct {
	Seq          int
	Role         string
	Timestamp    time.Time
	Preview      string   // first ~300 chars of message text
	ToolNames    []string // tools invoked by this message, possibly empty
	FilePaths    []string // file paths referenced by tool inputs
	HasError     bool
	IsRetry      bool
	IsCorrection bool
	IsDiscovery  bool
}

// Counters holds per-session aggregate counts derived from the message list.
type Counters struct {
	Errors      int
	Retries     int
	Corrections int
	Discoveries int
	ToolCalls   int
}

// Session is one recorded interaction transcript with a coding assistant.
type Session struct {
	ID           string
	Project      string // opaque owning project identifier, may be empty
	FirstMessage string // first meaningful user message text
	Messages     []Message
	Counters     Counters

	Intent        Intent
	Domain        Domain
	StruggleScore float64

	// Resumed marks a session that continues a prior one. ContinuedFrom holds
	// the prior session's ID when it could be resolved.
	Resumed       bool
	ContinuedFrom string

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// New returns an empty session with default classification labels.
func New(id, project string) *Session {
	return &Session{
		ID:      id,
		Project: project,
		Intent:  IntentUnknown,
		Domain:  DomainGeneral,
	}
}

// Append adds a message to the session, assigning the next sequence number
// and updating the aggregate counters. Sequence numbers are dense: the nth
// appended message always gets seq n-1.
func (s *Session) Append(m Message) {
	m.Seq = len(s.Messages)
	s.Messages = append(s.Messages, m)
	s.count(m)
}

// Recount recomputes all aggregate counters from the message list.
func (s *Session) Recount() {
	s.Counters = Counters{}
	for _, m := range s.Messages {
		s.count(m)
	}
}

func (s *Session) count(m Message) {
	if m.HasError {
		s.Counters.Errors++
	}
	if m.IsRetry {
		s.Counters.Retries++
	}
	if m.IsCorrection {
		s.Counters.Corrections++
	}
	if m.IsDiscovery {
		s.Counters.Discoveries++
	}
	s.Counters.ToolCalls += len(m.ToolNames)
}

// ToolShape returns read, write and execute call counts across all messages,
// bucketed by tool name.
func (s *Session) ToolShape() (reads, writes, execs int) {
	for _, m := range s.Messages {
		for _, name := range m.ToolNames {
			switch name {
			case "Read", "Glob", "Grep":
				reads++
			case "Write", "Edit", "NotebookEdit":
				writes++
			case "Bash":
				execs++
			}
		}
	}
	return reads, writes, execs
}

// ToolPaths returns all file paths referenced by tool calls, in message order.
func (s *Session) ToolPaths() []string {
	var paths []string
	for _, m := range s.Messages {
		paths = append(paths, m.FilePaths...)
	}
	return paths
}

// Lookup resolves a session by ID. Used to walk continued_from chains.
type Lookup func(id string) *Session

// EffectiveIntent resolves a continuation back to the underlying intent being
// continued, walking continued_from references. Broken or cyclic chains
// resolve to unknown.
func EffectiveIntent(s *Session, lookup Lookup) Intent {
	seen := make(map[string]bool)
	cur := s
	for cur.Intent == IntentContinuation {
		if cur.ContinuedFrom == "" || lookup == nil || seen[cur.ID] {
			return IntentUnknown
		}
		seen[cur.ID] = true
		next := lookup(cur.ContinuedFrom)
		if next == nil {
			return IntentUnknown
		}
		cur = next
	}
	if cur.Intent == "" {
		return IntentUnknown
	}
	return cur.Intent
}

// Intents lists every intent label in a stable order.
func Intents() []Intent {
	return []Intent{
		IntentExecution, IntentPlanning, IntentDebug, IntentConfig,
		IntentResearch, IntentReview, IntentContinuation, IntentStartup,
		IntentUnknown,
	}
}

// Domains lists every domain label in classifier priority order, general last.
func Domains() []Domain {
	return []Domain{
		DomainUIDesign, DomainData, DomainAPI, DomainWorkflow,
		DomainInfraDeploy, DomainConfig, DomainArchitecture, DomainMetadata,
		DomainTestQA, DomainGeneral,
	}
}
