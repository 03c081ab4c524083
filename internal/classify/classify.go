// Package classify derives intent and domain labels for a session from its
// first message text and tool-usage shape. Classification is a pure function
// of session content; callers persist the returned labels.
package classify

import (
	"strings"

	"github.com/johns/session-intel/internal/session"
)

// Classify returns the intent and domain for a session. prior is the session
// being resumed, if any; its intent is propagated rather than re-derived.
// Sessions with fewer than 2 messages carry too little signal and default to
// unknown/general without running either cascade.
func Classify(s *session.Session, prior *session.Session) (session.Intent, session.Domain) {
	if len(s.Messages) < 2 {
		return session.IntentUnknown, session.DomainGeneral
	}
	return Intent(s, prior), Domain(s.FirstMessage, s.ToolPaths())
}

// Intent runs the intent rule cascade. The two axes are fully independent;
// see Domain for the other half.
func Intent(s *session.Session, prior *session.Session) session.Intent {
	if s.Resumed {
		if prior != nil && prior.Intent != "" && prior.Intent != session.IntentUnknown {
			return prior.Intent
		}
		// Resumption without a resolvable prior: scored later by walking
		// the continued_from chain.
		return session.IntentContinuation
	}

	lower := strings.ToLower(s.FirstMessage)
	for _, rule := range intentRules {
		if containsAny(lower, rule.keywords) {
			return rule.intent
		}
	}

	// No keyword hit: fall back to tool-usage shape.
	reads, writes, _ := s.ToolShape()
	switch {
	case writes > 2*reads:
		return session.IntentExecution
	case reads > 2*writes && containsAny(lower, interrogatives):
		return session.IntentResearch
	default:
		return session.IntentUnknown
	}
}

// Domain runs the domain rule cascade over the first message and the file
// paths referenced by tool calls. When the message matches keywords for more
// than one domain, the domain holding the majority of tool-referenced paths
// wins; any exact tie resolves to general.
func Domain(firstMessage string, toolPaths []string) session.Domain {
	lower := strings.ToLower(firstMessage)

	var matched []domainRule
	for _, rule := range domainRules {
		if containsAny(lower, rule.keywords) || anyPathMatches(toolPaths, rule.paths) {
			matched = append(matched, rule)
		}
	}

	switch len(matched) {
	case 0:
		return session.DomainGeneral
	case 1:
		return matched[0].domain
	}

	return dominant(matched, toolPaths)
}

// dominant picks the matched domain referenced by a strict majority of tool
// paths. Ties, including the zero-path case, resolve to general.
func dominant(matched []domainRule, toolPaths []string) session.Domain {
	best := session.DomainGeneral
	bestCount, tied := 0, false

	for _, rule := range matched {
		count := 0
		for _, p := range toolPaths {
			if pathMatches(p, rule.paths) {
				count++
			}
		}
		switch {
		case count > bestCount:
			best, bestCount, tied = rule.domain, count, false
		case count == bestCount:
			tied = true
		}
	}

	if tied || bestCount == 0 {
		return session.DomainGeneral
	}
	return best
}

func containsAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func anyPathMatches(paths, patterns []string) bool {
	for _, p := range paths {
		if pathMatches(p, patterns) {
			return true
		}
	}
	return false
}

func pathMatches(path string, patterns []string) bool {
	lower := strings.ToLower(path)
	for _, pat := range patterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}
