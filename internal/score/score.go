// Package score computes the intent-adjusted struggle score for a session.
// The score is a fixed linear combination of the error, retry and correction
// counters, with the weights selected by intent. No clipping, no rounding,
// no dependency on domain.
package score

import "github.com/johns/session-intel/internal/session"

// Interpretation thresholds. Consumers may override them; the engine never
// adapts them automatically.
const (
	DefaultHighThreshold   = 20.0
	DefaultMediumThreshold = 5.0
)

// Struggle returns the struggle score for the given intent and counters.
// Discovery counts never contribute. Continuation must be resolved to its
// underlying intent before calling; an unresolved continuation scores with
// the unknown formula.
func Struggle(intent session.Intent, c session.Counters) float64 {
	errors := float64(c.Errors)
	retries := float64(c.Retries)
	corrections := float64(c.Corrections)

	switch intent {
	case session.IntentExecution:
		return errors*2 + retries*2 + corrections*3
	case session.IntentPlanning:
		return corrections*3 + retries*0.25
	case session.IntentDebug:
		return retries + corrections*3
	case session.IntentConfig:
		return retries*2 + errors
	case session.IntentResearch, session.IntentReview:
		return corrections * 3
	case session.IntentStartup:
		return 0
	default:
		// unknown and unresolved continuation
		return errors + retries + corrections*2
	}
}

// ForSession resolves the session's effective intent (walking continued_from
// for continuations) and scores its counters.
func ForSession(s *session.Session, lookup session.Lookup) float64 {
	return Struggle(session.EffectiveIntent(s, lookup), s.Counters)
}

// Level buckets a score for report consumers: "high" above 20, "medium" from
// 5 through 20, "low" below 5.
func Level(score float64) string {
	return LevelWith(score, DefaultHighThreshold, DefaultMediumThreshold)
}

// LevelWith buckets a score using caller-supplied thresholds.
func LevelWith(score, high, medium float64) string {
	switch {
	case score > high:
		return "high"
	case score >= medium:
		return "medium"
	default:
		return "low"
	}
}
