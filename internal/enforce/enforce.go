// Package enforce validates whether a remediation skill measurably reduced
// struggle, by partitioning matching sessions into before/after cohorts
// around the skill's creation time and applying a fixed threshold policy.
// This is a heuristic, not a statistical test, and deliberately so.
package enforce

import (
	"strings"
	"time"

	"github.com/johns/session-intel/internal/session"
)

// Status is the lifecycle state of a remediation relative to session history.
// States are re-evaluated on every query and are never sticky.
type Status string

const (
	StatusPending          Status = "pending"
	StatusInsufficientData Status = "insufficient_data"
	StatusEffective        Status = "effective"
	StatusIgnored          Status = "ignored"
	StatusIneffective      Status = "ineffective"
)

// Threshold policy. A remediation is only ever credited when it was
// demonstrably used.
const (
	minCohort         = 10
	usageFloor        = 0.20
	reductionTarget   = 0.20
	noiseReductionPct = 0.05
)

// Remediation identifies a skill under evaluation: its name, when it was
// created, and the project/domain/intent slice it targets.
type Remediation struct {
	Name      string
	Project   string
	Domain    session.Domain
	Intent    session.Intent
	Triggers  []string // declared trigger keywords
	CreatedAt time.Time
}

// CohortStats summarizes one side of the before/after partition.
type CohortStats struct {
	Sessions       int
	AvgStruggle    float64
	AvgErrors      float64
	AvgRetries     float64
	AvgCorrections float64
}

// Result is the computed enforcement report. It is never persisted or cached;
// callers recompute it fresh on each query.
type Result struct {
	Remediation  string
	Status       Status
	Before       CohortStats
	After        CohortStats
	UsageRatio   float64
	ReductionPct float64
}

// SessionSource is the single external read this engine performs: all
// sessions matching a project/domain/intent slice.
type SessionSource interface {
	MatchingSessions(project string, domain session.Domain, intent session.Intent) ([]*session.Session, error)
}

// Evaluate partitions the remediation's matching sessions around its creation
// time and computes the effectiveness status.
func Evaluate(src SessionSource, rem Remediation) (Result, error) {
	sessions, err := src.MatchingSessions(rem.Project, rem.Domain, rem.Intent)
	if err != nil {
		return Result{}, err
	}
	return Compare(sessions, rem), nil
}

// Compare runs the cohort comparison over an already-loaded session list.
func Compare(sessions []*session.Session, rem Remediation) Result {
	var before, after []*session.Session
	for _, s := range sessions {
		if s.CreatedAt.Before(rem.CreatedAt) {
			before = append(before, s)
		} else {
			after = append(after, s)
		}
	}

	res := Result{
		Remediation: rem.Name,
		Before:      CohortStats{Sessions: len(before)},
		After:       CohortStats{Sessions: len(after)},
	}

	if len(before) == 0 {
		res.Status = StatusPending
		return res
	}
	if len(before) < minCohort || len(after) < minCohort {
		res.Status = StatusInsufficientData
		return res
	}

	res.Before = cohortStats(before)
	res.After = cohortStats(after)

	used := 0
	for _, s := range after {
		if SessionMatches(s, rem.Name, rem.Triggers) {
			used++
		}
	}
	res.UsageRatio = float64(used) / float64(len(after))

	if res.Before.AvgStruggle > 0 {
		res.ReductionPct = (res.Before.AvgStruggle - res.After.AvgStruggle) / res.Before.AvgStruggle
	}

	res.Status = decide(res.UsageRatio, res.ReductionPct)
	return res
}

// decide applies the status rules in order. Uncovered combinations (notably
// low usage with a large apparent reduction, likely confounded) resolve
// conservatively to ineffective.
func decide(usageRatio, reductionPct float64) Status {
	switch {
	case usageRatio < usageFloor && abs(reductionPct) < noiseReductionPct:
		return StatusIgnored
	case usageRatio >= usageFloor && reductionPct >= reductionTarget:
		return StatusEffective
	case usageRatio >= usageFloor:
		return StatusIneffective
	default:
		return StatusIneffective
	}
}

func cohortStats(sessions []*session.Session) CohortStats {
	cs := CohortStats{Sessions: len(sessions)}
	for _, s := range sessions {
		cs.AvgStruggle += s.StruggleScore
		cs.AvgErrors += float64(s.Counters.Errors)
		cs.AvgRetries += float64(s.Counters.Retries)
		cs.AvgCorrections += float64(s.Counters.Corrections)
	}
	n := float64(len(sessions))
	cs.AvgStruggle /= n
	cs.AvgErrors /= n
	cs.AvgRetries /= n
	cs.AvgCorrections /= n
	return cs
}

// SessionMatches reports whether a session's content references the
// remediation by name or by one of its trigger keywords.
func SessionMatches(s *session.Session, name string, triggers []string) bool {
	var b strings.Builder
	b.WriteString(s.FirstMessage)
	for _, m := range s.Messages {
		b.WriteByte('\n')
		b.WriteString(m.Preview)
	}
	return Matches(b.String(), name, triggers)
}

// Matches is the keyword/name predicate behind usage_ratio. Hyphenated skill
// names also match their space-separated spelling.
func Matches(content, name string, triggers []string) bool {
	lower := strings.ToLower(content)

	if n := strings.ToLower(name); n != "" {
		if strings.Contains(lower, n) || strings.Contains(lower, strings.ReplaceAll(n, "-", " ")) {
			return true
		}
	}
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
