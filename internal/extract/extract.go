// Package extract scans a session's ordered message sequence for friction
// patterns using four independent strategies. Each strategy is a single
// linear scan and never consults another strategy's output. Message flags
// are trusted as-is; upstream flagging is not re-validated here.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/johns/session-intel/internal/session"
)

const (
	minRetryChain    = 3
	resolutionWindow = 10 // messages to look ahead for a discovery after an error
	minToolRepeats   = 3
	toolWindow       = 5 // sliding window size for tool repetition
	escalateSessions = 3 // sessions sharing a correction pattern before severity escalates
)

// All runs every strategy over the session. priorSignals are previously
// recorded signals for the same project, consumed only by the user-correction
// strategy for cross-session severity escalation.
func All(s *session.Session, priorSignals []Signal) []Signal {
	var out []Signal
	out = append(out, RetryChains(s)...)
	out = append(out, ErrorResolutions(s)...)
	out = append(out, UserCorrections(s, priorSignals)...)
	out = append(out, ToolRepetitions(s)...)
	return out
}

// RetryChains finds runs of 3 or more consecutive assistant messages each
// flagged as a retry. A run is closed by any non-retry message or by the end
// of the sequence. Severity scales with run length.
func RetryChains(s *session.Session) []Signal {
	var out []Signal
	runStart, runLen := -1, 0

	flush := func() {
		if runLen >= minRetryChain {
			out = append(out, Signal{
				SessionID:   s.ID,
				Strategy:    StrategyRetryChain,
				Type:        TypeStruggle,
				Severity:    runSeverity(runLen),
				StartSeq:    runStart,
				EndSeq:      runStart + runLen - 1,
				Description: fmt.Sprintf("%d consecutive assistant retries", runLen),
			})
		}
		runStart, runLen = -1, 0
	}

	for _, m := range s.Messages {
		if m.Role == session.RoleAssistant && m.IsRetry {
			if runLen == 0 {
				runStart = m.Seq
			}
			runLen++
			continue
		}
		flush()
	}
	flush()

	return out
}

// ErrorResolutions pairs each error-flagged message with the first
// discovery-flagged message within the next resolutionWindow messages.
// Errors with no discovery in the window are silently dropped.
func ErrorResolutions(s *session.Session) []Signal {
	var out []Signal
	msgs := s.Messages

	for i, m := range msgs {
		if !m.HasError {
			continue
		}
		for j := i + 1; j < len(msgs) && j <= i+resolutionWindow; j++ {
			if !msgs[j].IsDiscovery {
				continue
			}
			gap := j - i
			severity := SeverityMedium
			if gap <= 5 {
				severity = SeverityLow
			}
			out = append(out, Signal{
				SessionID:   s.ID,
				Strategy:    StrategyErrorResolution,
				Type:        TypeDiscovery,
				Severity:    severity,
				StartSeq:    m.Seq,
				EndSeq:      msgs[j].Seq,
				Description: fmt.Sprintf("error resolved after %d messages", gap),
			})
			break
		}
	}

	return out
}

// UserCorrections emits one signal per correction-flagged message, spanning
// the immediately preceding assistant message (the thing being corrected)
// through the immediately following assistant message (the fix, if present).
// Severity is medium unless the same underlying pattern already recurred in
// enough other sessions of the project, passed in as priorSignals.
func UserCorrections(s *session.Session, priorSignals []Signal) []Signal {
	var out []Signal
	msgs := s.Messages

	for i, m := range msgs {
		if !m.IsCorrection {
			continue
		}

		start, end := m.Seq, m.Seq
		if i > 0 && msgs[i-1].Role == session.RoleAssistant {
			start = msgs[i-1].Seq
		}
		if i+1 < len(msgs) && msgs[i+1].Role == session.RoleAssistant {
			end = msgs[i+1].Seq
		}

		desc := m.Preview
		if desc == "" {
			desc = "user correction"
		}

		severity := SeverityMedium
		if recursAcrossSessions(s.ID, desc, priorSignals) {
			severity = SeverityHigh
		}

		out = append(out, Signal{
			SessionID:   s.ID,
			Strategy:    StrategyUserCorrection,
			Type:        TypeCorrection,
			Severity:    severity,
			StartSeq:    start,
			EndSeq:      end,
			Description: desc,
		})
	}

	return out
}

// recursAcrossSessions reports whether prior correction signals from other
// sessions share the same underlying pattern, judged by significant-word
// overlap of the correction text. The current session plus escalateSessions-1
// distinct prior sessions trips the escalation.
func recursAcrossSessions(sessionID, desc string, prior []Signal) bool {
	words := significantWords(desc)
	if len(words) == 0 {
		return false
	}

	matched := make(map[string]bool)
	for _, sig := range prior {
		if sig.Strategy != StrategyUserCorrection || sig.SessionID == sessionID {
			continue
		}
		if wordOverlap(words, significantWords(sig.Description)) >= 2 {
			matched[sig.SessionID] = true
		}
	}

	return len(matched) >= escalateSessions-1
}

// ToolRepetitions finds the same tool invoked minToolRepeats or more times
// within any toolWindow-message sliding window. Overlapping windows over one
// underlying repetition merge into a single signal: the run extends while the
// tool reappears within the lookahead and stops on the first gap larger than
// the window.
func ToolRepetitions(s *session.Session) []Signal {
	occurrences := make(map[string][]int) // tool name -> seqs of invoking messages
	var order []string

	for _, m := range s.Messages {
		seen := make(map[string]bool)
		for _, name := range m.ToolNames {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			if _, ok := occurrences[name]; !ok {
				order = append(order, name)
			}
			occurrences[name] = append(occurrences[name], m.Seq)
		}
	}
	sort.Strings(order)

	var out []Signal
	for _, tool := range order {
		out = append(out, toolRuns(s.ID, tool, occurrences[tool])...)
	}
	return out
}

// toolRuns chains a tool's occurrence seqs into merged runs and emits one
// signal per run that holds minToolRepeats occurrences inside a
// toolWindow-message span somewhere.
func toolRuns(sessionID, tool string, seqs []int) []Signal {
	var out []Signal

	flush := func(run []int) {
		if !windowQualifies(run) {
			return
		}
		out = append(out, Signal{
			SessionID:   sessionID,
			Strategy:    StrategyToolRepetition,
			Type:        TypeStruggle,
			Severity:    runSeverity(len(run)),
			StartSeq:    run[0],
			EndSeq:      run[len(run)-1],
			Description: fmt.Sprintf("tool %q invoked %d times", tool, len(run)),
		})
	}

	var run []int
	for _, seq := range seqs {
		if len(run) > 0 && seq-run[len(run)-1] > toolWindow {
			flush(run)
			run = nil
		}
		run = append(run, seq)
	}
	if len(run) > 0 {
		flush(run)
	}

	return out
}

// windowQualifies reports whether some minToolRepeats consecutive occurrences
// fit inside toolWindow consecutive messages.
func windowQualifies(run []int) bool {
	for i := 0; i+minToolRepeats-1 < len(run); i++ {
		if run[i+minToolRepeats-1]-run[i] < toolWindow {
			return true
		}
	}
	return false
}

// runSeverity maps a run length to severity: 3-4 low, 5-7 medium, 8+ high.
func runSeverity(n int) Severity {
	switch {
	case n >= 8:
		return SeverityHigh
	case n >= 5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// significantWords extracts lowercase words of 4+ chars.
func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) >= 4 {
			out = append(out, w)
		}
	}
	return out
}

// wordOverlap counts shared words between two sets.
func wordOverlap(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	count := 0
	for _, w := range b {
		if set[w] {
			count++
			set[w] = false
		}
	}
	return count
}
