package report

import (
	"strings"
	"testing"
	"time"

	"github.com/johns/session-intel/internal/enforce"
	"github.com/johns/session-intel/internal/extract"
	"github.com/johns/session-intel/internal/llm"
	"github.com/johns/session-intel/internal/session"
	"github.com/johns/session-intel/internal/store"
)

func TestAnalysis_FullReport(t *testing.T) {
	d := AnalysisData{
		Project:     "my-app",
		Strategy:    "all",
		GeneratedAt: time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC),
		Stats: &store.ProjectStats{
			Project:       "my-app",
			TotalSessions: 42,
			HighStruggle:  3,
			ByIntent: []store.GroupStat{
				{Label: "debug", Sessions: 12, AvgStruggle: 8.5},
				{Label: "execution", Sessions: 30, AvgStruggle: 2.1},
			},
			ByDomain: []store.GroupStat{
				{Label: "api", Sessions: 20, AvgStruggle: 6.0},
			},
			TopStruggle: []store.TopSession{
				{ID: "766aaac1234", Intent: "debug", Domain: "api", StruggleScore: 31.0, Preview: "Fix the | timeout"},
			},
		},
		Classification: &llm.Classification{
			Summary: "API handling dominates friction.",
			PainPoints: []llm.PainPoint{
				{Category: "api", Severity: 4, Description: "timeouts misconfigured", Sessions: []string{"766aaac"}},
			},
		},
		Recommendations: []SkillRecommendation{
			{
				PainPoint: llm.PainPoint{Category: "api", Severity: 4, Description: "timeouts misconfigured"},
				Recommendation: llm.Recommendation{
					Action: "create", SkillName: "api-timeout-tuning",
					Reasoning: "No existing skill covers this.", SkillContent: "# api-timeout-tuning",
				},
			},
		},
		Signals: []extract.Signal{
			{SessionID: "766aaac1234", Strategy: "retry_chain", Type: extract.TypeStruggle,
				Severity: extract.SeverityHigh, StartSeq: 3, EndSeq: 12, Description: "10 consecutive retries"},
		},
	}

	md := Analysis(d)

	for _, want := range []string{
		"# Session Intelligence Analysis: my-app",
		"**Generated:** 2026-04-02 10:30:00",
		"**Total sessions:** 42",
		"**High struggle:** 3",
		"- debug: 12 sessions, avg struggle 8.5",
		"API handling dominates friction.",
		"**Pain Points Found:** 1",
		"### 1. [CREATE] api-timeout-tuning",
		"```markdown\n# api-timeout-tuning\n```",
		"seq 3-12",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Session IDs are shortened and table cells escaped.
	if !strings.Contains(md, "| 766aaac1 |") {
		t.Error("top-struggle session ID not shortened")
	}
	if !strings.Contains(md, `Fix the \| timeout`) {
		t.Error("pipe in preview not escaped")
	}
}

func TestAnalysis_NoLLM(t *testing.T) {
	md := Analysis(AnalysisData{
		Project:     "my-app",
		Strategy:    "a",
		GeneratedAt: time.Now(),
		Stats:       &store.ProjectStats{Project: "my-app"},
	})

	if !strings.Contains(md, "refinement disabled") {
		t.Error("missing disabled notice")
	}
	if !strings.Contains(md, "(no recommendations generated)") {
		t.Error("missing empty recommendations marker")
	}
	if !strings.Contains(md, "(none)") {
		t.Error("missing empty signal marker")
	}
}

func TestEnforcement_Effective(t *testing.T) {
	rem := enforce.Remediation{
		Name:      "api-timeout-tuning",
		Project:   "my-app",
		Domain:    session.DomainAPI,
		Intent:    session.IntentDebug,
		Triggers:  []string{"timeout"},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	res := enforce.Result{
		Remediation:  "api-timeout-tuning",
		Status:       enforce.StatusEffective,
		Before:       enforce.CohortStats{Sessions: 15, AvgStruggle: 28.3, AvgErrors: 4.2},
		After:        enforce.CohortStats{Sessions: 12, AvgStruggle: 12.1, AvgErrors: 1.5},
		UsageRatio:   0.8,
		ReductionPct: 0.5724,
	}

	md := Enforcement(rem, res)
	for _, want := range []string{
		"# Enforcement Report: my-app / api-timeout-tuning",
		"**Status:** EFFECTIVE",
		"- Before: 15 sessions",
		"Avg struggle: 28.30 before, 12.10 after",
		"Reduction: 57.2%",
		"Usage ratio: 80.0%",
		"Error rate: 4.20 before, 1.50 after",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestEnforcement_PendingAndIgnored(t *testing.T) {
	rem := enforce.Remediation{Name: "x", Project: "p", CreatedAt: time.Now()}

	pending := Enforcement(rem, enforce.Result{Status: enforce.StatusPending})
	if !strings.Contains(pending, "Cannot measure effectiveness yet") {
		t.Error("missing pending explanation")
	}

	ignored := Enforcement(rem, enforce.Result{
		Status: enforce.StatusIgnored,
		Before: enforce.CohortStats{Sessions: 12},
		After:  enforce.CohortStats{Sessions: 12},
	})
	if !strings.Contains(ignored, "Enforcement issue") {
		t.Error("missing enforcement issue advice")
	}
}

func TestFilename(t *testing.T) {
	got := Filename("my-app", "all", time.Date(2026, 4, 2, 10, 30, 5, 0, time.UTC))
	want := "my-app-analysis-all-20260402-103005.md"
	if got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}
}
