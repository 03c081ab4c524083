// Package report renders analysis and enforcement results as markdown.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/johns/session-intel/internal/enforce"
	"github.com/johns/session-intel/internal/extract"
	"github.com/johns/session-intel/internal/llm"
	"github.com/johns/session-intel/internal/store"
)

// SkillRecommendation pairs a pain point with the model's proposed action.
type SkillRecommendation struct {
	PainPoint      llm.PainPoint
	Recommendation llm.Recommendation
}

// AnalysisData holds everything needed to render a project analysis report.
type AnalysisData struct {
	Project         string
	Strategy        string
	GeneratedAt     time.Time
	Stats           *store.ProjectStats
	Classification  *llm.Classification // nil when LLM refinement is off
	Recommendations []SkillRecommendation
	Signals         []extract.Signal
}

// Analysis renders the full markdown analysis report.
func Analysis(d AnalysisData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session Intelligence Analysis: %s\n\n", d.Project)
	fmt.Fprintf(&b, "**Generated:** %s\n", d.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Strategy:** %s\n\n", d.Strategy)
	b.WriteString("---\n\n")

	b.WriteString("## Project Stats\n\n")
	fmt.Fprintf(&b, "- **Total sessions:** %d\n", d.Stats.TotalSessions)
	fmt.Fprintf(&b, "- **High struggle:** %d\n\n", d.Stats.HighStruggle)

	b.WriteString("### By Intent\n\n")
	writeGroupStats(&b, d.Stats.ByIntent)
	b.WriteString("\n### By Domain\n\n")
	writeGroupStats(&b, d.Stats.ByDomain)

	if len(d.Stats.TopStruggle) > 0 {
		b.WriteString("\n### Highest Struggle\n\n")
		b.WriteString("| Session | Intent | Domain | Score | First Message |\n")
		b.WriteString("|---------|--------|--------|-------|---------------|\n")
		for _, ts := range d.Stats.TopStruggle {
			fmt.Fprintf(&b, "| %s | %s | %s | %.1f | %s |\n",
				shortID(ts.ID), ts.Intent, ts.Domain, ts.StruggleScore, escapeCell(ts.Preview))
		}
	}

	b.WriteString("\n---\n\n## Classification Summary\n\n")
	if d.Classification != nil {
		fmt.Fprintf(&b, "%s\n\n", d.Classification.Summary)
		fmt.Fprintf(&b, "**Pain Points Found:** %d\n", len(d.Classification.PainPoints))
		for _, pp := range d.Classification.PainPoints {
			fmt.Fprintf(&b, "\n- **%s** (severity %d/5): %s\n", pp.Category, pp.Severity, pp.Description)
			if len(pp.Sessions) > 0 {
				fmt.Fprintf(&b, "  - sessions: %s\n", strings.Join(pp.Sessions, ", "))
			}
		}
	} else {
		b.WriteString("(LLM refinement disabled; raw signals only)\n")
	}

	b.WriteString("\n---\n\n## Skill Recommendations\n")
	if len(d.Recommendations) == 0 {
		b.WriteString("\n(no recommendations generated)\n")
	}
	for i, rec := range d.Recommendations {
		fmt.Fprintf(&b, "\n### %d. [%s] %s\n\n",
			i+1, strings.ToUpper(rec.Recommendation.Action), rec.Recommendation.SkillName)
		fmt.Fprintf(&b, "**Category:** %s\n", rec.PainPoint.Category)
		fmt.Fprintf(&b, "**Severity:** %d/5\n", rec.PainPoint.Severity)
		fmt.Fprintf(&b, "**Description:** %s\n\n", rec.PainPoint.Description)
		fmt.Fprintf(&b, "**Reasoning:** %s\n", rec.Recommendation.Reasoning)
		if rec.Recommendation.SkillContent != "" {
			fmt.Fprintf(&b, "\n**Proposed SKILL.md:**\n\n```markdown\n%s\n```\n", rec.Recommendation.SkillContent)
		}
	}

	b.WriteString("\n---\n\n## Raw Signals\n\n")
	if len(d.Signals) == 0 {
		b.WriteString("(none)\n")
	}
	for _, sig := range d.Signals {
		fmt.Fprintf(&b, "- [%s/%s] session %s seq %d-%d (%s): %s\n",
			sig.Type, sig.Severity, shortID(sig.SessionID), sig.StartSeq, sig.EndSeq,
			sig.Strategy, sig.Description)
	}

	return b.String()
}

// Enforcement renders a remediation effectiveness report.
func Enforcement(rem enforce.Remediation, res enforce.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Enforcement Report: %s / %s\n\n", rem.Project, rem.Name)
	fmt.Fprintf(&b, "**Created:** %s\n", rem.CreatedAt.Format("2006-01-02 15:04:05"))
	if len(rem.Triggers) > 0 {
		fmt.Fprintf(&b, "**Triggers:** %s\n", strings.Join(rem.Triggers, ", "))
	}
	fmt.Fprintf(&b, "**Scope:** %s / %s\n\n", rem.Domain, rem.Intent)

	b.WriteString("**Sessions in scope:**\n\n")
	fmt.Fprintf(&b, "- Before: %d sessions\n", res.Before.Sessions)
	fmt.Fprintf(&b, "- After:  %d sessions\n\n", res.After.Sessions)

	fmt.Fprintf(&b, "**Status:** %s\n\n", strings.ToUpper(string(res.Status)))

	switch res.Status {
	case enforce.StatusPending:
		b.WriteString("No sessions since the remediation was created. Cannot measure effectiveness yet.\n")
	case enforce.StatusInsufficientData:
		b.WriteString("Not enough sessions on both sides of the creation boundary to measure effectiveness.\n")
	default:
		b.WriteString("**Effectiveness:**\n\n")
		fmt.Fprintf(&b, "- Avg struggle: %.2f before, %.2f after\n", res.Before.AvgStruggle, res.After.AvgStruggle)
		fmt.Fprintf(&b, "- Reduction: %.1f%%\n", res.ReductionPct*100)
		fmt.Fprintf(&b, "- Usage ratio: %.1f%%\n\n", res.UsageRatio*100)
		b.WriteString("**Detailed Metrics:**\n\n")
		fmt.Fprintf(&b, "- Error rate: %.2f before, %.2f after\n", res.Before.AvgErrors, res.After.AvgErrors)
		fmt.Fprintf(&b, "- Retry rate: %.2f before, %.2f after\n", res.Before.AvgRetries, res.After.AvgRetries)
		fmt.Fprintf(&b, "- Correction rate: %.2f before, %.2f after\n", res.Before.AvgCorrections, res.After.AvgCorrections)

		if res.Status == enforce.StatusIgnored {
			b.WriteString("\n**Enforcement issue:** the remediation exists but sessions do not reference it.\n")
			b.WriteString("Make trigger conditions more explicit, or surface the skill where the work starts.\n")
		}
	}

	return b.String()
}

// Filename returns the timestamped report filename for a project analysis.
func Filename(project, strategy string, t time.Time) string {
	return fmt.Sprintf("%s-analysis-%s-%s.md", project, strategy, t.Format("20060102-150405"))
}

func writeGroupStats(b *strings.Builder, rows []store.GroupStat) {
	if len(rows) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for _, gs := range rows {
		fmt.Fprintf(b, "- %s: %d sessions, avg struggle %.1f\n", gs.Label, gs.Sessions, gs.AvgStruggle)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "\\|")
}
