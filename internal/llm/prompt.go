package llm

import (
	"fmt"
	"strings"

	"github.com/johns/session-intel/internal/extract"
)

const maxSignalChars = 8000

const classifySystemPrompt = `You analyze struggle signals extracted from AI coding session transcripts and classify the pain points.

For each distinct pain point, provide:
- category: one of (ui/design, data, api, workflow, infra, config, architecture, metadata, test)
- severity: 1-5 (where 5 = critical skill gap, 1 = minor issue)
- description: one sentence describing what goes wrong
- sessions: list of affected session IDs

Return ONLY valid JSON with this exact structure (no explanatory text before or after):
{
  "pain_points": [
    {
      "category": "workflow",
      "severity": 4,
      "description": "Branch isolation is not respected",
      "sessions": ["766aaac"]
    }
  ],
  "summary": "Brief overview of what the signals show"
}`

func buildClassifyPrompt(signals []extract.Signal) string {
	var b strings.Builder
	b.WriteString("SIGNALS:\n")
	for _, sig := range signals {
		fmt.Fprintf(&b, "- [%s/%s] session %s (%s): %s\n",
			sig.Type, sig.Severity, sig.SessionID, sig.Strategy, sig.Description)
	}
	return clamp(b.String(), maxSignalChars)
}

func buildSkillPrompt(project string, pp PainPoint, existing []string) string {
	existingList := "(none)"
	if len(existing) > 0 {
		existingList = "- " + strings.Join(existing, "\n- ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing a skill gap in the %s project.\n\n", project)
	b.WriteString("Pain point:\n")
	fmt.Fprintf(&b, "- Category: %s\n", pp.Category)
	fmt.Fprintf(&b, "- Severity: %d/5\n", pp.Severity)
	fmt.Fprintf(&b, "- Description: %s\n", pp.Description)
	fmt.Fprintf(&b, "- Affected sessions: %s\n\n", strings.Join(pp.Sessions, ", "))
	fmt.Fprintf(&b, "Existing skills that may overlap:\n%s\n\n", existingList)
	b.WriteString(`Decide one of:
1. CREATE - New skill needed (no existing skill covers this)
2. UPDATE - Existing skill needs enhancement
3. NONE - Existing skills should work (enforcement issue, not skill gap)

Return ONLY valid JSON:
{
  "action": "create|update|none",
  "skill_name": "proposed-skill-name" or "existing-skill-name",
  "reasoning": "why this action (2-3 sentences)",
  "skill_content": "SKILL.md markdown content" or null
}

Make skill_content actionable and specific. The assistant should know exactly when to apply the skill.`)
	return b.String()
}

func clamp(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}
