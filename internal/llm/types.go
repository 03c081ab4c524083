package llm

// PainPoint is one distinct recurring problem distilled from raw signals.
type PainPoint struct {
	Category    string   `json:"category"`
	Severity    int      `json:"severity"` // 1-5
	Description string   `json:"description"`
	Sessions    []string `json:"sessions"`
}

// Classification groups extracted signals into pain points.
type Classification struct {
	PainPoints []PainPoint `json:"pain_points"`
	Summary    string      `json:"summary"`
}

// Recommendation is the model's proposed remediation for a pain point.
type Recommendation struct {
	Action       string `json:"action"` // create, update or none
	SkillName    string `json:"skill_name"`
	Reasoning    string `json:"reasoning"`
	SkillContent string `json:"skill_content"`
}

// API request/response types for OpenAI-compatible chat completions.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
