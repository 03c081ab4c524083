package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johns/session-intel/internal/config"
	"github.com/johns/session-intel/internal/extract"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "Here you go:\n```json\n{\"a\":1}\n```\nDone.", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.content); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBuildClassifyPrompt(t *testing.T) {
	signals := []extract.Signal{
		{SessionID: "abc", Strategy: "retry_chain", Type: extract.TypeStruggle,
			Severity: extract.SeverityHigh, Description: "8 consecutive retries"},
		{SessionID: "def", Strategy: "user_correction", Type: extract.TypeCorrection,
			Severity: extract.SeverityMedium, Description: "user redirected the approach"},
	}

	prompt := buildClassifyPrompt(signals)
	if !strings.Contains(prompt, "session abc") || !strings.Contains(prompt, "8 consecutive retries") {
		t.Errorf("missing first signal: %q", prompt)
	}
	if !strings.Contains(prompt, "retry_chain") || !strings.Contains(prompt, "user_correction") {
		t.Errorf("missing strategy names: %q", prompt)
	}
}

func TestBuildSkillPrompt(t *testing.T) {
	pp := PainPoint{
		Category:    "workflow",
		Severity:    4,
		Description: "branch isolation not respected",
		Sessions:    []string{"766aaac", "9f21b00"},
	}

	prompt := buildSkillPrompt("my-app", pp, []string{"git-workflow"})
	for _, want := range []string{"my-app", "workflow", "4/5", "branch isolation", "766aaac", "git-workflow"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	noSkills := buildSkillPrompt("my-app", pp, nil)
	if !strings.Contains(noSkills, "(none)") {
		t.Error("empty skill list should render as (none)")
	}
}

func TestClassifySignals_Disabled(t *testing.T) {
	c, err := ClassifySignals(context.Background(), config.LLMConfig{Enabled: false}, nil)
	if c != nil || err != nil {
		t.Errorf("disabled: got %v, %v", c, err)
	}
}

func TestClassifySignals_NoAPIKey(t *testing.T) {
	cfg := config.LLMConfig{Enabled: true, APIKeyEnv: "SI_TEST_NONEXISTENT_KEY"}
	c, err := ClassifySignals(context.Background(), cfg, nil)
	if c != nil || err != nil {
		t.Errorf("no key: got %v, %v", c, err)
	}
}

func TestClassifySignals_MockServer(t *testing.T) {
	canned := chatResponse{
		Choices: []chatChoice{{Message: chatMessage{
			Role: "assistant",
			Content: "```json\n" + `{"pain_points":[{"category":"api","severity":3,"description":"timeouts misconfigured","sessions":["abc"]}],"summary":"API handling is the main source of friction"}` + "\n```",
		}}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(canned)
	}))
	defer server.Close()

	t.Setenv("SI_TEST_KEY", "test-key")
	cfg := config.LLMConfig{
		Enabled:        true,
		APIKeyEnv:      "SI_TEST_KEY",
		Model:          "test-model",
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
	}

	c, err := ClassifySignals(context.Background(), cfg, []extract.Signal{
		{SessionID: "abc", Strategy: "retry_chain", Description: "retries"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil || len(c.PainPoints) != 1 {
		t.Fatalf("classification = %+v", c)
	}
	if c.PainPoints[0].Category != "api" || c.PainPoints[0].Severity != 3 {
		t.Errorf("pain point = %+v", c.PainPoints[0])
	}
	if c.Summary == "" {
		t.Error("missing summary")
	}
}

func TestRecommendSkill_MockServer(t *testing.T) {
	canned := chatResponse{
		Choices: []chatChoice{{Message: chatMessage{
			Role:    "assistant",
			Content: `{"action":"CREATE","skill_name":"api-timeout-tuning","reasoning":"No existing skill covers timeout configuration.","skill_content":"# api-timeout-tuning\n..."}`,
		}}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(canned)
	}))
	defer server.Close()

	t.Setenv("SI_TEST_KEY2", "test-key")
	cfg := config.LLMConfig{
		Enabled:        true,
		APIKeyEnv:      "SI_TEST_KEY2",
		Model:          "test-model",
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
	}

	pp := PainPoint{Category: "api", Severity: 3, Description: "timeouts"}
	r, err := RecommendSkill(context.Background(), cfg, "my-app", pp, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Action != "create" {
		t.Errorf("action = %q, want normalized create", r.Action)
	}
	if r.SkillName != "api-timeout-tuning" {
		t.Errorf("skill name = %q", r.SkillName)
	}
}

func TestClassifySignals_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer server.Close()

	t.Setenv("SI_TEST_KEY3", "test-key")
	cfg := config.LLMConfig{
		Enabled:        true,
		APIKeyEnv:      "SI_TEST_KEY3",
		Model:          "test-model",
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
	}

	_, err := ClassifySignals(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should mention status code: %v", err)
	}
}

func TestClassifySignals_BadJSONContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "not json at all"}}},
		})
	}))
	defer server.Close()

	t.Setenv("SI_TEST_KEY4", "test-key")
	cfg := config.LLMConfig{
		Enabled:        true,
		APIKeyEnv:      "SI_TEST_KEY4",
		Model:          "test-model",
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
	}

	if _, err := ClassifySignals(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unparseable content")
	}
}
