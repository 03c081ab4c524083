// Package llm refines heuristically extracted signals through an
// OpenAI-compatible chat API. Everything here is optional: when disabled or
// unkeyed, calls return (nil, nil) and the heuristic results stand alone.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/johns/session-intel/internal/config"
	"github.com/johns/session-intel/internal/extract"
)

// ClassifySignals asks the model to distill raw signals into pain points.
// Returns (nil, nil) if refinement is disabled or the API key is not set.
func ClassifySignals(ctx context.Context, cfg config.LLMConfig, signals []extract.Signal) (*Classification, error) {
	content, err := complete(ctx, cfg, classifySystemPrompt, buildClassifyPrompt(signals))
	if err != nil || content == "" {
		return nil, err
	}

	var c Classification
	if err := json.Unmarshal([]byte(extractJSON(content)), &c); err != nil {
		return nil, fmt.Errorf("unmarshal classification: %w", err)
	}
	return &c, nil
}

// RecommendSkill asks the model whether a pain point warrants a new or
// updated skill. Returns (nil, nil) if refinement is disabled or unkeyed.
func RecommendSkill(ctx context.Context, cfg config.LLMConfig, project string, pp PainPoint, existing []string) (*Recommendation, error) {
	content, err := complete(ctx, cfg, "", buildSkillPrompt(project, pp, existing))
	if err != nil || content == "" {
		return nil, err
	}

	var r Recommendation
	if err := json.Unmarshal([]byte(extractJSON(content)), &r); err != nil {
		return nil, fmt.Errorf("unmarshal recommendation: %w", err)
	}
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	return &r, nil
}

// complete performs one chat completion and returns the assistant content.
// An empty content with nil error means the feature is switched off.
func complete(ctx context.Context, cfg config.LLMConfig, system, user string) (string, error) {
	if !cfg.Enabled {
		return "", nil
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return "", nil
	}

	var messages []chatMessage
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	body, err := json.Marshal(chatRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("API error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return cr.Choices[0].Message.Content, nil
}

// extractJSON strips a markdown code fence around the model's JSON, if any.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if i := strings.Index(content, "```json"); i >= 0 {
		rest := content[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	if i := strings.Index(content, "```"); i >= 0 {
		rest := content[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	return content
}
