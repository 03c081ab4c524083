package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// entry is a single line in a coding-assistant JSONL transcript.
type entry struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	IsMeta    bool      `json:"isMeta,omitempty"`
	Message   *rawMessage `json:"message,omitempty"`
}

// rawMessage is the inner message object on user/assistant entries.
type rawMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []contentBlock
}

// contentBlock is one block in a content array.
type contentBlock struct {
	Type    string      `json:"type"`
	Text    string      `json:"text,omitempty"`
	Name    string      `json:"name,omitempty"`  // tool name on tool_use
	Input   interface{} `json:"input,omitempty"` // tool input on tool_use
	IsError bool        `json:"is_error,omitempty"`
}

// parseEntries reads a JSONL transcript, keeping only conversation entries.
// Unparseable lines are skipped rather than failing the whole transcript.
func parseEntries(r io.Reader) ([]entry, error) {
	var entries []entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB max line

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.Type != "user" && e.Type != "assistant" && e.Type != "system" {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	return entries, nil
}

func parseEntriesFile(path string) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return parseEntries(f)
}

// blocks normalizes message content into typed content blocks. String content
// becomes a single text block.
func blocks(msg *rawMessage) []contentBlock {
	if msg == nil {
		return nil
	}
	switch c := msg.Content.(type) {
	case string:
		return []contentBlock{{Type: "text", Text: c}}
	case []interface{}:
		var out []contentBlock
		for _, item := range c {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			raw, err := json.Marshal(m)
			if err != nil {
				continue
			}
			var b contentBlock
			if err := json.Unmarshal(raw, &b); err != nil {
				continue
			}
			out = append(out, b)
		}
		return out
	}
	return nil
}

// textContent joins all text blocks of a message.
func textContent(msg *rawMessage) string {
	var parts []string
	for _, b := range blocks(msg) {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// toolUses extracts tool_use blocks from a message.
func toolUses(msg *rawMessage) []contentBlock {
	var out []contentBlock
	for _, b := range blocks(msg) {
		if b.Type == "tool_use" {
			out = append(out, b)
		}
	}
	return out
}

// isToolResult reports whether a user entry only carries tool results,
// not operator-authored text.
func isToolResult(msg *rawMessage) bool {
	bs := blocks(msg)
	if len(bs) == 0 {
		return false
	}
	for _, b := range bs {
		if b.Type != "tool_result" {
			return false
		}
	}
	return true
}

// toolFilePath pulls the file path out of a tool_use input for the tools
// that carry one.
func toolFilePath(tu contentBlock) string {
	input, ok := tu.Input.(map[string]interface{})
	if !ok {
		return ""
	}
	switch tu.Name {
	case "Read", "Write", "Edit":
		if p, ok := input["file_path"].(string); ok {
			return p
		}
	case "NotebookEdit":
		if p, ok := input["notebook_path"].(string); ok {
			return p
		}
	case "Glob", "Grep":
		if p, ok := input["path"].(string); ok {
			return p
		}
	}
	return ""
}
