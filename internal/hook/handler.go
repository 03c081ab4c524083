// Package hook integrates with the coding assistant's hook mechanism:
// stdin-driven ingestion at session end, plus settings.json install/removal.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/johns/session-intel/internal/ingest"
)

// Input is the JSON object the assistant sends to hooks via stdin.
type Input struct {
	SessionID            string `json:"session_id"`
	TranscriptPath       string `json:"transcript_path"`
	HookEventName        string `json:"hook_event_name"`
	CWD                  string `json:"cwd"`
	Reason               string `json:"reason,omitempty"`
	LastAssistantMessage string `json:"last_assistant_message,omitempty"`
	PermissionMode       string `json:"permission_mode,omitempty"`
}

// Handle reads hook input from stdin and ingests the finished session.
func Handle(p *ingest.Pipeline, event string) error {
	input, err := readStdin()
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return handleInput(input, event, p)
}

func handleInput(input *Input, event string, p *ingest.Pipeline) error {
	// Event override from --event, for manual testing.
	if event != "" {
		input.HookEventName = event
	}

	switch input.HookEventName {
	case "SessionEnd", "":
		return handleSessionEnd(input, p)
	case "Stop":
		// Mid-session stops are folded into the session-end ingest.
		return nil
	default:
		return fmt.Errorf("unknown hook event: %s", input.HookEventName)
	}
}

func readStdin() (*Input, error) {
	done := make(chan []byte, 1)
	errCh := make(chan error, 1)

	go func() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			errCh <- err
			return
		}
		done <- data
	}()

	var data []byte
	select {
	case data = <-done:
	case err := <-errCh:
		return nil, err
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("stdin read timeout")
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty stdin")
	}

	var input Input
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parse stdin JSON: %w", err)
	}
	return &input, nil
}

func handleSessionEnd(input *Input, p *ingest.Pipeline) error {
	if input.TranscriptPath == "" {
		return fmt.Errorf("no transcript_path in hook input")
	}

	project := projectFor(input)
	s, signals, err := p.Run(input.TranscriptPath, project)
	if err != nil {
		return fmt.Errorf("ingest session: %w", err)
	}

	fmt.Fprintf(os.Stderr, "si: %s ingested (intent %s, struggle %.1f, %d signals)\n",
		s.ID, s.Intent, s.StruggleScore, len(signals))
	return nil
}

// projectFor prefers the working directory's name over the encoded transcript
// directory name.
func projectFor(input *Input) string {
	if input.CWD != "" {
		return filepath.Base(input.CWD)
	}
	return filepath.Base(filepath.Dir(input.TranscriptPath))
}
