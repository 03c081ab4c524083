// Package ingest turns raw coding-assistant JSONL transcripts into fully
// formed session records: parsed messages, friction flags, classification,
// scoring and signal extraction.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/johns/session-intel/internal/archive"
	"github.com/johns/session-intel/internal/classify"
	"github.com/johns/session-intel/internal/extract"
	"github.com/johns/session-intel/internal/sanitize"
	"github.com/johns/session-intel/internal/score"
	"github.com/johns/session-intel/internal/session"
	"github.com/johns/session-intel/internal/store"
)

const previewLen = 300

// File parses a transcript into an unclassified session. Classification,
// scoring and persistence happen in Pipeline.Run.
func File(path, project string) (*session.Session, error) {
	entries, err := parseEntriesFile(path)
	if err != nil {
		return nil, err
	}

	s := session.New(sessionID(path), project)

	for _, e := range entries {
		if e.Message == nil {
			continue
		}

		switch e.Message.Role {
		case session.RoleUser:
			if isToolResult(e.Message) {
				continue
			}
		case session.RoleAssistant:
		default:
			continue
		}

		text := textContent(e.Message)
		m := session.Message{
			Role:      e.Message.Role,
			Timestamp: e.Timestamp,
			Preview:   truncate(sanitize.StripTags(text), previewLen),
		}

		switch e.Message.Role {
		case session.RoleAssistant:
			m.HasError = hasError(text)
			m.IsRetry = isRetry(text)
			m.IsDiscovery = isDiscovery(text)
			for _, tu := range toolUses(e.Message) {
				m.ToolNames = append(m.ToolNames, tu.Name)
				if p := toolFilePath(tu); p != "" {
					m.FilePaths = append(m.FilePaths, p)
				}
			}
		case session.RoleUser:
			m.IsCorrection = isCorrection(text)

			if !e.IsMeta && !sanitize.IsMetaText(text) {
				if cmd := sanitize.CommandName(text); cmd != "" {
					if cmd == "clear" || cmd == "resume" {
						s.Resumed = true
					}
				} else if s.FirstMessage == "" {
					s.FirstMessage = truncate(sanitize.StripTags(text), previewLen)
				}
			}
		}

		if !e.Timestamp.IsZero() {
			if s.CreatedAt.IsZero() || e.Timestamp.Before(s.CreatedAt) {
				s.CreatedAt = e.Timestamp
			}
			if e.Timestamp.After(s.ModifiedAt) {
				s.ModifiedAt = e.Timestamp
			}
		}

		s.Append(m)
	}

	if s.CreatedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			s.CreatedAt = info.ModTime()
			s.ModifiedAt = info.ModTime()
		}
	}

	return s, nil
}

// Pipeline runs the full ingest flow against a store. When ArchiveDir is
// set, each ingested transcript is also compressed into it.
type Pipeline struct {
	Store      *store.Store
	ArchiveDir string
}

// Run ingests one transcript: parse, classify, score, persist, extract.
// Re-running over the same transcript replaces the stored session and its
// signals rather than duplicating them.
func (p *Pipeline) Run(path, project string) (*session.Session, []extract.Signal, error) {
	s, err := File(path, project)
	if err != nil {
		return nil, nil, err
	}
	if len(s.Messages) == 0 {
		return s, nil, nil
	}

	prior, err := p.Store.LatestBefore(project, s.CreatedAt)
	if err != nil {
		return nil, nil, err
	}
	if s.Resumed && prior != nil {
		s.ContinuedFrom = prior.ID
	}

	s.Intent, s.Domain = classify.Classify(s, prior)
	s.StruggleScore = score.ForSession(s, p.lookup)

	if err := p.Store.SaveSession(s); err != nil {
		return nil, nil, err
	}

	priorSignals, err := p.Store.SignalsByProject(project)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Store.DeleteSignals(s.ID); err != nil {
		return nil, nil, err
	}

	signals := extract.All(s, priorSignals)
	if err := p.Store.SaveSignals(project, signals); err != nil {
		return nil, nil, err
	}

	if p.ArchiveDir != "" {
		if _, err := archive.Store(path, p.ArchiveDir); err != nil {
			return nil, nil, fmt.Errorf("archive %s: %w", s.ID, err)
		}
	}
	return s, signals, nil
}

// ScanDir ingests every transcript under root, one project subdirectory per
// project. Returns the number of transcripts processed.
func (p *Pipeline) ScanDir(root string) (int, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("read projects dir: %w", err)
	}

	processed := 0
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		project := projectName(d.Name())
		matches, err := filepath.Glob(filepath.Join(root, d.Name(), "*.jsonl"))
		if err != nil {
			continue
		}
		for _, path := range matches {
			if _, _, err := p.Run(path, project); err != nil {
				return processed, fmt.Errorf("ingest %s: %w", path, err)
			}
			processed++
		}
	}
	return processed, nil
}

func (p *Pipeline) lookup(id string) *session.Session {
	s, err := p.Store.Session(id)
	if err != nil {
		return nil
	}
	return s
}

// sessionID derives the session ID from the transcript filename.
func sessionID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ".jsonl")
}

// projectName extracts a readable project name from an encoded transcript
// directory name. Directories with many dash-separated parts keep the last
// two.
func projectName(dirname string) string {
	parts := strings.Split(dirname, "-")
	if len(parts) > 3 {
		return strings.Join(parts[len(parts)-2:], "-")
	}
	return dirname
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
