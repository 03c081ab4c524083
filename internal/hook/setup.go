package hook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// The hook registers for a single assistant event: SessionEnd fires once
// per session, after the transcript stops changing.
const (
	hookEvent   = "SessionEnd"
	hookCommand = "si hook"
)

// settingsFile holds the assistant's settings.json as loosely typed JSON so
// keys this tool knows nothing about survive a rewrite untouched.
type settingsFile struct {
	path string
	data map[string]any
}

// SettingsPath returns the path to ~/.claude/settings.json.
func SettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "settings.json"), nil
}

// Install registers the SessionEnd hook in the assistant settings.
// Idempotent: returns nil (exit 0) even when already installed.
func Install() error {
	sf, err := loadSettings()
	if err != nil {
		return err
	}
	if sf.installed() {
		fmt.Fprintf(os.Stderr, "si hook already configured in %s\n", sf.path)
		return nil
	}

	entry := map[string]any{
		"matcher": "",
		"hooks":   []any{map[string]any{"type": "command", "command": hookCommand}},
	}
	sf.setEntries(append(sf.entries(), entry))

	if err := sf.save(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "si hook installed in %s\n", sf.path)
	return nil
}

// Uninstall drops si entries from the settings, keeping everything else.
// Idempotent: returns nil (exit 0) even when not installed.
func Uninstall() error {
	sf, err := loadSettings()
	if err != nil {
		return err
	}
	if !sf.installed() {
		fmt.Fprintf(os.Stderr, "si hook not found in %s\n", sf.path)
		return nil
	}

	var kept []any
	for _, e := range sf.entries() {
		if !ours(e) {
			kept = append(kept, e)
		}
	}
	sf.setEntries(kept)

	if err := sf.save(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "si hook removed from %s\n", sf.path)
	return nil
}

// loadSettings parses the settings file. A missing or blank file yields an
// empty document rather than an error.
func loadSettings() (*settingsFile, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}
	sf := &settingsFile{path: path, data: map[string]any{}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return sf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return sf, nil
	}
	if err := json.Unmarshal(raw, &sf.data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return sf, nil
}

// save backs up the previous file to .si.bak, then writes the document back
// as indented JSON, creating the parent directory if needed.
func (sf *settingsFile) save() error {
	if prev, err := os.ReadFile(sf.path); err == nil {
		if err := os.WriteFile(sf.path+".si.bak", prev, 0o644); err != nil {
			return fmt.Errorf("back up %s: %w", sf.path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(sf.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	out, err := json.MarshalIndent(sf.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(sf.path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", sf.path, err)
	}
	return nil
}

// entries returns the hook entries registered for the SessionEnd event.
func (sf *settingsFile) entries() []any {
	hooks, _ := sf.data["hooks"].(map[string]any)
	list, _ := hooks[hookEvent].([]any)
	return list
}

// setEntries replaces the SessionEnd entry list, pruning the event key and
// the hooks map itself when the list goes empty.
func (sf *settingsFile) setEntries(list []any) {
	hooks, ok := sf.data["hooks"].(map[string]any)
	if !ok {
		hooks = map[string]any{}
		sf.data["hooks"] = hooks
	}
	if len(list) == 0 {
		delete(hooks, hookEvent)
	} else {
		hooks[hookEvent] = list
	}
	if len(hooks) == 0 {
		delete(sf.data, "hooks")
	}
}

func (sf *settingsFile) installed() bool {
	for _, e := range sf.entries() {
		if ours(e) {
			return true
		}
	}
	return false
}

// ours reports whether an entry's inner hook list carries the si command.
func ours(entry any) bool {
	m, _ := entry.(map[string]any)
	inner, _ := m["hooks"].([]any)
	for _, h := range inner {
		hm, _ := h.(map[string]any)
		if cmd, _ := hm["command"].(string); strings.Contains(cmd, hookCommand) {
			return true
		}
	}
	return false
}
