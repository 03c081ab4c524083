package test

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// siBinary is the path to the compiled si binary, set by TestMain.
var siBinary string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	tmpDir, err := os.MkdirTemp("", "si-integration-build-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	siBinary = filepath.Join(tmpDir, "si")
	cmd := exec.Command("go", "build", "-o", siBinary, "./cmd/si")
	// Test working dir is test/, so go up one level to project root
	cmd.Dir = filepath.Join("..")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build si binary: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// --- Fixtures ---

// fixtureDebug: error, retry, correction and discovery in one debug session.
const fixtureDebug = `{"type":"user","timestamp":"2026-04-02T09:00:00Z","message":{"role":"user","content":"Fix the API timeout error in production"}}
{"type":"assistant","timestamp":"2026-04-02T09:00:10Z","message":{"role":"assistant","content":[{"type":"text","text":"Checking the handler code."},{"type":"tool_use","id":"tu1","name":"Read","input":{"file_path":"internal/api/server.go"}}]}}
{"type":"assistant","timestamp":"2026-04-02T09:01:00Z","message":{"role":"assistant","content":"Error: the retry loop failed. Let me try a different timeout."}}
{"type":"user","timestamp":"2026-04-02T09:02:00Z","message":{"role":"user","content":"No, change the client instead"}}
{"type":"assistant","timestamp":"2026-04-02T09:03:00Z","message":{"role":"assistant","content":"I found the root cause, working now."}}
`

// fixtureClean: short execution session with no friction.
const fixtureClean = `{"type":"user","timestamp":"2026-04-03T09:00:00Z","message":{"role":"user","content":"Create a helper for parsing durations"}}
{"type":"assistant","timestamp":"2026-04-03T09:00:30Z","message":{"role":"assistant","content":[{"type":"text","text":"Adding the helper."},{"type":"tool_use","id":"tu1","name":"Write","input":{"file_path":"internal/util/duration.go","content":"package util"}}]}}
{"type":"assistant","timestamp":"2026-04-03T09:01:00Z","message":{"role":"assistant","content":"Helper added with tests."}}
`

// testEnv creates an isolated HOME/config/state layout and returns the
// environment plus the state and transcripts directories.
func testEnv(t *testing.T, archive bool) (env []string, stateDir, transcriptsDir string) {
	t.Helper()

	home := t.TempDir()
	stateDir = filepath.Join(home, "state")
	transcriptsDir = filepath.Join(home, "transcripts")
	for _, d := range []string{stateDir, transcriptsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	cfgDir := filepath.Join(home, "xdg", "session-intel")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := fmt.Sprintf("state_dir = %q\ntranscripts_dir = %q\n\n[archive]\nenabled = %v\n",
		stateDir, transcriptsDir, archive)
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, "xdg"),
	)
	return env, stateDir, transcriptsDir
}

func writeFixture(t *testing.T, transcriptsDir, project, id, content string) string {
	t.Helper()
	dir := filepath.Join(transcriptsDir, project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, id+".jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runSI(t *testing.T, env []string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(siBinary, args...)
	cmd.Env = env
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// --- Tests ---

func TestVersion(t *testing.T) {
	env, _, _ := testEnv(t, false)
	out, err := runSI(t, env, "", "version")
	if err != nil {
		t.Fatalf("version: %v\n%s", err, out)
	}
	if !strings.Contains(out, "si v0.1.0") {
		t.Errorf("version output = %q", out)
	}
}

func TestIngestAndStats(t *testing.T) {
	env, _, transcriptsDir := testEnv(t, false)
	path := writeFixture(t, transcriptsDir, "myproject", "aaa-111", fixtureDebug)

	out, err := runSI(t, env, "", "ingest", path, "--project", "myproject")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ingested aaa-111") {
		t.Errorf("ingest output = %q", out)
	}
	if !strings.Contains(out, "intent=debug") || !strings.Contains(out, "domain=api") {
		t.Errorf("classification missing from output: %q", out)
	}

	out, err = runSI(t, env, "", "stats", "myproject")
	if err != nil {
		t.Fatalf("stats: %v\n%s", err, out)
	}
	if !strings.Contains(out, "myproject: 1 sessions") {
		t.Errorf("stats output = %q", out)
	}
	if !strings.Contains(out, "debug") {
		t.Errorf("intent breakdown missing: %q", out)
	}
}

func TestScanProcessesAllProjects(t *testing.T) {
	env, _, transcriptsDir := testEnv(t, false)
	writeFixture(t, transcriptsDir, "proj-one", "aaa-111", fixtureDebug)
	writeFixture(t, transcriptsDir, "proj-two", "bbb-222", fixtureClean)

	out, err := runSI(t, env, "", "scan")
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	if !strings.Contains(out, "processed 2 transcripts") {
		t.Errorf("scan output = %q", out)
	}
}

func TestScanArchivesTranscripts(t *testing.T) {
	env, stateDir, transcriptsDir := testEnv(t, true)
	writeFixture(t, transcriptsDir, "myproject", "aaa-111", fixtureDebug)

	out, err := runSI(t, env, "", "scan")
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}

	archived := filepath.Join(stateDir, "archive", "aaa-111.jsonl.zst")
	if _, err := os.Stat(archived); err != nil {
		t.Errorf("archive not written: %v", err)
	}
}

func TestAnalyzeWritesReport(t *testing.T) {
	env, stateDir, transcriptsDir := testEnv(t, false)
	path := writeFixture(t, transcriptsDir, "myproject", "aaa-111", fixtureDebug)

	if out, err := runSI(t, env, "", "ingest", path, "--project", "myproject"); err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}

	out, err := runSI(t, env, "", "analyze", "myproject")
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	if !strings.Contains(out, "report written:") {
		t.Fatalf("analyze output = %q", out)
	}

	reviews, err := os.ReadDir(filepath.Join(stateDir, "reviews"))
	if err != nil || len(reviews) != 1 {
		t.Fatalf("reviews dir: %v, %d entries", err, len(reviews))
	}
	data, err := os.ReadFile(filepath.Join(stateDir, "reviews", reviews[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	report := string(data)
	if !strings.Contains(report, "# Session Intelligence Analysis: myproject") {
		t.Error("report missing title")
	}
	if !strings.Contains(report, "refinement disabled") {
		t.Error("report should note LLM refinement is off")
	}
}

func TestEnforcePending(t *testing.T) {
	env, _, transcriptsDir := testEnv(t, false)
	path := writeFixture(t, transcriptsDir, "myproject", "aaa-111", fixtureDebug)

	if out, err := runSI(t, env, "", "ingest", path, "--project", "myproject"); err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}

	// Remediation predates every session, so there is no before cohort.
	out, err := runSI(t, env, "",
		"enforce", "myproject", "api-timeout-tuning",
		"--domain", "api", "--intent", "debug",
		"--created", "2020-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("enforce: %v\n%s", err, out)
	}
	if !strings.Contains(out, "PENDING") {
		t.Errorf("enforce output = %q", out)
	}
}

func TestHookIngestsFromStdin(t *testing.T) {
	env, _, transcriptsDir := testEnv(t, false)
	path := writeFixture(t, transcriptsDir, "myproject", "hook-sess", fixtureDebug)

	stdin := fmt.Sprintf(`{"session_id":"hook-sess","transcript_path":%q,"hook_event_name":"SessionEnd","cwd":"/home/dev/myproject"}`, path)
	out, err := runSI(t, env, stdin, "hook")
	if err != nil {
		t.Fatalf("hook: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hook-sess ingested") {
		t.Errorf("hook output = %q", out)
	}

	stats, err := runSI(t, env, "", "stats", "myproject")
	if err != nil {
		t.Fatalf("stats: %v\n%s", err, stats)
	}
	if !strings.Contains(stats, "myproject: 1 sessions") {
		t.Errorf("stats after hook = %q", stats)
	}
}

func TestUnknownCommand(t *testing.T) {
	env, _, _ := testEnv(t, false)
	out, err := runSI(t, env, "", "bogus")
	if err == nil {
		t.Fatal("expected non-zero exit for unknown command")
	}
	if !strings.Contains(out, "unknown command: bogus") {
		t.Errorf("output = %q", out)
	}
}
