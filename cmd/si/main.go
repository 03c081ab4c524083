package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/johns/session-intel/internal/config"
	"github.com/johns/session-intel/internal/enforce"
	"github.com/johns/session-intel/internal/extract"
	"github.com/johns/session-intel/internal/hook"
	"github.com/johns/session-intel/internal/ingest"
	"github.com/johns/session-intel/internal/llm"
	"github.com/johns/session-intel/internal/report"
	"github.com/johns/session-intel/internal/score"
	"github.com/johns/session-intel/internal/session"
	"github.com/johns/session-intel/internal/store"
	"github.com/johns/session-intel/internal/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	switch os.Args[1] {
	case "hook":
		runHook(cfg, os.Args[2:])

	case "ingest":
		if len(os.Args) < 3 {
			fatal("usage: si ingest <transcript.jsonl> [--project <name>]")
		}
		runIngest(cfg, os.Args[2], flagValue(os.Args[3:], "--project"))

	case "scan":
		runScan(cfg)

	case "watch":
		runWatch(cfg)

	case "analyze":
		if len(os.Args) < 3 {
			fatal("usage: si analyze <project> [--strategy a|b|c|d|all]")
		}
		runAnalyze(cfg, os.Args[2], flagValue(os.Args[3:], "--strategy"))

	case "stats":
		if len(os.Args) < 3 {
			fatal("usage: si stats <project>")
		}
		runStats(cfg, os.Args[2])

	case "enforce":
		runEnforce(cfg, os.Args[2:])

	case "version":
		fmt.Printf("si v%s (session-intel)\n", version)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func runHook(cfg config.Config, args []string) {
	for _, a := range args {
		switch a {
		case "--install":
			if err := hook.Install(); err != nil {
				fatal("%v", err)
			}
			return
		case "--uninstall":
			if err := hook.Uninstall(); err != nil {
				fatal("%v", err)
			}
			return
		}
	}

	p, cleanup := pipeline(cfg)
	defer cleanup()

	if err := hook.Handle(p, flagValue(args, "--event")); err != nil {
		fatal("%v", err)
	}
}

func runIngest(cfg config.Config, path, project string) {
	if project == "" {
		project = filepath.Base(filepath.Dir(path))
	}

	p, cleanup := pipeline(cfg)
	defer cleanup()

	s, signals, err := p.Run(path, project)
	if err != nil {
		fatal("ingest: %v", err)
	}
	fmt.Printf("ingested %s: intent=%s domain=%s struggle=%.1f (%s), %d signals\n",
		s.ID, s.Intent, s.Domain, s.StruggleScore, score.Level(s.StruggleScore), len(signals))
}

func runScan(cfg config.Config) {
	p, cleanup := pipeline(cfg)
	defer cleanup()

	n, err := p.ScanDir(cfg.TranscriptsDir)
	if err != nil {
		fatal("scan: %v", err)
	}
	fmt.Printf("processed %d transcripts from %s\n", n, cfg.TranscriptsDir)
}

func runWatch(cfg config.Config) {
	p, cleanup := pipeline(cfg)
	defer cleanup()

	w, err := watch.New(cfg.TranscriptsDir, watch.DefaultSettle, func(path string) {
		project := filepath.Base(filepath.Dir(path))
		s, signals, err := p.Run(path, project)
		if err != nil {
			fmt.Fprintf(os.Stderr, "si: ingest %s: %v\n", path, err)
			return
		}
		fmt.Printf("ingested %s: intent=%s struggle=%.1f, %d signals\n",
			s.ID, s.Intent, s.StruggleScore, len(signals))
	})
	if err != nil {
		fatal("watch: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("watching %s\n", cfg.TranscriptsDir)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		fatal("watch: %v", err)
	}
}

func runAnalyze(cfg config.Config, project, strategy string) {
	if strategy == "" {
		strategy = "all"
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fatal("open store: %v", err)
	}
	defer st.Close()

	stats, err := st.ProjectStats(project, score.DefaultHighThreshold)
	if err != nil {
		fatal("stats: %v", err)
	}

	signals, err := st.SignalsByProject(project)
	if err != nil {
		fatal("load signals: %v", err)
	}
	signals = filterStrategy(signals, strategy)

	d := report.AnalysisData{
		Project:     project,
		Strategy:    strategy,
		GeneratedAt: time.Now(),
		Stats:       stats,
		Signals:     signals,
	}

	if cfg.LLM.Enabled && len(signals) > 0 {
		ctx := context.Background()
		classification, err := llm.ClassifySignals(ctx, cfg.LLM, signals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "si: classify signals: %v\n", err)
		}
		d.Classification = classification

		if classification != nil {
			for _, pp := range classification.PainPoints {
				rec, err := llm.RecommendSkill(ctx, cfg.LLM, project, pp, nil)
				if err != nil {
					fmt.Fprintf(os.Stderr, "si: recommend skill: %v\n", err)
					continue
				}
				if rec != nil {
					d.Recommendations = append(d.Recommendations, report.SkillRecommendation{
						PainPoint:      pp,
						Recommendation: *rec,
					})
				}
			}
		}
	}

	md := report.Analysis(d)

	if err := os.MkdirAll(cfg.ReviewsDir(), 0o755); err != nil {
		fatal("create reviews dir: %v", err)
	}
	out := filepath.Join(cfg.ReviewsDir(), report.Filename(project, strategy, d.GeneratedAt))
	if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
		fatal("write report: %v", err)
	}
	fmt.Printf("report written: %s\n", out)
}

func runStats(cfg config.Config, project string) {
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fatal("open store: %v", err)
	}
	defer st.Close()

	stats, err := st.ProjectStats(project, score.DefaultHighThreshold)
	if err != nil {
		fatal("stats: %v", err)
	}

	fmt.Printf("%s: %d sessions, %d high-struggle\n", project, stats.TotalSessions, stats.HighStruggle)
	fmt.Println("\nby intent:")
	for _, gs := range stats.ByIntent {
		fmt.Printf("  %-22s %4d sessions, avg struggle %.1f\n", gs.Label, gs.Sessions, gs.AvgStruggle)
	}
	fmt.Println("\nby domain:")
	for _, gs := range stats.ByDomain {
		fmt.Printf("  %-22s %4d sessions, avg struggle %.1f\n", gs.Label, gs.Sessions, gs.AvgStruggle)
	}
}

func runEnforce(cfg config.Config, args []string) {
	if len(args) < 2 {
		fatal("usage: si enforce <project> <skill-name> --domain <d> --intent <i> [--created RFC3339] [--triggers a,b]")
	}

	rem := enforce.Remediation{
		Project: args[0],
		Name:    args[1],
		Domain:  session.Domain(flagValue(args, "--domain")),
		Intent:  session.Intent(flagValue(args, "--intent")),
	}
	if rem.Domain == "" || rem.Intent == "" {
		fatal("--domain and --intent are required (they scope the cohort)")
	}
	if v := flagValue(args, "--triggers"); v != "" {
		rem.Triggers = strings.Split(v, ",")
	}
	if v := flagValue(args, "--created"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fatal("parse --created: %v", err)
		}
		rem.CreatedAt = t
	} else {
		rem.CreatedAt = time.Now()
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fatal("open store: %v", err)
	}
	defer st.Close()

	res, err := enforce.Evaluate(st, rem)
	if err != nil {
		fatal("enforce: %v", err)
	}
	fmt.Print(report.Enforcement(rem, res))
}

// pipeline builds the shared ingest pipeline and its cleanup function.
func pipeline(cfg config.Config) (*ingest.Pipeline, func()) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		fatal("create state dir: %v", err)
	}
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fatal("open store: %v", err)
	}

	p := &ingest.Pipeline{Store: st}
	if cfg.Archive.Enabled {
		p.ArchiveDir = cfg.ArchiveDir()
	}
	return p, func() { st.Close() }
}

func filterStrategy(signals []extract.Signal, strategy string) []extract.Signal {
	if strategy == "" || strategy == "all" {
		return signals
	}
	names := map[string]string{
		"a": extract.StrategyRetryChain,
		"b": extract.StrategyErrorResolution,
		"c": extract.StrategyUserCorrection,
		"d": extract.StrategyToolRepetition,
	}
	want, ok := names[strings.ToLower(strategy)]
	if !ok {
		fatal("unknown strategy %q (want a, b, c, d or all)", strategy)
	}
	var out []extract.Signal
	for _, s := range signals {
		if s.Strategy == want {
			out = append(out, s)
		}
	}
	return out
}

func usage() {
	fmt.Fprintf(os.Stderr, `si v%s — session intelligence for AI coding transcripts

Usage:
  si hook [--event <name>]                    Hook mode (reads stdin from the assistant)
  si hook --install | --uninstall             Manage the SessionEnd hook entry
  si ingest <file.jsonl> [--project <name>]   Ingest a single transcript
  si scan                                     Ingest all transcripts
  si watch                                    Watch for settling transcripts
  si analyze <project> [--strategy a|b|c|d|all]
                                              Write a markdown analysis report
  si stats <project>                          Print project aggregates
  si enforce <project> <skill> --domain <d> --intent <i> [--created RFC3339] [--triggers a,b]
                                              Evaluate remediation effectiveness
  si version                                  Print version
  si help                                     Show this help

Configuration: ~/.config/session-intel/config.toml
`, version)
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "si: "+format+"\n", args...)
	os.Exit(1)
}
