package classify

import "github.com/johns/session-intel/internal/session"

// intentRule pairs an intent label with the keywords that select it.
// Rules are evaluated in order against the lowercased first message;
// the first rule with a hit wins.
type intentRule struct {
	intent   session.Intent
	keywords []string
}

var intentRules = []intentRule{
	{session.IntentDebug, []string{
		"fix", "error", "bug", "broken", "not working", "failing",
		"crash", "stuck", "debug", "still failing",
	}},
	{session.IntentConfig, []string{
		"install", "configure", "set up", "setup", "api key",
		"credential", "connect", ".env", "mcp server", "permission",
	}},
	{session.IntentStartup, []string{
		"warmup", "warm up", "say hello", "read the latest session",
	}},
	{session.IntentResearch, []string{
		"research", "figure out", "how does", "what is", "investigate",
		"explore", "look into", "understand", "can we use",
	}},
	{session.IntentReview, []string{
		"review", "look at", "audit", "check the status",
		"where we left off", "what's the state",
	}},
	{session.IntentPlanning, []string{
		"plan", "brainstorm", "discuss", "what if", "how should",
		"strategy", "approach", "let's think",
	}},
	{session.IntentExecution, []string{
		"implement", "build", "create", "add", "update", "refactor",
		"migrate", "deploy", "modify", "write",
	}},
}

// domainRule pairs a domain with message keywords and tool-path patterns.
// Rules are evaluated in priority order.
type domainRule struct {
	domain   session.Domain
	keywords []string
	paths    []string
}

var domainRules = []domainRule{
	{session.DomainUIDesign,
		[]string{
			"component", "css", "layout", "frontend", "react", "modal",
			"button", "styling", "theme", "responsive", "sidebar", "render",
		},
		[]string{".tsx", ".jsx", ".css", ".scss", "components/", "/ui/"},
	},
	{session.DomainData,
		[]string{
			"database", "sql", "schema", "migration", "query", "dataset",
			"csv", "etl", "sqlite", "ingest",
		},
		[]string{".sql", "migrations/", ".db", "models/", "schema"},
	},
	{session.DomainAPI,
		[]string{
			"api", "endpoint", "rest", "route", "request", "response",
			"integration", "websocket",
		},
		[]string{"/api/", "routes/", "handlers/", "endpoints/"},
	},
	{session.DomainWorkflow,
		[]string{
			"workflow", "automation", "automate", "cron", "schedule",
			"trigger", "webhook", "notification",
		},
		[]string{"workflows/", "hooks/", "jobs/", ".github/workflows"},
	},
	{session.DomainInfraDeploy,
		[]string{
			"deploy", "docker", "kubernetes", "terraform", "pipeline",
			"release", "production", "server", "provision",
		},
		[]string{"dockerfile", "docker-compose", ".tf", "deploy/", "helm/"},
	},
	{session.DomainConfig,
		[]string{
			"config", "environment variable", "credential", "api key",
			"oauth", "settings", "dotfile",
		},
		[]string{".env", ".toml", ".yaml", ".yml", "config/", "settings"},
	},
	{session.DomainArchitecture,
		[]string{
			"architecture", "refactor", "restructure", "decouple",
			"abstraction", "module boundary", "layering",
		},
		[]string{"docs/adr", "architecture"},
	},
	{session.DomainMetadata,
		[]string{
			"metadata", "description", "label", "annotation", "docstring",
			"documentation", "help text",
		},
		[]string{"docs/", "readme"},
	},
	{session.DomainTestQA,
		[]string{
			"test", "coverage", "assert", "regression", "flaky",
			"edge case", "qa",
		},
		[]string{"_test.go", "test/", "tests/", ".spec.", "fixtures/"},
	},
}

// interrogatives mark research-shaped first messages in the tool-usage
// fallback heuristic.
var interrogatives = []string{"how", "why", "what"}
