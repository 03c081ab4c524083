// Package store persists sessions, messages and signals in a local SQLite
// database. It provides the two external reads the analysis engine needs:
// the cohort query for enforcement and the prior-signal query for
// cross-session correction escalation.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/johns/session-intel/internal/extract"
	"github.com/johns/session-intel/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	project         TEXT NOT NULL,
	first_message   TEXT NOT NULL DEFAULT '',
	intent          TEXT NOT NULL DEFAULT 'unknown',
	domain          TEXT NOT NULL DEFAULT 'general',
	struggle_score  REAL NOT NULL DEFAULT 0,
	error_count     INTEGER NOT NULL DEFAULT 0,
	retry_count     INTEGER NOT NULL DEFAULT 0,
	correction_count INTEGER NOT NULL DEFAULT 0,
	discovery_count INTEGER NOT NULL DEFAULT 0,
	tool_call_count INTEGER NOT NULL DEFAULT 0,
	resumed         INTEGER NOT NULL DEFAULT 0,
	continued_from  TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL,
	modified_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project);
CREATE INDEX IF NOT EXISTS idx_sessions_cohort ON sessions(project, domain, intent);

CREATE TABLE IF NOT EXISTS messages (
	session_id   TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	role         TEXT NOT NULL,
	timestamp    TEXT NOT NULL DEFAULT '',
	preview      TEXT NOT NULL DEFAULT '',
	tool_names   TEXT NOT NULL DEFAULT '[]',
	file_paths   TEXT NOT NULL DEFAULT '[]',
	has_error    INTEGER NOT NULL DEFAULT 0,
	is_retry     INTEGER NOT NULL DEFAULT 0,
	is_correction INTEGER NOT NULL DEFAULT 0,
	is_discovery INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, seq)
);

CREATE TABLE IF NOT EXISTS signals (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	project     TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	signal_type TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	severity    TEXT NOT NULL,
	seq_start   INTEGER NOT NULL,
	seq_end     INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_project ON signals(project);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (st *Store) Close() error {
	return st.db.Close()
}

// SaveSession upserts a session and replaces its message rows.
func (st *Store) SaveSession(s *session.Session) error {
	tx, err := st.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	resumed := 0
	if s.Resumed {
		resumed = 1
	}

	_, err = tx.Exec(`
		INSERT INTO sessions (id, project, first_message, intent, domain,
			struggle_score, error_count, retry_count, correction_count,
			discovery_count, tool_call_count, resumed, continued_from,
			created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project = excluded.project,
			first_message = excluded.first_message,
			intent = excluded.intent,
			domain = excluded.domain,
			struggle_score = excluded.struggle_score,
			error_count = excluded.error_count,
			retry_count = excluded.retry_count,
			correction_count = excluded.correction_count,
			discovery_count = excluded.discovery_count,
			tool_call_count = excluded.tool_call_count,
			resumed = excluded.resumed,
			continued_from = excluded.continued_from,
			created_at = excluded.created_at,
			modified_at = excluded.modified_at`,
		s.ID, s.Project, s.FirstMessage, string(s.Intent), string(s.Domain),
		s.StruggleScore, s.Counters.Errors, s.Counters.Retries,
		s.Counters.Corrections, s.Counters.Discoveries, s.Counters.ToolCalls,
		resumed, s.ContinuedFrom, fmtTime(s.CreatedAt), fmtTime(s.ModifiedAt))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (session_id, seq, role, timestamp, preview,
			tool_names, file_paths, has_error, is_retry, is_correction, is_discovery)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range s.Messages {
		_, err := stmt.Exec(s.ID, m.Seq, m.Role, fmtTime(m.Timestamp), m.Preview,
			jsonList(m.ToolNames), jsonList(m.FilePaths),
			boolInt(m.HasError), boolInt(m.IsRetry),
			boolInt(m.IsCorrection), boolInt(m.IsDiscovery))
		if err != nil {
			return fmt.Errorf("insert message %d: %w", m.Seq, err)
		}
	}

	return tx.Commit()
}

// Session loads one session with its messages. Returns (nil, nil) when the
// session does not exist.
func (st *Store) Session(id string) (*session.Session, error) {
	rows, err := st.db.Query(sessionSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	sessions, err := st.scanSessions(rows, true)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

// SessionsByProject loads every session for a project, oldest first,
// including messages.
func (st *Store) SessionsByProject(project string) ([]*session.Session, error) {
	rows, err := st.db.Query(sessionSelect+` WHERE project = ? ORDER BY created_at`, project)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	return st.scanSessions(rows, true)
}

// MatchingSessions returns all sessions on a project/domain/intent slice,
// with messages loaded. Satisfies the enforcement comparator's SessionSource.
func (st *Store) MatchingSessions(project string, domain session.Domain, intent session.Intent) ([]*session.Session, error) {
	rows, err := st.db.Query(
		sessionSelect+` WHERE project = ? AND domain = ? AND intent = ? ORDER BY created_at`,
		project, string(domain), string(intent))
	if err != nil {
		return nil, fmt.Errorf("query cohort: %w", err)
	}
	return st.scanSessions(rows, true)
}

// LatestBefore returns the most recent session for a project created before
// the given time, or nil.
func (st *Store) LatestBefore(project string, before time.Time) (*session.Session, error) {
	rows, err := st.db.Query(
		sessionSelect+` WHERE project = ? AND created_at < ? ORDER BY created_at DESC LIMIT 1`,
		project, fmtTime(before))
	if err != nil {
		return nil, fmt.Errorf("query latest session: %w", err)
	}
	sessions, err := st.scanSessions(rows, false)
	if err != nil || len(sessions) == 0 {
		return nil, err
	}
	return sessions[0], nil
}

// SaveSignals appends signal rows for a project.
func (st *Store) SaveSignals(project string, signals []extract.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	tx, err := st.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO signals (session_id, project, strategy, signal_type,
			category, severity, seq_start, seq_end, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare signal insert: %w", err)
	}
	defer stmt.Close()

	now := fmtTime(time.Now().UTC())
	for _, sig := range signals {
		_, err := stmt.Exec(sig.SessionID, project, sig.Strategy,
			string(sig.Type), sig.Category, string(sig.Severity),
			sig.StartSeq, sig.EndSeq, sig.Description, now)
		if err != nil {
			return fmt.Errorf("insert signal: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteSignals removes previously extracted signals for a session so an
// extraction run can be repeated without duplication.
func (st *Store) DeleteSignals(sessionID string) error {
	_, err := st.db.Exec(`DELETE FROM signals WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete signals: %w", err)
	}
	return nil
}

// SignalsByProject loads all recorded signals for a project, oldest first.
func (st *Store) SignalsByProject(project string) ([]extract.Signal, error) {
	rows, err := st.db.Query(`
		SELECT session_id, strategy, signal_type, category, severity,
			seq_start, seq_end, description
		FROM signals WHERE project = ? ORDER BY id`, project)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []extract.Signal
	for rows.Next() {
		var sig extract.Signal
		var typ, sev string
		if err := rows.Scan(&sig.SessionID, &sig.Strategy, &typ, &sig.Category,
			&sev, &sig.StartSeq, &sig.EndSeq, &sig.Description); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Type = extract.Type(typ)
		sig.Severity = extract.Severity(sev)
		out = append(out, sig)
	}
	return out, rows.Err()
}

const sessionSelect = `
	SELECT id, project, first_message, intent, domain, struggle_score,
		error_count, retry_count, correction_count, discovery_count,
		tool_call_count, resumed, continued_from, created_at, modified_at
	FROM sessions`

func (st *Store) scanSessions(rows *sql.Rows, withMessages bool) ([]*session.Session, error) {
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		s := &session.Session{}
		var intent, domain, created, modified string
		var resumed int
		err := rows.Scan(&s.ID, &s.Project, &s.FirstMessage, &intent, &domain,
			&s.StruggleScore, &s.Counters.Errors, &s.Counters.Retries,
			&s.Counters.Corrections, &s.Counters.Discoveries,
			&s.Counters.ToolCalls, &resumed, &s.ContinuedFrom,
			&created, &modified)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Intent = session.Intent(intent)
		s.Domain = session.Domain(domain)
		s.Resumed = resumed != 0
		s.CreatedAt = parseTime(created)
		s.ModifiedAt = parseTime(modified)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if withMessages {
		for _, s := range out {
			if err := st.loadMessages(s); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (st *Store) loadMessages(s *session.Session) error {
	rows, err := st.db.Query(`
		SELECT seq, role, timestamp, preview, tool_names, file_paths,
			has_error, is_retry, is_correction, is_discovery
		FROM messages WHERE session_id = ? ORDER BY seq`, s.ID)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m session.Message
		var ts, tools, paths string
		var hasError, isRetry, isCorrection, isDiscovery int
		err := rows.Scan(&m.Seq, &m.Role, &ts, &m.Preview, &tools, &paths,
			&hasError, &isRetry, &isCorrection, &isDiscovery)
		if err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		m.Timestamp = parseTime(ts)
		m.ToolNames = parseList(tools)
		m.FilePaths = parseList(paths)
		m.HasError = hasError != 0
		m.IsRetry = isRetry != 0
		m.IsCorrection = isCorrection != 0
		m.IsDiscovery = isDiscovery != 0
		s.Messages = append(s.Messages, m)
	}
	return rows.Err()
}

// timeLayout is RFC 3339 with fixed-width nanoseconds. RFC3339Nano drops
// trailing zeros, which breaks lexicographic ordering of the TEXT column
// within a second; the fixed-width form sorts the same as the time value.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func jsonList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func parseList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
