package store

import (
	"fmt"
	"unicode/utf8"
)

// GroupStat is a per-intent or per-domain aggregate row.
type GroupStat struct {
	Label       string
	Sessions    int
	AvgStruggle float64
}

// TopSession is one row of the highest-struggle session listing.
type TopSession struct {
	ID            string
	Intent        string
	Domain        string
	StruggleScore float64
	Preview       string
}

// ProjectStats summarizes a project's sessions for reporting.
type ProjectStats struct {
	Project       string
	TotalSessions int
	HighStruggle  int // sessions above the given struggle threshold
	ByIntent      []GroupStat
	ByDomain      []GroupStat
	TopStruggle   []TopSession
}

// ProjectStats computes aggregate metrics for a project. highThreshold is the
// struggle score above which a session counts as high-struggle.
func (st *Store) ProjectStats(project string, highThreshold float64) (*ProjectStats, error) {
	ps := &ProjectStats{Project: project}

	err := st.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE project = ?`, project,
	).Scan(&ps.TotalSessions)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	err = st.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE project = ? AND struggle_score > ?`,
		project, highThreshold,
	).Scan(&ps.HighStruggle)
	if err != nil {
		return nil, fmt.Errorf("count high-struggle: %w", err)
	}

	ps.ByIntent, err = st.groupStats(project, "intent")
	if err != nil {
		return nil, err
	}
	ps.ByDomain, err = st.groupStats(project, "domain")
	if err != nil {
		return nil, err
	}

	rows, err := st.db.Query(`
		SELECT id, intent, domain, struggle_score, first_message
		FROM sessions WHERE project = ?
		ORDER BY struggle_score DESC LIMIT 10`, project)
	if err != nil {
		return nil, fmt.Errorf("query top struggle: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts TopSession
		if err := rows.Scan(&ts.ID, &ts.Intent, &ts.Domain, &ts.StruggleScore, &ts.Preview); err != nil {
			return nil, fmt.Errorf("scan top struggle: %w", err)
		}
		ts.Preview = trimPreview(ts.Preview, 100)
		ps.TopStruggle = append(ps.TopStruggle, ts)
	}
	return ps, rows.Err()
}

// trimPreview cuts a preview to at most max bytes on a rune boundary.
func trimPreview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (st *Store) groupStats(project, column string) ([]GroupStat, error) {
	// column is one of the fixed identifiers "intent"/"domain", never user input.
	rows, err := st.db.Query(fmt.Sprintf(`
		SELECT %s, COUNT(*), AVG(struggle_score)
		FROM sessions WHERE project = ?
		GROUP BY %s ORDER BY AVG(struggle_score) DESC`, column, column), project)
	if err != nil {
		return nil, fmt.Errorf("group by %s: %w", column, err)
	}
	defer rows.Close()

	var out []GroupStat
	for rows.Next() {
		var gs GroupStat
		if err := rows.Scan(&gs.Label, &gs.Sessions, &gs.AvgStruggle); err != nil {
			return nil, fmt.Errorf("scan group stat: %w", err)
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}
