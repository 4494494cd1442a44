package database

import (
	"fmt"
	"time"

	"netwatch/app/internal/models"
)

// InsertIssue appends an issue log entry
func (s *Store) InsertIssue(e models.IssueLogEntry) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO issue_log (ts, kind, message) VALUES (?, ?, ?)`,
		toMillis(e.Timestamp), string(e.Kind), e.Message)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LogIssue is a convenience wrapper stamping the entry with ts.
func (s *Store) LogIssue(ts time.Time, kind models.IssueKind, format string, args ...any) error {
	_, err := s.InsertIssue(models.IssueLogEntry{
		Timestamp: ts,
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
	})
	return err
}

// Issues retrieves the audit trail newest first with an optional kind filter
func (s *Store) Issues(limit int, kind models.IssueKind, offset int) ([]models.IssueLogEntry, error) {
	query := `SELECT id, ts, kind, message FROM issue_log WHERE 1=1`
	args := []any{}

	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}

	query += " ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.IssueLogEntry
	for rows.Next() {
		var e models.IssueLogEntry
		var ts int64
		var k string
		if err := rows.Scan(&e.ID, &ts, &k, &e.Message); err != nil {
			return nil, err
		}
		e.Timestamp = fromMillis(ts)
		e.Kind = models.IssueKind(k)
		out = append(out, e)
	}
	return out, rows.Err()
}

// IssueCounts returns the number of entries per kind since the given time.
func (s *Store) IssueCounts(since time.Time) (map[models.IssueKind]int, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM issue_log WHERE ts >= ? GROUP BY kind`, toMillis(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.IssueKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[models.IssueKind(kind)] = n
	}
	return counts, rows.Err()
}
