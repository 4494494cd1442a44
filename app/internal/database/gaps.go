package database

import (
	"time"

	"netwatch/app/internal/models"
)

// InsertGap appends a gap event.
func (s *Store) InsertGap(g models.GapEvent) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO gap_events (ts, gap_seconds, seq_from, seq_to)
		VALUES (?, ?, ?, ?)`,
		toMillis(g.Timestamp), g.GapSeconds, g.SeqFrom, g.SeqTo)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GapsSince returns gap events with timestamp >= since, oldest first.
func (s *Store) GapsSince(since time.Time) ([]models.GapEvent, error) {
	rows, err := s.db.Query(`SELECT id, ts, gap_seconds, seq_from, seq_to FROM gap_events
		WHERE ts >= ? ORDER BY ts ASC, id ASC`, toMillis(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GapEvent
	for rows.Next() {
		var g models.GapEvent
		var ts int64
		if err := rows.Scan(&g.ID, &ts, &g.GapSeconds, &g.SeqFrom, &g.SeqTo); err != nil {
			return nil, err
		}
		g.Timestamp = fromMillis(ts)
		out = append(out, g)
	}
	return out, rows.Err()
}
