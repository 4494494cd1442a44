package database

import (
	"database/sql"
	"time"

	"netwatch/app/internal/models"
)

const pingColumns = `id, ts, latency_ms, sequence, ttl, is_timeout`

// InsertPing appends a ping sample and returns its row id.
func (s *Store) InsertPing(p models.PingSample) (int64, error) {
	timeout := 0
	if p.IsTimeout {
		timeout = 1
	}
	res, err := s.db.Exec(`INSERT INTO ping_samples (ts, latency_ms, sequence, ttl, is_timeout)
		VALUES (?, ?, ?, ?, ?)`,
		toMillis(p.Timestamp), nullFloat(p.LatencyMs), nullInt(p.Sequence), nullInt(p.TTL), timeout)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// PingsSince returns samples with timestamp >= since, oldest first.
func (s *Store) PingsSince(since time.Time) ([]models.PingSample, error) {
	rows, err := s.db.Query(`SELECT `+pingColumns+` FROM ping_samples
		WHERE ts >= ? ORDER BY ts ASC, id ASC`, toMillis(since))
	if err != nil {
		return nil, err
	}
	return scanPings(rows)
}

// RecentPings returns the last count samples in insertion order, oldest first.
func (s *Store) RecentPings(count int) ([]models.PingSample, error) {
	if count <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT `+pingColumns+` FROM (
		SELECT `+pingColumns+` FROM ping_samples ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`, count)
	if err != nil {
		return nil, err
	}
	return scanPings(rows)
}

func scanPings(rows *sql.Rows) ([]models.PingSample, error) {
	defer rows.Close()

	var out []models.PingSample
	for rows.Next() {
		var (
			p       models.PingSample
			ts      int64
			latency sql.NullFloat64
			seq     sql.NullInt64
			ttl     sql.NullInt64
			timeout int
		)
		if err := rows.Scan(&p.ID, &ts, &latency, &seq, &ttl, &timeout); err != nil {
			return nil, err
		}
		p.Timestamp = fromMillis(ts)
		p.LatencyMs = floatPtr(latency)
		p.Sequence = intPtr(seq)
		p.TTL = intPtr(ttl)
		p.IsTimeout = timeout != 0
		out = append(out, p)
	}
	return out, rows.Err()
}
