package database

import (
	"database/sql"
	"errors"
	"time"

	"netwatch/app/internal/models"
)

const speedtestColumns = `id, ts, server, latency_ms, download_mbps, upload_mbps, ping_avg_ms`

// InsertSpeedtest appends a bandwidth probe record.
func (s *Store) InsertSpeedtest(r models.SpeedtestRecord) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO speedtests (ts, server, latency_ms, download_mbps, upload_mbps, ping_avg_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		toMillis(r.Timestamp), nullString(r.Server), nullFloat(r.LatencyMs),
		nullFloat(r.DownloadMbps), nullFloat(r.UploadMbps), nullFloat(r.PingAvgMs))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SpeedtestsSince returns records with timestamp >= since, oldest first,
// failed attempts included.
func (s *Store) SpeedtestsSince(since time.Time) ([]models.SpeedtestRecord, error) {
	rows, err := s.db.Query(`SELECT `+speedtestColumns+` FROM speedtests
		WHERE ts >= ? ORDER BY ts ASC, id ASC`, toMillis(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SpeedtestRecord
	for rows.Next() {
		r, err := scanSpeedtest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastSuccessfulSpeedtest returns the newest record with a download value,
// or nil when there is none.
func (s *Store) LastSuccessfulSpeedtest() (*models.SpeedtestRecord, error) {
	row := s.db.QueryRow(`SELECT ` + speedtestColumns + ` FROM speedtests
		WHERE download_mbps IS NOT NULL ORDER BY ts DESC, id DESC LIMIT 1`)
	r, err := scanSpeedtest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpeedtest(sc scanner) (models.SpeedtestRecord, error) {
	var (
		r                          models.SpeedtestRecord
		ts                         int64
		server                     sql.NullString
		latency, down, up, pingAvg sql.NullFloat64
	)
	if err := sc.Scan(&r.ID, &ts, &server, &latency, &down, &up, &pingAvg); err != nil {
		return models.SpeedtestRecord{}, err
	}
	r.Timestamp = fromMillis(ts)
	r.Server = stringPtr(server)
	r.LatencyMs = floatPtr(latency)
	r.DownloadMbps = floatPtr(down)
	r.UploadMbps = floatPtr(up)
	r.PingAvgMs = floatPtr(pingAvg)
	return r, nil
}
