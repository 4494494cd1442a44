package database

// EnsureSchema creates all necessary database tables
func (s *Store) EnsureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS ping_samples (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts INTEGER NOT NULL,
  latency_ms REAL,
  sequence INTEGER,
  ttl INTEGER,
  is_timeout INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_ping_samples_ts ON ping_samples(ts);

CREATE TABLE IF NOT EXISTS gap_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts INTEGER NOT NULL,
  gap_seconds INTEGER NOT NULL,
  seq_from INTEGER NOT NULL,
  seq_to INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gap_events_ts ON gap_events(ts);

CREATE TABLE IF NOT EXISTS speedtests (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts INTEGER NOT NULL,
  server TEXT,
  latency_ms REAL,
  download_mbps REAL,
  upload_mbps REAL,
  ping_avg_ms REAL
);
CREATE INDEX IF NOT EXISTS idx_speedtests_ts ON speedtests(ts);

CREATE TABLE IF NOT EXISTS issue_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts INTEGER NOT NULL,
  kind TEXT NOT NULL,
  message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issue_log_ts ON issue_log(ts);
CREATE INDEX IF NOT EXISTS idx_issue_log_kind ON issue_log(kind);
`)
	return err
}
