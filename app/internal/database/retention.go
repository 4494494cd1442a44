package database

import (
	"fmt"
	"time"

	"netwatch/app/internal/models"
)

func tableFor(kind models.RecordKind) (string, error) {
	switch kind {
	case models.KindPingSample:
		return "ping_samples", nil
	case models.KindGapEvent:
		return "gap_events", nil
	case models.KindSpeedtest:
		return "speedtests", nil
	case models.KindIssue:
		return "issue_log", nil
	}
	return "", fmt.Errorf("unknown record kind %d", int(kind))
}

// PurgeOlderThan deletes records of kind strictly older than cutoff and
// returns how many rows were removed.
func (s *Store) PurgeOlderThan(kind models.RecordKind, cutoff time.Time) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`DELETE FROM `+table+` WHERE ts < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", kind, err)
	}
	return res.RowsAffected()
}
