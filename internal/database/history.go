package database

import "time"

// RecordPlay appends one playback event. userID and playDuration are optional
// and stored as NULL when absent; history rows are never updated or deleted.
// A play against an unknown track returns ErrNotFound via the foreign key.
func (db *Database) RecordPlay(trackID string, userID *string, playDuration *int) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err := db.recordPlayStmt.Exec(trackID, userID, playDuration, now)
	if err != nil {
		err = mapConstraintErr(err)
		db.logger.WithError(err).WithField("track_id", trackID).Warn("Failed to record play")
		return err
	}
	return nil
}

// CountPlays returns the number of history rows for a track.
func (db *Database) CountPlays(trackID string) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM play_history WHERE track_id = ?", trackID).Scan(&count)
	if err != nil {
		db.logger.WithError(err).WithField("track_id", trackID).Error("Failed to count plays")
		return 0, err
	}
	return count, nil
}
