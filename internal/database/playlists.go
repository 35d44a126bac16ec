package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/navicore/navicore-music/pkg/models"
)

// CreatePlaylist persists a new playlist with a generated id and equal
// created_at/updated_at, echoing the stored entity.
func (db *Database) CreatePlaylist(params models.CreatePlaylist) (models.Playlist, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		Name:        params.Name,
		Description: params.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := db.conn.Exec(`
		INSERT INTO playlists (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		playlist.ID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		db.logger.WithError(err).WithField("name", playlist.Name).Error("Failed to insert playlist")
		return models.Playlist{}, err
	}

	return playlist, nil
}

// GetAllPlaylists returns all playlists along with derived track counts,
// ordered by name.
func (db *Database) GetAllPlaylists() ([]models.Playlist, error) {
	rows, err := db.conn.Query(`
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at,
			   COALESCE(COUNT(pt.track_id), 0) AS track_count
		FROM playlists p
		LEFT JOIN playlist_tracks pt ON p.id = pt.playlist_id
		GROUP BY p.id, p.name, p.description, p.created_at, p.updated_at
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

// GetPlaylistByID returns a single playlist with its track count, or ErrNotFound.
func (db *Database) GetPlaylistByID(id string) (models.Playlist, error) {
	row := db.conn.QueryRow(`
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at,
			   COALESCE(COUNT(pt.track_id), 0) AS track_count
		FROM playlists p
		LEFT JOIN playlist_tracks pt ON p.id = pt.playlist_id
		WHERE p.id = ?
		GROUP BY p.id, p.name, p.description, p.created_at, p.updated_at`, id)

	playlist, err := scanPlaylist(row)
	if err == sql.ErrNoRows {
		return models.Playlist{}, ErrNotFound
	}
	if err != nil {
		db.logger.WithError(err).WithField("playlist_id", id).Error("Failed to get playlist by ID")
		return models.Playlist{}, err
	}
	return playlist, nil
}

// DeletePlaylist deletes the playlist; membership rows cascade. The boolean
// reports whether a row was removed.
func (db *Database) DeletePlaylist(id string) (bool, error) {
	result, err := db.conn.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		db.logger.WithError(err).WithField("playlist_id", id).Error("Failed to delete playlist")
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetPlaylistTracks returns member tracks ordered strictly by stored position.
// Ties (explicit duplicate positions) break by added_at then track id so the
// order is deterministic.
func (db *Database) GetPlaylistTracks(playlistID string) ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.title, t.artist, t.album, t.duration, t.file_path, t.cover_art_path, t.genre, t.year, t.track_number, t.created_at, t.updated_at
		FROM tracks t
		INNER JOIN playlist_tracks pt ON t.id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position, pt.added_at, pt.track_id`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// AddTrackToPlaylist inserts a membership row. A nil position appends after
// the current maximum in a single statement, so concurrent appends cannot
// compute positions from a stale count. Adding the same pair twice returns
// ErrDuplicate; an unknown playlist or track returns ErrNotFound.
func (db *Database) AddTrackToPlaylist(playlistID, trackID string, position *int) error {
	now := time.Now().UTC().Truncate(time.Millisecond)

	var err error
	if position != nil {
		_, err = db.conn.Exec(`
			INSERT INTO playlist_tracks (playlist_id, track_id, position, added_at)
			VALUES (?, ?, ?, ?)`,
			playlistID, trackID, *position, now)
	} else {
		_, err = db.conn.Exec(`
			INSERT INTO playlist_tracks (playlist_id, track_id, position, added_at)
			SELECT ?, ?, COALESCE(MAX(position) + 1, 0), ?
			FROM playlist_tracks WHERE playlist_id = ?`,
			playlistID, trackID, now, playlistID)
	}
	if err != nil {
		err = mapConstraintErr(err)
		db.logger.WithError(err).WithField("playlist_id", playlistID).
			WithField("track_id", trackID).Warn("Failed to add track to playlist")
		return err
	}

	return nil
}

// RemoveTrackFromPlaylist deletes the membership row for the pair. The boolean
// reports whether the membership existed, distinct from a storage failure.
func (db *Database) RemoveTrackFromPlaylist(playlistID, trackID string) (bool, error) {
	result, err := db.conn.Exec(`
		DELETE FROM playlist_tracks
		WHERE playlist_id = ? AND track_id = ?`,
		playlistID, trackID)
	if err != nil {
		db.logger.WithError(err).WithField("playlist_id", playlistID).
			WithField("track_id", trackID).Error("Failed to remove track from playlist")
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanPlaylist(row rowScanner) (models.Playlist, error) {
	var playlist models.Playlist
	var description sql.NullString

	err := row.Scan(&playlist.ID, &playlist.Name, &description,
		&playlist.CreatedAt, &playlist.UpdatedAt, &playlist.TrackCount)
	if err != nil {
		return models.Playlist{}, err
	}

	if description.Valid {
		playlist.Description = &description.String
	}
	return playlist, nil
}
