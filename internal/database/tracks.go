package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/navicore/navicore-music/pkg/models"
)

// CreateTrack persists a new track from the supplied fields, generating a
// fresh id and setting created_at and updated_at to the same instant. The
// stored entity is returned verbatim without a re-fetch.
func (db *Database) CreateTrack(params models.CreateTrack) (models.Track, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	track := models.Track{
		ID:           uuid.NewString(),
		Title:        params.Title,
		Artist:       params.Artist,
		Album:        params.Album,
		Duration:     params.Duration,
		FilePath:     params.FilePath,
		CoverArtPath: params.CoverArtPath,
		Genre:        params.Genre,
		Year:         params.Year,
		TrackNumber:  params.TrackNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := db.conn.Exec(`
		INSERT INTO tracks (id, title, artist, album, duration, file_path, cover_art_path, genre, year, track_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.ID, track.Title, track.Artist, track.Album, track.Duration,
		track.FilePath, track.CoverArtPath, track.Genre, track.Year, track.TrackNumber,
		track.CreatedAt, track.UpdatedAt)
	if err != nil {
		db.logger.WithError(err).WithField("title", track.Title).Error("Failed to insert track")
		return models.Track{}, err
	}

	return track, nil
}

// GetAllTracks returns every track ordered by artist, album and track number.
// Tracks without a track number sort after numbered ones within an album.
func (db *Database) GetAllTracks() ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, artist, album, duration, file_path, cover_art_path, genre, year, track_number, created_at, updated_at
		FROM tracks
		ORDER BY artist, album, track_number IS NULL, track_number, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// GetTrackByID returns a single track by id, or ErrNotFound.
func (db *Database) GetTrackByID(id string) (models.Track, error) {
	row := db.getTrackByIDStmt.QueryRow(id)
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return models.Track{}, ErrNotFound
	}
	if err != nil {
		db.logger.WithError(err).WithField("track_id", id).Error("Failed to get track by ID")
		return models.Track{}, err
	}
	return track, nil
}

// DeleteTrack removes a track by id. The boolean reports whether a row was
// actually removed; deleting an absent id is not an error.
func (db *Database) DeleteTrack(id string) (bool, error) {
	result, err := db.conn.Exec("DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		db.logger.WithError(err).WithField("track_id", id).Error("Failed to delete track")
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SearchTracks performs a simple LIKE-based substring search over title,
// artist and album, with the same ordering as GetAllTracks.
func (db *Database) SearchTracks(query string) ([]models.Track, error) {
	searchQuery := "%" + query + "%"
	rows, err := db.searchTracksStmt.Query(searchQuery, searchQuery, searchQuery)
	if err != nil {
		db.logger.WithError(err).WithField("query", query).Error("Failed to search tracks")
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (models.Track, error) {
	var track models.Track
	var coverArtPath, genre sql.NullString
	var year, trackNumber sql.NullInt64

	err := row.Scan(&track.ID, &track.Title, &track.Artist, &track.Album,
		&track.Duration, &track.FilePath, &coverArtPath, &genre, &year, &trackNumber,
		&track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return models.Track{}, err
	}

	if coverArtPath.Valid {
		track.CoverArtPath = &coverArtPath.String
	}
	if genre.Valid {
		track.Genre = &genre.String
	}
	if year.Valid {
		y := int(year.Int64)
		track.Year = &y
	}
	if trackNumber.Valid {
		n := int(trackNumber.Int64)
		track.TrackNumber = &n
	}
	return track, nil
}

// scanTrackRows scans standard track result sets into a slice of models.Track.
// Callers must have already deferred rows.Close().
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	tracks := []models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}
