package models

import "time"

// Track represents a single catalog entry. FilePath is the object-storage key
// the media bytes live under, never a local filesystem path.
type Track struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	Album        string    `json:"album"`
	Duration     int       `json:"duration"` // in seconds
	FilePath     string    `json:"file_path"`
	CoverArtPath *string   `json:"cover_art_path,omitempty"`
	Genre        *string   `json:"genre,omitempty"`
	Year         *int      `json:"year,omitempty"`
	TrackNumber  *int      `json:"track_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateTrack carries the caller-supplied fields for a new track. The store
// generates the id and timestamps.
type CreateTrack struct {
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	Album        string  `json:"album"`
	Duration     int     `json:"duration"`
	FilePath     string  `json:"file_path"`
	CoverArtPath *string `json:"cover_art_path,omitempty"`
	Genre        *string `json:"genre,omitempty"`
	Year         *int    `json:"year,omitempty"`
	TrackNumber  *int    `json:"track_number,omitempty"`
}

// Playlist represents a named, ordered collection of tracks. Membership lives
// in its own relation so one track can appear in many playlists.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	TrackCount  int       `json:"track_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreatePlaylist carries the caller-supplied fields for a new playlist.
type CreatePlaylist struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// PlaylistTrack associates one playlist with one track at one position.
type PlaylistTrack struct {
	PlaylistID string    `json:"playlist_id"`
	TrackID    string    `json:"track_id"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"added_at"`
}

// PlayHistory is one append-only playback event. UserID is nil for anonymous
// plays; PlayDuration is the observed seconds listened, if reported.
type PlayHistory struct {
	ID           int64     `json:"id"`
	TrackID      string    `json:"track_id"`
	UserID       *string   `json:"user_id,omitempty"`
	PlayedAt     time.Time `json:"played_at"`
	PlayDuration *int      `json:"play_duration,omitempty"`
}

// User is a stored account. Only the storage shape is exercised; the login
// flow is a stub.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose the hash to clients
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// StreamURL is a freshly minted, time-limited link to a track's media bytes.
type StreamURL struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"` // seconds
}
