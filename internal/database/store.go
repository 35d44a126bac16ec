package database

import "github.com/navicore/navicore-music/pkg/models"

// Store exposes the catalog operations required by API handlers and the media
// gateway. *Database is the SQLite implementation; an alternate backend only
// needs to satisfy this interface, handlers never change.
type Store interface {
	Ping() error

	GetAllTracks() ([]models.Track, error)
	GetTrackByID(id string) (models.Track, error)
	CreateTrack(params models.CreateTrack) (models.Track, error)
	DeleteTrack(id string) (bool, error)
	SearchTracks(query string) ([]models.Track, error)

	GetAllPlaylists() ([]models.Playlist, error)
	GetPlaylistByID(id string) (models.Playlist, error)
	CreatePlaylist(params models.CreatePlaylist) (models.Playlist, error)
	DeletePlaylist(id string) (bool, error)
	GetPlaylistTracks(playlistID string) ([]models.Track, error)
	AddTrackToPlaylist(playlistID, trackID string, position *int) error
	RemoveTrackFromPlaylist(playlistID, trackID string) (bool, error)

	RecordPlay(trackID string, userID *string, playDuration *int) error

	CreateUser(username, email, password string, isAdmin bool) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
	TouchLastLogin(id string) error
	CountUsers() (int, error)
}

var _ Store = (*Database)(nil)
