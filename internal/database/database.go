package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for the hot paths
	getTrackByIDStmt *sql.Stmt
	searchTracksStmt *sql.Stmt
	recordPlayStmt   *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing). Caller should Close() it
// when finished.
func NewDatabase(dbPath string) (*Database, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// _foreign_keys rides in the DSN because the pragma is per-connection in
	// go-sqlite3; setting it via Exec would only cover whichever pooled
	// connection happened to run it. Membership and history integrity depend
	// on it holding for every connection the pool opens.
	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc&_loc=UTC&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	// Enable WAL mode for better concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist. This
// is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		last_login DATETIME
	);`

	tracksTable := `
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		duration INTEGER NOT NULL DEFAULT 0,
		file_path TEXT NOT NULL,
		cover_art_path TEXT,
		genre TEXT,
		year INTEGER,
		track_number INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	playlistsTable := `
	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	// Memberships cascade away with either parent; position ordering is
	// per-playlist and need not be contiguous.
	playlistTracksTable := `
	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE,
		PRIMARY KEY (playlist_id, track_id)
	);`

	playHistoryTable := `
	CREATE TABLE IF NOT EXISTS play_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		track_id TEXT NOT NULL,
		user_id TEXT,
		played_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		play_duration INTEGER,
		FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_tracks_artist_album ON tracks(artist, album, track_number);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_search ON tracks(title, artist, album);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_position ON playlist_tracks(playlist_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_play_history_track ON play_history(track_id);",
		"CREATE INDEX IF NOT EXISTS idx_play_history_played ON play_history(played_at);",
	}

	tables := []string{usersTable, tracksTable, playlistsTable, playlistTracksTable, playHistoryTable}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	db.getTrackByIDStmt, err = db.conn.Prepare(`
		SELECT id, title, artist, album, duration, file_path, cover_art_path, genre, year, track_number, created_at, updated_at
		FROM tracks WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get track by ID statement: %w", err)
	}

	// SQLite LIKE is case-insensitive for ASCII; search inherits that.
	db.searchTracksStmt, err = db.conn.Prepare(`
		SELECT id, title, artist, album, duration, file_path, cover_art_path, genre, year, track_number, created_at, updated_at
		FROM tracks
		WHERE title LIKE ? OR artist LIKE ? OR album LIKE ?
		ORDER BY artist, album, track_number IS NULL, track_number, title`)
	if err != nil {
		return fmt.Errorf("failed to prepare search tracks statement: %w", err)
	}

	db.recordPlayStmt, err = db.conn.Prepare(`
		INSERT INTO play_history (track_id, user_id, play_duration, played_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record play statement: %w", err)
	}

	return nil
}

// Ping verifies the underlying connection is still usable.
func (db *Database) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.getTrackByIDStmt,
		db.searchTracksStmt,
		db.recordPlayStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
