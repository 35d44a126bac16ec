package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/navicore/navicore-music/pkg/models"
)

// CreateUser persists a new account with a bcrypt-hashed password and echoes
// the stored entity. Duplicate usernames or emails return ErrDuplicate.
func (db *Database) CreateUser(username, email, password string, isAdmin bool) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		CreatedAt:    now,
	}

	_, err = db.conn.Exec(`
		INSERT INTO users (id, username, email, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt)
	if err != nil {
		err = mapConstraintErr(err)
		db.logger.WithError(err).WithField("username", username).Warn("Failed to insert user")
		return models.User{}, err
	}

	return user, nil
}

// GetUserByUsername returns a stored account, or ErrNotFound.
func (db *Database) GetUserByUsername(username string) (models.User, error) {
	var user models.User
	var lastLogin sql.NullTime

	err := db.conn.QueryRow(`
		SELECT id, username, email, password_hash, is_admin, created_at, last_login
		FROM users WHERE username = ?`, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsAdmin, &user.CreatedAt, &lastLogin)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		db.logger.WithError(err).WithField("username", username).Error("Failed to get user")
		return models.User{}, err
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return user, nil
}

// TouchLastLogin stamps last_login with the current time.
func (db *Database) TouchLastLogin(id string) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err := db.conn.Exec("UPDATE users SET last_login = ? WHERE id = ?", now, id)
	if err != nil {
		db.logger.WithError(err).WithField("user_id", id).Error("Failed to update last login")
	}
	return err
}

// CountUsers returns the number of stored accounts.
func (db *Database) CountUsers() (int, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// VerifyPassword checks a plaintext password against a stored bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
