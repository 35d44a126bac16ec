package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors callers branch on. Wrapped driver detail stays attached
// for logging; use errors.Is to test.
var (
	// ErrNotFound means the requested row, or a row it references, does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate means the write collided with an existing row, such as
	// adding a track to a playlist it is already in.
	ErrDuplicate = errors.New("already exists")
)

// mapConstraintErr translates SQLite constraint violations into the package
// sentinels: key collisions become ErrDuplicate, broken foreign keys mean
// the referenced row is absent and become ErrNotFound. Anything else passes
// through untouched.
func mapConstraintErr(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
		return ErrDuplicate
	case sqlite3.ErrConstraintForeignKey:
		return ErrNotFound
	default:
		return err
	}
}
