package storage

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrInvalidArgument is returned before any write when a caller passes
	// an unrecognized enum value or an inconsistent event.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSchemaTooNew is returned when the database was written by a newer
	// schema than this code understands. It is not recoverable.
	ErrSchemaTooNew = errors.New("database schema is newer than supported")
	// ErrUnsupportedVersion is returned when no migration path exists from
	// the stored schema version.
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	// ErrNestedTransaction is returned when a mutation is started from
	// within another mutation's transaction.
	ErrNestedTransaction = errors.New("nested transaction")
	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("store is closed")
)

// IsConstraint reports whether err is a SQLite constraint violation
// (uniqueness, foreign key, check).
func IsConstraint(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code == sqlite3.ErrConstraint
	}
	return false
}
