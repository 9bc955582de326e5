// Package repository holds one repo per table plus the sentinel errors
// that higher layers use to pick a response.  ErrForbidden means the
// caller does not own the row; ErrConflict means the row is in a state
// that does not allow the change (or a unique key was hit).
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when a lookup by id matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller attempts an operation
	// on a resource they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when an update cannot be applied in the
	// row's current state, or when a unique constraint is violated.
	ErrConflict = errors.New("conflict")

	// ErrEmailExists is returned by UserRepo.Create for a taken email.
	ErrEmailExists = errors.New("email already exists")

	// ErrNoChange indicates an UPDATE matched the row but changed nothing.
	ErrNoChange = errors.New("no change")
)

// isDuplicate reports whether err is a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
