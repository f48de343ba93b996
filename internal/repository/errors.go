package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository errors.
var (
	ErrDuplicateUser = errors.New("user with this username or email already exists")
	ErrNotFound      = errors.New("record not found")
)

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
