package service

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-scores/internal/repository"
)

// Service errors mapped to API error codes by the handlers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = repository.ErrDuplicateUser
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrScoreNotFound      = errors.New("score not found")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, repository.ErrNotFound)
}
