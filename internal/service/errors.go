// Package service holds the business rules between the HTTP handlers and the
// repositories. Failures are reported through the sentinel errors below so the
// transport layer can map them to status codes with errors.Is.
package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
	ErrInvalid       = errors.New("invalid input")
)

// fromDB folds gorm's storage errors into the service sentinels. Anything
// unrecognized passes through untouched.
func fromDB(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}
