package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"unicms/backend/internal/model"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalid      = errors.New("invalid")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInUse        = errors.New("resource in use")
	ErrProcessing   = errors.New("processing failed")
)

// ValidationErrors maps field names to human-readable messages. It unwraps to
// ErrInvalid so boundary code can treat it uniformly.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

func (e ValidationErrors) Unwrap() error { return ErrInvalid }

// ImageInUseError reports an asset deletion refused because content entities
// still reference it. It unwraps to ErrInUse.
type ImageInUseError struct {
	Filename string
	Articles []model.ArticleRef
}

func (e *ImageInUseError) Error() string {
	slugs := make([]string, 0, len(e.Articles))
	for _, ref := range e.Articles {
		slugs = append(slugs, ref.Slug)
	}
	return fmt.Sprintf("image %s is referenced by articles: %s", e.Filename, strings.Join(slugs, ", "))
}

func (e *ImageInUseError) Unwrap() error { return ErrInUse }

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
