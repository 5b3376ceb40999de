// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file centralizes the translation of driver/GORM
// errors into the application error taxonomy so that no gorm sentinel
// leaks past the repository boundary.
//
// Mapping:
//   - gorm.ErrRecordNotFound            -> apperr.KindNotFound
//   - unique/check constraint failures  -> apperr.KindConstraint
//   - anything else                     -> apperr.KindTransport
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
)

// isUniqueViolation detects unique-constraint violations across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations,
// so string matching is required in addition to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

// translate converts a storage error into the taxonomy. entity and id are
// used only for the message; id may be empty for list operations.
func translate(err error, entity, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if id != "" {
			return apperr.NotFound("%s %s not found", entity, id)
		}
		return apperr.NotFound("%s not found", entity)
	case isUniqueViolation(err):
		return apperr.Wrap(apperr.KindConstraint, err, "%s already exists", entity)
	default:
		return apperr.Transport(err, "%s query failed", entity)
	}
}
