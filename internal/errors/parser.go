package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsRecordNotFound reports whether err is GORM's record-not-found error.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
// GORM normalizes this for postgres; the message check covers sqlite,
// which the test database uses.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a foreign-key violation.
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "foreign key constraint") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed")
}
