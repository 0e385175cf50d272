// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers to distinguish
// failure scenarios without inspecting driver errors.  ErrConflict signals
// that an operation cannot proceed because dependent rows still exist (for
// example deleting equipment that orders reference), while *DuplicateError
// reports which unique column rejected an insert or update.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// ErrConflict is returned when a write breaks a foreign key: deleting a row
// others still reference, or inserting a reference to a row that is gone.
var ErrConflict = errors.New("conflict")

// DuplicateError is returned when a unique index rejects a write.  Field is
// the column the index covers ("username", "email", ...), or "" when it
// could not be determined.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return "duplicate entry"
	}
	return fmt.Sprintf("duplicate %s", e.Field)
}

// translate maps MySQL constraint violations to repository errors and
// leaves everything else untouched.
func translate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return &DuplicateError{Field: duplicateField(me.Message)}
	case mysqlRowIsReferenced, mysqlNoReferencedRow:
		return ErrConflict
	}
	return err
}

// duplicateField extracts the column from messages such as
// "Duplicate entry 'bob' for key 'users.users_username_unique'".
func duplicateField(msg string) string {
	msg = strings.ToLower(msg)
	for _, f := range []string{"username", "email", "token_hash", "hash"} {
		if strings.Contains(msg, "_"+f+"_") {
			if f == "hash" {
				return "token_hash"
			}
			return f
		}
	}
	return ""
}
