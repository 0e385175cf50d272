package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestTranslateDuplicate(t *testing.T) {
	cases := map[string]string{
		"Duplicate entry 'bob' for key 'users.users_username_unique'":        "username",
		"Duplicate entry 'a@x.com' for key 'users.users_email_unique'":       "email",
		"Duplicate entry 'abc' for key 'personal_access_tokens_hash_unique'": "token_hash",
		"Duplicate entry '1' for key 'PRIMARY'":                              "",
	}
	for msg, field := range cases {
		err := translate(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: mysqlDuplicateEntry, Message: msg}))
		var dup *DuplicateError
		if !errors.As(err, &dup) {
			t.Fatalf("%q: expected DuplicateError, got %v", msg, err)
		}
		if dup.Field != field {
			t.Errorf("%q: expected field %q, got %q", msg, field, dup.Field)
		}
	}
}

func TestTranslateForeignKey(t *testing.T) {
	for _, n := range []uint16{mysqlRowIsReferenced, mysqlNoReferencedRow} {
		err := translate(&mysql.MySQLError{Number: n, Message: "a foreign key constraint fails"})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("%d: expected ErrConflict, got %v", n, err)
		}
	}
}

func TestTranslatePassesThrough(t *testing.T) {
	base := errors.New("connection reset")
	if got := translate(base); got != base {
		t.Errorf("expected error to pass through, got %v", got)
	}
}
