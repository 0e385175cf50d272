package database

import (
	"strings"
	"testing"
)

func TestStatementsSplitsSchema(t *testing.T) {
	stmts := Statements()
	if len(stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(stmts))
	}
	want := []string{"users", "personal_access_tokens", "equipment", "orders"}
	for i, name := range want {
		prefix := "CREATE TABLE IF NOT EXISTS " + name + " ("
		if !strings.HasPrefix(stmts[i], prefix) {
			t.Errorf("statement %d: expected prefix %q, got %q", i, prefix, stmts[i][:40])
		}
		if strings.Contains(stmts[i], "--") {
			t.Errorf("statement %d still contains a comment", i)
		}
	}
}

func TestSplitStatementsIgnoresCommentPunctuation(t *testing.T) {
	src := "-- first; has a semicolon\nCREATE TABLE a (id INT);\n\n  -- second; also\nCREATE TABLE b (id INT);\n"
	stmts := splitStatements(src)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	for i, name := range []string{"a", "b"} {
		if want := "CREATE TABLE " + name + " (id INT)"; stmts[i] != want {
			t.Errorf("statement %d: got %q, want %q", i, stmts[i], want)
		}
	}
}
