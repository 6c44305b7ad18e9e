package persistence

import (
	"errors"
	"testing"
)

func TestIsDuplicateIndex(t *testing.T) {
	if !isDuplicateIndex(errors.New(`pq: relation "idx_foo" already exists (SQLSTATE 42P17)`)) {
		t.Fatal("expected a 42P17 error to be recognised as an idempotent duplicate index")
	}
	if isDuplicateIndex(errors.New("connection refused")) {
		t.Fatal("expected an unrelated error to not be swallowed")
	}
	if isDuplicateIndex(nil) {
		t.Fatal("expected a nil error to not be treated as a duplicate index")
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Fatal("expected an empty string to become nil")
	}
	if nullIfEmpty("reason") != "reason" {
		t.Fatal("expected a non-empty string to pass through unchanged")
	}
}
