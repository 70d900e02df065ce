package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestParseTenantRef(t *testing.T) {
	id, ok := parseTenantRef("11111111-1111-1111-1111-111111111111")
	if !ok {
		t.Fatalf("expected UUID to parse")
	}
	if id != uuid.MustParse("11111111-1111-1111-1111-111111111111") {
		t.Fatalf("unexpected id: %s", id)
	}

	if _, ok := parseTenantRef(" 11111111-1111-1111-1111-111111111111 "); !ok {
		t.Fatalf("expected padded UUID to parse")
	}

	if _, ok := parseTenantRef("default.localhost"); ok {
		t.Fatalf("domain must not parse as UUID")
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(nil); got != exitOK {
		t.Fatalf("nil error: got %d", got)
	}
	if got := exitCode(errors.New("boom")); got != 1 {
		t.Fatalf("plain error: got %d", got)
	}
	if got := exitCode(withCode(exitUsage, errors.New("bad flag"))); got != exitUsage {
		t.Fatalf("usage error: got %d", got)
	}

	// codes survive wrapping
	wrapped := fmt.Errorf("outer: %w", withCode(exitDBWrite, errors.New("commit")))
	if got := exitCode(wrapped); got != exitDBWrite {
		t.Fatalf("wrapped error: got %d", got)
	}
}

func TestWithCodeNil(t *testing.T) {
	if withCode(exitValidation, nil) != nil {
		t.Fatalf("withCode(nil) must stay nil")
	}
}
