// Package testutil provides testing utilities and fixtures for the
// rangesync project.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/feltworks/rangesync/internal/domain/ranges"
)

// WriteFile writes content to a file in the given directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0600)
	if err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual fails the test if got != want.
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// ManualRange builds a range with every given hand manually selected.
func ManualRange(hands ...string) ranges.Range {
	r := make(ranges.Range, len(hands))
	for _, h := range hands {
		r[h] = ranges.StateManualSelected
	}
	return r
}
