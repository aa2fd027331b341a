package postgres

import (
	"io/fs"
	"testing"
)

func TestEmbeddedMigrationsApplyInOrder(t *testing.T) {
	paths, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	want := []string{
		"migrations/001_interactions.sql",
		"migrations/002_pipeline.sql",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d migration files, got %d", len(want), len(paths))
	}
	for i, path := range paths {
		if path != want[i] {
			t.Fatalf("migration %d: expected %s, got %s", i, want[i], path)
		}
	}
	for _, path := range paths {
		raw, readErr := migrationFS.ReadFile(path)
		if readErr != nil {
			t.Fatalf("read %s: %v", path, readErr)
		}
		if len(raw) == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}
