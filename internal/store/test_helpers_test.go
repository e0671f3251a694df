package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/pushdown/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedPersons creates the person table and inserts the fixture rows.
func seedPersons(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.Exec(ctx, testutil.PersonSchema); err != nil {
		t.Fatalf("create person table: %v", err)
	}
	if err := s.Insert(ctx, testutil.PersonTable, testutil.PersonFields(), testutil.PersonRows()); err != nil {
		t.Fatalf("seed persons: %v", err)
	}
}

func personSource() Source {
	return Source{Table: testutil.PersonTable, Fields: testutil.PersonFields()}
}
