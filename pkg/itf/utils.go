package itf

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/repo"
)

// NewDB opens an empty SQLite database in a per test directory. A file
// database is used instead of :memory: so every pooled connection sees the
// same data.
func NewDB(tb testing.TB) *sqlx.DB {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test.db")
	db, err := repo.Open(context.Background(), repo.SQLite, "file:"+path, repo.PoolOptions{MaxOpenConns: 8})
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

// Capture subscribes to events of type E and returns a function reporting
// every event seen so far.
func Capture[E any](te *TestEnvironment) func() []E {
	var (
		mu   sync.Mutex
		seen []E
	)
	te.Bus.Subscribe(func(e E) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e)
	})
	return func() []E {
		mu.Lock()
		defer mu.Unlock()
		return append([]E(nil), seen...)
	}
}
