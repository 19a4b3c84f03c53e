package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/kiliankoe/parodyparty/internal/store"
	"golang.org/x/sync/errgroup"
)

func openTempBackend(t *testing.T) *Backend {
	t.Helper()

	b, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Fatalf("close backend: %v", err)
		}
	})
	return b
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestInsertLoadRoundTrip(t *testing.T) {
	t.Parallel()

	b := openTempBackend(t)
	ctx := context.Background()
	if err := b.Insert(ctx, "ABCD", []byte(`{"code":"ABCD"}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rec, err := b.Load(ctx, "ABCD")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Version != 1 {
		t.Fatalf("version = %d, want 1", rec.Version)
	}
	if string(rec.Data) != `{"code":"ABCD"}` {
		t.Fatalf("data = %s", rec.Data)
	}
}

func TestInsertDuplicateReturnsAlreadyExists(t *testing.T) {
	t.Parallel()

	b := openTempBackend(t)
	ctx := context.Background()
	if err := b.Insert(ctx, "ABCD", []byte(`{}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := b.Insert(ctx, "ABCD", []byte(`{}`)); err != store.ErrAlreadyExists {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	b := openTempBackend(t)
	if _, err := b.Load(context.Background(), "NOPE"); err != store.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCompareAndSwapRejectsStaleVersion(t *testing.T) {
	t.Parallel()

	b := openTempBackend(t)
	ctx := context.Background()
	if err := b.Insert(ctx, "ABCD", []byte(`{}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	v, err := b.CompareAndSwap(ctx, "ABCD", 1, []byte(`{"round":1}`))
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
	if _, err := b.CompareAndSwap(ctx, "ABCD", 1, []byte(`{"round":9}`)); err != store.ErrContention {
		t.Fatalf("stale cas err = %v, want ErrContention", err)
	}
	if _, err := b.CompareAndSwap(ctx, "NOPE", 1, []byte(`{}`)); err != store.ErrNotFound {
		t.Fatalf("missing cas err = %v, want ErrNotFound", err)
	}
}

func TestReopenKeepsMigrationsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.db")
	b, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := b.Insert(context.Background(), "ABCD", []byte(`{}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	if _, err := b.Load(context.Background(), "ABCD"); err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
}

func TestStoreTransactionsOverSQLite(t *testing.T) {
	t.Parallel()

	st := store.New(openTempBackend(t), store.WithMaxAttempts(64))
	ctx := context.Background()
	if err := st.Create(ctx, model.NewSession("ABCD", "host", false, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			return st.Update(ctx, "ABCD", func(s *model.Session) { s.Round++ })
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("updates: %v", err)
	}
	got, err := st.Get(ctx, "ABCD")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Round != 10 {
		t.Fatalf("round = %d, want 10", got.Round)
	}
}
