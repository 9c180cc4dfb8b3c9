package collectors

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/yair/conference-portal/pkg/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestNewBlobRepository(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		repo, err := NewBlobRepository(setupTestDB(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if repo == nil {
			t.Fatal("expected repository, got nil")
		}
	})

	t.Run("nil database", func(t *testing.T) {
		if _, err := NewBlobRepository(nil); err == nil {
			t.Error("expected error for nil database")
		}
	})
}

func TestBlobRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewBlobRepository(setupTestDB(t))
	if err != nil {
		t.Fatal(err)
	}

	var _ domain.BlobStore = repo

	t.Run("put and get", func(t *testing.T) {
		url, err := repo.Put(ctx, "interests/one.json", []byte(`{"a":1}`), "application/json")
		if err != nil {
			t.Fatalf("failed to put blob: %v", err)
		}
		if url != "blob://interests/one.json" {
			t.Errorf("unexpected url %s", url)
		}

		data, err := repo.Get(ctx, url)
		if err != nil {
			t.Fatalf("failed to get blob: %v", err)
		}
		if string(data) != `{"a":1}` {
			t.Errorf("unexpected data %s", data)
		}
	})

	t.Run("put overwrites same key", func(t *testing.T) {
		url, _ := repo.Put(ctx, "interests/one.json", []byte(`{"a":2}`), "")
		data, err := repo.Get(ctx, url)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `{"a":2}` {
			t.Errorf("expected overwritten data, got %s", data)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		if _, err := repo.Put(ctx, "/", []byte("x"), ""); err == nil {
			t.Error("expected error for empty key")
		}
	})

	t.Run("list by prefix", func(t *testing.T) {
		repo.Put(ctx, "interests/two.json", []byte("{}"), "application/json")
		repo.Put(ctx, "exports/report.xlsx", []byte("x"), "")

		blobs, err := repo.List(ctx, "interests/")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(blobs) != 2 {
			t.Fatalf("expected 2 blobs, got %d", len(blobs))
		}
		if blobs[0].Pathname != "interests/one.json" || blobs[1].URL != "blob://interests/two.json" {
			t.Errorf("unexpected listing %+v", blobs)
		}

		all, err := repo.List(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 blobs with empty prefix, got %d", len(all))
		}
	})

	t.Run("prefix is literal", func(t *testing.T) {
		repo.Put(ctx, "a%b/x", []byte("{}"), "")
		blobs, err := repo.List(ctx, "a%")
		if err != nil {
			t.Fatal(err)
		}
		if len(blobs) != 1 {
			t.Errorf("expected literal prefix match, got %+v", blobs)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete(ctx, "blob://interests/two.json"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(ctx, "blob://interests/two.json"); !errors.Is(err, domain.ErrBlobNotFound) {
			t.Errorf("expected ErrBlobNotFound, got %v", err)
		}
		if err := repo.Delete(ctx, "blob://interests/two.json"); !errors.Is(err, domain.ErrBlobNotFound) {
			t.Errorf("expected ErrBlobNotFound on second delete, got %v", err)
		}
	})

	t.Run("foreign url", func(t *testing.T) {
		if _, err := repo.Get(ctx, "https://elsewhere/x"); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})
}
