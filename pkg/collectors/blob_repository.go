package collectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yair/conference-portal/pkg/domain"
)

// urlScheme prefixes the pathname to form the opaque URL handed to callers.
const urlScheme = "blob://"

// BlobRepository is a domain.BlobStore kept in a local SQLite table, for
// deployments without a hosted object store.
type BlobRepository struct {
	db *sql.DB
}

func NewBlobRepository(db *sql.DB) (*BlobRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	repo := &BlobRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}

func (r *BlobRepository) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS blobs (
		pathname TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`

	_, err := r.db.Exec(query)
	return err
}

// Put stores data under key, replacing any existing object with that key.
func (r *BlobRepository) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("blob key cannot be empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	query := `
	INSERT INTO blobs (pathname, content_type, data, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(pathname) DO UPDATE SET
		content_type = excluded.content_type,
		data = excluded.data,
		updated_at = excluded.updated_at
	`

	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query, key, contentType, data, now, now); err != nil {
		return "", fmt.Errorf("failed to put blob: %w", err)
	}

	return urlScheme + key, nil
}

func (r *BlobRepository) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	query := `SELECT pathname FROM blobs WHERE substr(pathname, 1, ?) = ? ORDER BY pathname`

	rows, err := r.db.QueryContext(ctx, query, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var blobs []domain.BlobInfo
	for rows.Next() {
		var pathname string
		if err := rows.Scan(&pathname); err != nil {
			return nil, fmt.Errorf("failed to scan blob: %w", err)
		}
		blobs = append(blobs, domain.BlobInfo{Pathname: pathname, URL: urlScheme + pathname})
	}

	return blobs, rows.Err()
}

func (r *BlobRepository) Get(ctx context.Context, url string) ([]byte, error) {
	pathname, err := pathnameFromURL(url)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = r.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE pathname = ?`, pathname).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return data, nil
}

func (r *BlobRepository) Delete(ctx context.Context, url string) error {
	pathname, err := pathnameFromURL(url)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM blobs WHERE pathname = ?`, pathname)
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrBlobNotFound
	}

	return nil
}

func pathnameFromURL(url string) (string, error) {
	if !strings.HasPrefix(url, urlScheme) {
		return "", fmt.Errorf("%w: unexpected blob url %q", domain.ErrInvalidRequest, url)
	}
	return strings.TrimPrefix(url, urlScheme), nil
}
