// Package chunkdb is the durable home for evicted dirty chunks: a small
// sqlite database keyed by chunk index, holding chunkenc blobs.
package chunkdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"chunkvault.dev/internal/grid"
	"chunkvault.dev/internal/persistence/chunkenc"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	cx         INTEGER NOT NULL,
	cy         INTEGER NOT NULL,
	blob       BLOB    NOT NULL,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (cx, cy)
);`

type DB struct {
	db *sql.DB
}

// Open creates or opens the chunk database at path, bootstrapping the
// schema. A single connection keeps sqlite writes serialized.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("chunkdb: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("chunkdb: schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// Put stores (or replaces) one chunk blob.
func (d *DB) Put(ctx context.Context, idx grid.ChunkIndex, ch *grid.Chunk) error {
	blob := chunkenc.Encode(idx, ch)
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO chunks (cx, cy, blob, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (cx, cy) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		int64(idx.X), int64(idx.Y), blob, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("chunkdb: put (%d,%d): %w", idx.X, idx.Y, err)
	}
	return nil
}

// Get loads one chunk; ok=false when the index was never stored.
func (d *DB) Get(ctx context.Context, idx grid.ChunkIndex) (*grid.Chunk, bool, error) {
	var blob []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT blob FROM chunks WHERE cx = ? AND cy = ?`,
		int64(idx.X), int64(idx.Y)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("chunkdb: get (%d,%d): %w", idx.X, idx.Y, err)
	}
	gotIdx, ch, err := chunkenc.Decode(blob)
	if err != nil {
		return nil, false, fmt.Errorf("chunkdb: get (%d,%d): %w", idx.X, idx.Y, err)
	}
	if gotIdx != idx {
		return nil, false, fmt.Errorf("chunkdb: blob at (%d,%d) claims to be (%d,%d)", idx.X, idx.Y, gotIdx.X, gotIdx.Y)
	}
	return ch, true, nil
}

// Delete removes one chunk; deleting an absent index is not an error.
func (d *DB) Delete(ctx context.Context, idx grid.ChunkIndex) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE cx = ? AND cy = ?`, int64(idx.X), int64(idx.Y))
	if err != nil {
		return fmt.Errorf("chunkdb: delete (%d,%d): %w", idx.X, idx.Y, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("chunkdb: count: %w", err)
	}
	return n, nil
}

// Indices lists all stored chunk indices, ordered for stable output.
func (d *DB) Indices(ctx context.Context) ([]grid.ChunkIndex, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT cx, cy FROM chunks ORDER BY cx, cy`)
	if err != nil {
		return nil, fmt.Errorf("chunkdb: indices: %w", err)
	}
	defer rows.Close()
	var out []grid.ChunkIndex
	for rows.Next() {
		var cx, cy int64
		if err := rows.Scan(&cx, &cy); err != nil {
			return nil, fmt.Errorf("chunkdb: indices: %w", err)
		}
		out = append(out, grid.ChunkIndex{X: grid.Coord(cx), Y: grid.Coord(cy)})
	}
	return out, rows.Err()
}
