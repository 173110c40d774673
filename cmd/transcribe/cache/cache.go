// Package cache stores per-chunk transcripts in a local SQLite database so
// that re-running a job (e.g. after a partial failure) does not redo the
// expensive transcription work for chunks that already succeeded.
package cache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"
	"lukechampine.com/blake3"
)

const schema = `
create table if not exists chunks (
	key text primary key,
	text text not null,
	created_at timestamp not null default current_timestamp
);`

type Cache struct {
	db *sql.DB
}

func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var text string
	err := c.db.
		QueryRowContext(ctx, "select text from chunks where key = $1", key).
		Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached chunk: %w", err)
	}

	return text, true, nil
}

func (c *Cache) Put(ctx context.Context, key, text string) error {
	_, err := c.db.ExecContext(ctx,
		"insert into chunks (key, text) values ($1, $2) on conflict do nothing", key, text)
	if err != nil {
		return fmt.Errorf("failed to persist chunk: %w", err)
	}

	return nil
}

// Key derives the cache key for a chunk: a blake3 hash over the engine
// name (different models produce different text) and the raw sample bits.
func Key(engine string, samples []float32) string {
	h := blake3.New(32, nil)
	h.Write([]byte(engine))

	var buf [4]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(s))
		h.Write(buf[:])
	}

	return hex.EncodeToString(h.Sum(nil))
}
