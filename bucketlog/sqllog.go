// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package bucketlog

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luxfi/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jax-protocol/jax-fs/blob"
)

const schema = `
CREATE TABLE IF NOT EXISTS bucket_log (
	bucket_id     TEXT    NOT NULL,
	height        INTEGER NOT NULL,
	current_link  TEXT    NOT NULL,
	previous_link TEXT,
	name          TEXT    NOT NULL,
	published     BOOLEAN NOT NULL,
	created_at    INTEGER NOT NULL,
	UNIQUE (bucket_id, height, current_link)
);
CREATE INDEX IF NOT EXISTS bucket_log_published
	ON bucket_log (bucket_id, published, height DESC);
`

// SQLLog persists the version log in sqlite. Appends take a per-bucket
// lock so validation and insert are atomic for that bucket while other
// buckets proceed.
type SQLLog struct {
	db  *sql.DB
	log log.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewSQLLog(path string, logger log.Logger) (*SQLLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open bucket log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket log schema: %w", err)
	}
	return &SQLLog{
		db:    db,
		log:   logger,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}, nil
}

func (l *SQLLog) Close() error {
	return l.db.Close()
}

func (l *SQLLog) bucketLock(bucket uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[bucket]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[bucket] = lock
	}
	return lock
}

func (l *SQLLog) Append(entry Entry) error {
	lock := l.bucketLock(entry.Bucket)
	lock.Lock()
	defer lock.Unlock()

	var prevHeights []uint64
	if entry.Previous != nil {
		var err error
		prevHeights, err = l.Has(entry.Bucket, *entry.Previous)
		if err != nil {
			return err
		}
	}
	atHeight, err := l.Heads(entry.Bucket, entry.Height)
	if err != nil {
		return err
	}
	if err := validate(entry, prevHeights, atHeight); err != nil {
		return err
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var previous any
	if entry.Previous != nil {
		previous = entry.Previous.String()
	}
	_, err = l.db.Exec(
		`INSERT INTO bucket_log
			(bucket_id, height, current_link, previous_link, name, published, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Bucket.String(), entry.Height, entry.Link.String(),
		previous, entry.Name, entry.Published, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append bucket log entry: %w", err)
	}
	l.log.Debug("appended bucket log entry",
		"bucket", entry.Bucket, "height", entry.Height, "link", entry.Link)
	return nil
}

func (l *SQLLog) Heads(bucket uuid.UUID, height uint64) ([]blob.Link, error) {
	rows, err := l.db.Query(
		`SELECT current_link FROM bucket_log WHERE bucket_id = ? AND height = ?`,
		bucket.String(), height,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]blob.Link, error) {
	var links []blob.Link
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		link, err := blob.ParseLink(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt link %q in bucket log: %w", raw, err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (l *SQLLog) Height(bucket uuid.UUID) (uint64, error) {
	var height sql.NullInt64
	err := l.db.QueryRow(
		`SELECT MAX(height) FROM bucket_log WHERE bucket_id = ?`,
		bucket.String(),
	).Scan(&height)
	if err != nil {
		return 0, err
	}
	if !height.Valid {
		return 0, ErrUnknownBucket
	}
	return uint64(height.Int64), nil
}

func (l *SQLLog) Head(bucket uuid.UUID) (blob.Link, uint64, error) {
	height, err := l.Height(bucket)
	if err != nil {
		return blob.Link{}, 0, err
	}
	link, err := l.HeadAt(bucket, height)
	return link, height, err
}

func (l *SQLLog) HeadAt(bucket uuid.UUID, height uint64) (blob.Link, error) {
	links, err := l.Heads(bucket, height)
	if err != nil {
		return blob.Link{}, err
	}
	if len(links) == 0 {
		return blob.Link{}, ErrUnknownBucket
	}
	return maxLink(links), nil
}

func (l *SQLLog) Has(bucket uuid.UUID, link blob.Link) ([]uint64, error) {
	rows, err := l.db.Query(
		`SELECT height FROM bucket_log WHERE bucket_id = ? AND current_link = ?`,
		bucket.String(), link.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var heights []uint64
	for rows.Next() {
		var h uint64
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		heights = append(heights, h)
	}
	return heights, rows.Err()
}

func (l *SQLLog) LatestPublished(bucket uuid.UUID) (blob.Link, uint64, error) {
	var height sql.NullInt64
	err := l.db.QueryRow(
		`SELECT MAX(height) FROM bucket_log WHERE bucket_id = ? AND published`,
		bucket.String(),
	).Scan(&height)
	if err != nil {
		return blob.Link{}, 0, err
	}
	if !height.Valid {
		return blob.Link{}, 0, ErrNoPublished
	}

	rows, err := l.db.Query(
		`SELECT current_link FROM bucket_log
			WHERE bucket_id = ? AND published AND height = ?`,
		bucket.String(), height.Int64,
	)
	if err != nil {
		return blob.Link{}, 0, err
	}
	defer rows.Close()
	links, err := scanLinks(rows)
	if err != nil {
		return blob.Link{}, 0, err
	}
	if len(links) == 0 {
		return blob.Link{}, 0, ErrNoPublished
	}
	return maxLink(links), uint64(height.Int64), nil
}

func (l *SQLLog) Buckets() ([]uuid.UUID, error) {
	rows, err := l.db.Query(`SELECT DISTINCT bucket_id FROM bucket_log`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		bucket, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt bucket id %q in bucket log: %w", raw, err)
		}
		out = append(out, bucket)
	}
	return out, rows.Err()
}
