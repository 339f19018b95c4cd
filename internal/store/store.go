// Package store provides SQLite persistence for pulso: the news row
// store, the per-client checkpoint map, and the persisted cache tier.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"pulso/internal/news"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so all pooled connections see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		published_raw TEXT,
		timestamp INTEGER NOT NULL,
		description TEXT,
		is_alert INTEGER DEFAULT 0,
		alert_keyword TEXT,
		region TEXT,
		topics TEXT,
		fetched_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_category_ts ON items(category, timestamp DESC);

	CREATE TABLE IF NOT EXISTS checkpoints (
		client TEXT NOT NULL,
		category TEXT NOT NULL,
		watermark INTEGER NOT NULL,
		PRIMARY KEY (client, category)
	);

	CREATE TABLE IF NOT EXISTS cache_entries (
		category TEXT NOT NULL,
		signature TEXT NOT NULL,
		items TEXT NOT NULL,
		inserted_at INTEGER NOT NULL,
		ttl_ms INTEGER NOT NULL,
		PRIMARY KEY (category, signature)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveItems stores items, returning count of rows written.
// Existing ids are refreshed in place via upsert.
func (s *Store) SaveItems(items []news.Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO items (
			id, category, source, title, link, published_raw, timestamp,
			description, is_alert, alert_keyword, region, topics, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			timestamp = excluded.timestamp,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	written := 0
	for _, item := range items {
		topics, err := json.MarshalToString(item.Topics)
		if err != nil {
			topics = "[]"
		}
		result, err := stmt.Exec(
			item.ID, string(item.Category), item.Source, item.Title,
			item.Link, item.PublishedRaw, item.Timestamp, item.Description,
			boolToInt(item.IsAlert), item.AlertKeyword, item.Region,
			topics, now,
		)
		if err != nil {
			return written, err
		}
		if affected, err := result.RowsAffected(); err == nil && affected > 0 {
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return written, err
	}
	return written, nil
}

// NewsByCategory retrieves items for a category newer than since
// (epoch ms; zero means no watermark), newest first.
func (s *Store) NewsByCategory(category news.Category, since int64) ([]news.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, category, source, title, link, published_raw, timestamp,
			description, is_alert, alert_keyword, region, topics
		FROM items
		WHERE category = ? AND timestamp > ?
		ORDER BY timestamp DESC
	`
	return s.queryItems(query, string(category), since)
}

// NewsByCategoryBatch answers NewsByCategory for several categories at
// once. Missing sinceMap entries mean no watermark.
func (s *Store) NewsByCategoryBatch(categories []news.Category, sinceMap map[news.Category]int64) (map[news.Category][]news.Item, error) {
	out := make(map[news.Category][]news.Item, len(categories))
	for _, cat := range categories {
		items, err := s.NewsByCategory(cat, sinceMap[cat])
		if err != nil {
			return nil, err
		}
		out[cat] = items
	}
	return out, nil
}

// DeleteOldNews removes items older than maxAgeDays, returning the
// number of rows deleted.
func (s *Store) DeleteOldNews(maxAgeDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays).UnixMilli()
	result, err := s.db.Exec("DELETE FROM items WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// queryItems is a helper that executes a query and scans results into Items.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryItems(query string, args ...any) ([]news.Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []news.Item
	for rows.Next() {
		var item news.Item
		var category, topics string
		var alertInt int
		err := rows.Scan(
			&item.ID, &category, &item.Source, &item.Title, &item.Link,
			&item.PublishedRaw, &item.Timestamp, &item.Description,
			&alertInt, &item.AlertKeyword, &item.Region, &topics,
		)
		if err != nil {
			return nil, err
		}
		item.Category = news.Category(category)
		item.IsAlert = alertInt != 0
		if topics != "" && topics != "null" {
			_ = json.UnmarshalFromString(topics, &item.Topics)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Checkpoints reads the watermark map for a client. A missing client or
// I/O failure yields an empty map; checkpoints are an optimization, not
// correctness-critical.
func (s *Store) Checkpoints(client string) map[news.Category]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[news.Category]int64)
	rows, err := s.db.Query("SELECT category, watermark FROM checkpoints WHERE client = ?", client)
	if err != nil {
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var watermark int64
		if err := rows.Scan(&category, &watermark); err != nil {
			return out
		}
		out[news.Category(category)] = watermark
	}
	return out
}

// SaveCheckpoints writes the watermark map for a client in a single
// transaction, so a refresh cycle's checkpoints land atomically.
func (s *Store) SaveCheckpoints(client string, checkpoints map[news.Category]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO checkpoints (client, category, watermark) VALUES (?, ?, ?)
		ON CONFLICT(client, category) DO UPDATE SET watermark = excluded.watermark
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for category, watermark := range checkpoints {
		if _, err := stmt.Exec(client, string(category), watermark); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CachePut stores the persisted-tier cache entry for (category, signature).
func (s *Store) CachePut(category news.Category, signature string, items []news.Item, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.MarshalToString(items)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO cache_entries (category, signature, items, inserted_at, ttl_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category, signature) DO UPDATE SET
			items = excluded.items,
			inserted_at = excluded.inserted_at,
			ttl_ms = excluded.ttl_ms
	`, string(category), signature, payload, time.Now().UnixMilli(), ttl.Milliseconds())
	return err
}

// CacheGet loads the persisted-tier cache entry for (category, signature).
// Returns the items, insertion time, ttl, and whether the entry existed.
func (s *Store) CacheGet(category news.Category, signature string) ([]news.Item, time.Time, time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	var insertedAt, ttlMs int64
	err := s.db.QueryRow(`
		SELECT items, inserted_at, ttl_ms FROM cache_entries
		WHERE category = ? AND signature = ?
	`, string(category), signature).Scan(&payload, &insertedAt, &ttlMs)
	if err != nil {
		return nil, time.Time{}, 0, false
	}

	var items []news.Item
	if err := json.UnmarshalFromString(payload, &items); err != nil {
		return nil, time.Time{}, 0, false
	}
	return items, time.UnixMilli(insertedAt), time.Duration(ttlMs) * time.Millisecond, true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
