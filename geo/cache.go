// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/munhwamap/munhwamap/spatial"
	"github.com/munhwamap/munhwamap/utils/textutils"
)

// CoordinateCache stores resolved coordinates keyed by venue identity so
// paid search calls are never repeated for the same venue. Entries never
// expire; a mis-resolved venue keeps its first answer until the cache is
// cleared by hand.
type CoordinateCache interface {
	// Get returns the cached point for a key, with false when absent
	Get(key string) (spatial.Point, bool, error)

	// Put stores (or overwrites) the point for a key
	Put(key string, p spatial.Point) error
}

// CacheKey builds the composite venue-identity key. All parts are folded
// so spelling variations of the same venue share an entry.
func CacheKey(district, venue, title string) string {
	return textutils.FoldKey(district) + "|" + textutils.FoldKey(venue) + "|" + textutils.FoldKey(title)
}

// MemoryCache is an in-memory CoordinateCache, used in tests and as a
// per-process cache when no database is around.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]spatial.Point
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]spatial.Point)}
}

// Get implements CoordinateCache.
func (c *MemoryCache) Get(key string) (spatial.Point, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.entries[key]

	return p, ok, nil
}

// Put implements CoordinateCache.
func (c *MemoryCache) Put(key string, p spatial.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = p

	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// SQLCache persists coordinates in DuckDB so they survive across runs.
type SQLCache struct {
	db *sql.DB
}

// NewSQLCache creates a DuckDB-backed coordinate cache.
func NewSQLCache(db *sql.DB) *SQLCache {
	return &SQLCache{db: db}
}

// CreateSchema creates the cache table.
func (c *SQLCache) CreateSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS geo_cache (
			key VARCHAR PRIMARY KEY,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

// Get implements CoordinateCache.
func (c *SQLCache) Get(key string) (spatial.Point, bool, error) {
	var p spatial.Point

	err := c.db.QueryRow(
		`SELECT lat, lng FROM geo_cache WHERE key = ?`, key,
	).Scan(&p.Lat, &p.Lng)

	if errors.Is(err, sql.ErrNoRows) {
		return spatial.Point{}, false, nil
	}

	if err != nil {
		return spatial.Point{}, false, err
	}

	return p, true, nil
}

// Put implements CoordinateCache with a read-modify-write per entry;
// there is a single writer in this process model, so no locking beyond
// the database's own.
func (c *SQLCache) Put(key string, p spatial.Point) error {
	now := time.Now()

	result, err := c.db.Exec(
		`UPDATE geo_cache SET lat = ?, lng = ?, updated_at = ? WHERE key = ?`,
		p.Lat, p.Lng, now, key,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected > 0 {
		return nil
	}

	_, err = c.db.Exec(
		`INSERT INTO geo_cache(key, lat, lng, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		key, p.Lat, p.Lng, now, now,
	)

	return err
}

// Size returns the number of cached entries.
func (c *SQLCache) Size() (int, error) {
	var n int

	err := c.db.QueryRow(`SELECT COUNT(*) FROM geo_cache`).Scan(&n)

	return n, err
}
