// Package sqlitecache implements the local durable cache tier over a
// single-file SQLite database. It is single-writer-assumed: no cross-process
// coordination beyond SQLite's own locking.
package sqlitecache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	// modernc.org/sqlite driver name is "sqlite".
	_ "modernc.org/sqlite"

	"netsync/application/ports"
	"netsync/domain/core/entities"
)

// Key scheme of the cache tier. The keys are part of the external contract
// and must stay stable across releases.
const (
	keyNodes             = "cache:nodes:%s"
	keyEdges             = "cache:edges:%s"
	keyNetworks          = "cache:networks"
	keyCurrentNetworkID  = "cache:current-network-id"
	keyLastFetch         = "cache:last-fetch-timestamp"
	keyReloadRecommended = "cache:reload-recommended"
)

// Cache is the SQLite-backed PersistentCache implementation
type Cache struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.PersistentCache = (*Cache)(nil)

// Open opens (creating if needed) the cache database at path
func Open(path string, logger *zap.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		k TEXT PRIMARY KEY,
		v BLOB NOT NULL,
		written_at_unixms INTEGER NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, logger: logger.Named("cache")}, nil
}

// Close closes the underlying database
func (c *Cache) Close() error {
	return c.db.Close()
}

// LoadWorkingSet returns the cached nodes and edges of a network. Corrupt
// entries degrade to a miss: the caller never sees a cache-tier error.
func (c *Cache) LoadWorkingSet(networkID string) ([]*entities.Node, []*entities.Edge, bool) {
	var nodes []*entities.Node
	if !c.loadJSON(fmt.Sprintf(keyNodes, networkID), &nodes) {
		return nil, nil, false
	}
	var edges []*entities.Edge
	if !c.loadJSON(fmt.Sprintf(keyEdges, networkID), &edges) {
		return nil, nil, false
	}
	return nodes, edges, true
}

// SaveWorkingSet stores a point-in-time copy of a network's working set
func (c *Cache) SaveWorkingSet(networkID string, nodes []*entities.Node, edges []*entities.Edge) {
	c.saveJSON(fmt.Sprintf(keyNodes, networkID), nodes)
	c.saveJSON(fmt.Sprintf(keyEdges, networkID), edges)
}

// ClearWorkingSet removes the cached working set of a network
func (c *Cache) ClearWorkingSet(networkID string) {
	c.delete(fmt.Sprintf(keyNodes, networkID))
	c.delete(fmt.Sprintf(keyEdges, networkID))
}

// LoadNetworks returns the cached network list
func (c *Cache) LoadNetworks() ([]*entities.Network, bool) {
	var networks []*entities.Network
	if !c.loadJSON(keyNetworks, &networks) {
		return nil, false
	}
	return networks, true
}

// SaveNetworks stores the network list
func (c *Cache) SaveNetworks(networks []*entities.Network) {
	c.saveJSON(keyNetworks, networks)
}

// CurrentNetworkID returns the persisted selection
func (c *Cache) CurrentNetworkID() string {
	var id string
	if !c.loadJSON(keyCurrentNetworkID, &id) {
		return ""
	}
	return id
}

// SetCurrentNetworkID persists the selection
func (c *Cache) SetCurrentNetworkID(networkID string) {
	c.saveJSON(keyCurrentNetworkID, networkID)
}

// LastFetch returns the timestamp of the last successful remote fetch
func (c *Cache) LastFetch() time.Time {
	var t time.Time
	if !c.loadJSON(keyLastFetch, &t) {
		return time.Time{}
	}
	return t
}

// SetLastFetch records a successful remote fetch
func (c *Cache) SetLastFetch(t time.Time) {
	c.saveJSON(keyLastFetch, t)
}

// ReloadRecommended reports the persisted reload-recommended flag
func (c *Cache) ReloadRecommended() bool {
	var v bool
	if !c.loadJSON(keyReloadRecommended, &v) {
		return false
	}
	return v
}

// SetReloadRecommended persists the reload-recommended flag
func (c *Cache) SetReloadRecommended(v bool) {
	c.saveJSON(keyReloadRecommended, v)
}

// loadJSON reads and unmarshals one entry. Missing and malformed entries are
// both reported as a miss; malformed ones are logged.
func (c *Cache) loadJSON(key string, dest interface{}) bool {
	var raw []byte
	err := c.db.QueryRow(`SELECT v FROM cache_entries WHERE k = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("cache entry unparsable, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// saveJSON marshals and upserts one entry. Failures are absorbed: the cache
// tier never propagates errors to callers.
func (c *Cache) saveJSON(key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed, skipping write",
			zap.String("key", key), zap.Error(err))
		return
	}
	_, err = c.db.Exec(
		`INSERT INTO cache_entries (k, v, written_at_unixms) VALUES (?, ?, ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v, written_at_unixms = excluded.written_at_unixms`,
		key, raw, time.Now().UnixMilli(),
	)
	if err != nil {
		c.logger.Warn("cache write failed",
			zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) delete(key string) {
	if _, err := c.db.Exec(`DELETE FROM cache_entries WHERE k = ?`, key); err != nil {
		c.logger.Warn("cache delete failed",
			zap.String("key", key), zap.Error(err))
	}
}
